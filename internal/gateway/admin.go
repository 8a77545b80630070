// Package gateway - admin.go serves operational endpoints on a separate
// loopback listener so the proxy's own routing stays untouched.
//
// GET /health returns liveness.
// GET /stats  returns counters plus the latest aggregate snapshot.
// GET /ws     streams aggregate snapshots over a websocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/compresr/sherlock/internal/monitoring"
	"github.com/compresr/sherlock/internal/utils"
)

// snapshotWriteTimeout bounds one websocket frame write.
const snapshotWriteTimeout = 5 * time.Second

// SnapshotSource is implemented by monitoring.Aggregator.
type SnapshotSource interface {
	Snapshot() monitoring.Snapshot
	Watch() (<-chan monitoring.Snapshot, func())
}

// AdminServer exposes health, stats, and live snapshots.
type AdminServer struct {
	metrics   *monitoring.MetricsCollector
	snapshots SnapshotSource
	server    *http.Server
	listener  net.Listener
}

// NewAdminServer creates the admin server for addr. snapshots may be nil.
func NewAdminServer(addr string, metrics *monitoring.MetricsCollector, snapshots SnapshotSource) *AdminServer {
	a := &AdminServer{metrics: metrics, snapshots: snapshots}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/stats", a.handleStats)
	mux.HandleFunc("/ws", a.handleSnapshots)

	a.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          newServerErrorLog(),
	}
	return a
}

// Handler returns the HTTP handler for testing purposes.
func (a *AdminServer) Handler() http.Handler {
	return a.server.Handler
}

// Listen binds the admin address.
func (a *AdminServer) Listen() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind admin %s: %w", a.server.Addr, err)
	}
	a.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (a *AdminServer) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.server.Addr
}

// Serve accepts connections until Shutdown.
func (a *AdminServer) Serve() error {
	if a.listener == nil {
		if err := a.Listen(); err != nil {
			return err
		}
	}
	log.Info().Str("addr", a.Addr()).Msg("admin server listening")
	if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the admin server. Open websocket streams end with their
// request contexts.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// handleHealth returns liveness.
func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStats returns counters and the aggregate snapshot as JSON.
// Restricted to localhost to prevent external access to captured prompts.
func (a *AdminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	resp := a.metrics.FullStats()
	if a.snapshots != nil {
		snap := a.snapshots.Snapshot()
		resp.Aggregate = &snap
	}

	// Prompts routinely contain markup; keep them readable.
	body, err := utils.MarshalNoEscape(resp)
	if err != nil {
		http.Error(w, "failed to encode stats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

// handleSnapshots upgrades to a websocket and pushes every new snapshot.
// Slow readers skip intermediate snapshots.
func (a *AdminServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if a.snapshots == nil {
		http.Error(w, "snapshots unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket accept failed")
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ctx := conn.CloseRead(r.Context())
	updates, cancel := a.snapshots.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			writeCtx, cancelWrite := context.WithTimeout(ctx, snapshotWriteTimeout)
			err := wsjson.Write(writeCtx, conn, snap)
			cancelWrite()
			if err != nil {
				log.Debug().Err(err).Msg("websocket client gone")
				return
			}
		}
	}
}

// isLoopback reports whether a RemoteAddr is a loopback address.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
