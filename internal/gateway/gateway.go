// Package gateway implements the transparent inspection proxy.
//
// DESIGN: Every request is relayed unmodified apart from header hygiene:
//  1. Route the path to a configured provider (no match = 400)
//  2. Buffer the body
//  3. Normalize it and publish an event (best effort, never blocks)
//  4. Replay the request against provider.base_url + path + query
//  5. Relay status, headers, and body (transport failure = 502)
//
// FILES: gateway.go (init), handler.go (HTTP), router.go (routing),
// headers.go (hop-by-hop filtering), admin.go (loopback admin server)
package gateway

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/sherlock/internal/adapters"
	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/monitoring"
)

const (
	HeaderRequestID   = "X-Request-ID"
	DefaultBufferSize = 4096
)

// Gateway is the inspection proxy.
type Gateway struct {
	config     *config.Config
	router     *Router
	normalizer *adapters.Normalizer
	pipeline   *monitoring.Pipeline
	metrics    *monitoring.MetricsCollector
	httpClient *http.Client
	server     *http.Server
	listener   net.Listener
}

// New creates a gateway. The normalizer carries the shared token counter,
// built once at startup. metrics may be nil.
func New(cfg *config.Config, normalizer *adapters.Normalizer, pipeline *monitoring.Pipeline, metrics *monitoring.MetricsCollector) *Gateway {
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}

	// UpstreamTimeout bounds the whole exchange; 0 disables it.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DefaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   config.DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: cfg.Proxy.UpstreamTimeout,
	}

	g := &Gateway{
		config:     cfg,
		router:     NewRouter(cfg.Providers),
		normalizer: normalizer,
		pipeline:   pipeline,
		metrics:    metrics,
		httpClient: &http.Client{
			Timeout:   cfg.Proxy.UpstreamTimeout,
			Transport: transport,
			// Redirects are relayed to the client, not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	// No ServeMux: it would clean and redirect paths before routing.
	g.server = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           g.panicRecovery(http.HandlerFunc(g.handleProxy)),
		ReadHeaderTimeout: cfg.Proxy.ReadHeaderTimeout,
		WriteTimeout:      config.DefaultServerWriteTimeout,
		IdleTimeout:       config.DefaultIdleTimeout,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          newServerErrorLog(),
	}

	return g
}

// Listen binds the configured address. Bind failure is the caller's fatal error.
func (g *Gateway) Listen() error {
	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", g.server.Addr, err)
	}
	g.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (g *Gateway) Addr() string {
	if g.listener != nil {
		return g.listener.Addr().String()
	}
	return g.server.Addr
}

// Serve accepts connections until Shutdown. Returns nil on graceful shutdown.
func (g *Gateway) Serve() error {
	if g.listener == nil {
		if err := g.Listen(); err != nil {
			return err
		}
	}
	log.Info().
		Str("addr", g.Addr()).
		Strs("providers", g.config.Providers.Names()).
		Dur("upstream_timeout", g.config.Proxy.UpstreamTimeout).
		Msg("proxy listening")
	if err := g.server.Serve(g.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the HTTP handler for testing purposes.
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

// Metrics returns the collector shared with the admin server.
func (g *Gateway) Metrics() *monitoring.MetricsCollector {
	return g.metrics
}

// Shutdown stops accepting connections and waits for in-flight requests.
// No Publish can happen after it returns.
func (g *Gateway) Shutdown(ctx context.Context) error {
	log.Info().Msg("proxy shutting down")
	err := g.server.Shutdown(ctx)
	g.httpClient.CloseIdleConnections()
	return err
}

// panicRecovery turns a handler panic into a 500 so one request cannot take
// the process down.
func (g *Gateway) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("panic recovered in proxy handler")
				g.writeError(w, "internal proxy error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// serverErrorWriter routes net/http's internal logger into zerolog.
type serverErrorWriter struct{}

func (serverErrorWriter) Write(p []byte) (int, error) {
	log.Debug().Str("source", "net/http").Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func newServerErrorLog() *stdlog.Logger {
	return stdlog.New(serverErrorWriter{}, "", 0)
}
