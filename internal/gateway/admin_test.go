package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/sherlock/internal/monitoring"
)

func newTestAdmin(t *testing.T) (*AdminServer, *monitoring.Pipeline, *monitoring.Aggregator) {
	t.Helper()
	metrics := monitoring.NewMetricsCollector()
	pipeline := monitoring.NewPipeline(8, 8, metrics)
	agg := monitoring.NewAggregator(pipeline, 10)
	return NewAdminServer("127.0.0.1:0", metrics, agg), pipeline, agg
}

func localRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:52100"
	return req
}

func TestAdmin_Health(t *testing.T) {
	admin, _, _ := newTestAdmin(t)

	w := httptest.NewRecorder()
	admin.Handler().ServeHTTP(w, localRequest(http.MethodGet, "/health"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAdmin_StatsIncludesSnapshot(t *testing.T) {
	admin, _, _ := newTestAdmin(t)
	admin.metrics.RecordRequest()

	w := httptest.NewRecorder()
	admin.Handler().ServeHTTP(w, localRequest(http.MethodGet, "/stats"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	var stats monitoring.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Requests.Total)
	require.NotNil(t, stats.Aggregate)
	assert.Equal(t, uint64(0), stats.Aggregate.TotalTokens)
}

func TestAdmin_StatsRejectsRemoteClients(t *testing.T) {
	admin, _, _ := newTestAdmin(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	w := httptest.NewRecorder()
	admin.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdmin_StatsMethodNotAllowed(t *testing.T) {
	admin, _, _ := newTestAdmin(t)

	w := httptest.NewRecorder()
	admin.Handler().ServeHTTP(w, localRequest(http.MethodPost, "/stats"))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAdmin_WebsocketStreamsSnapshots(t *testing.T) {
	admin, pipeline, agg := newTestAdmin(t)
	srv := httptest.NewServer(admin.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	var first monitoring.Snapshot
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, uint64(0), first.Requests)

	runCtx, stopRun := context.WithCancel(context.Background())
	go func() {
		for range pipeline.Archive() {
		}
	}()
	go func() { _ = agg.Run(runCtx) }()
	defer stopRun()

	pipeline.Publish(&monitoring.RequestEvent{Provider: "openai", Model: "gpt-4o", Tokens: 12, Timestamp: time.Now()})

	var next monitoring.Snapshot
	require.NoError(t, wsjson.Read(ctx, conn, &next))
	assert.Equal(t, uint64(1), next.Requests)
	assert.Equal(t, uint64(12), next.TotalTokens)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:8080"))
	assert.True(t, isLoopback("[::1]:8080"))
	assert.False(t, isLoopback("10.0.0.1:8080"))
	assert.False(t, isLoopback("garbage"))
}
