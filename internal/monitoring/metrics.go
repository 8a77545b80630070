// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests:         Every request that reached the proxy handler
//   - forwarded:        Requests relayed upstream with a response
//   - routing_misses:   No provider pattern matched (400)
//   - upstream_errors:  Transport or read failure talking upstream (502)
//   - parse_failures:   Body could not be normalized (forwarded anyway)
//   - events:           Published to / dropped from the event queue
//   - archive:          Sink writes and sink failures
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Request counters
	requests       atomic.Int64
	forwarded      atomic.Int64
	routingMisses  atomic.Int64
	upstreamErrors atomic.Int64
	parseFailures  atomic.Int64

	// Pipeline counters
	published atomic.Int64
	dropped   atomic.Int64

	// Archive counters
	archived      atomic.Int64
	archiveErrors atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordRequest records an inbound request.
func (mc *MetricsCollector) RecordRequest() { mc.requests.Add(1) }

// RecordForwarded records a response relayed from upstream.
func (mc *MetricsCollector) RecordForwarded() { mc.forwarded.Add(1) }

// RecordRoutingMiss records a request no provider matched.
func (mc *MetricsCollector) RecordRoutingMiss() { mc.routingMisses.Add(1) }

// RecordUpstreamError records a failed upstream exchange.
func (mc *MetricsCollector) RecordUpstreamError() { mc.upstreamErrors.Add(1) }

// RecordParseFailure records a body that could not be normalized.
func (mc *MetricsCollector) RecordParseFailure() { mc.parseFailures.Add(1) }

// RecordPublished records an event accepted by the queue.
func (mc *MetricsCollector) RecordPublished() { mc.published.Add(1) }

// RecordDropped records an event dropped on a full queue.
func (mc *MetricsCollector) RecordDropped() { mc.dropped.Add(1) }

// RecordArchived records one sink write; failed writes count as errors.
func (mc *MetricsCollector) RecordArchived(err error) {
	if err != nil {
		mc.archiveErrors.Add(1)
		return
	}
	mc.archived.Add(1)
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// Stats returns current metrics as a flat map.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":         mc.requests.Load(),
		"forwarded":        mc.forwarded.Load(),
		"routing_misses":   mc.routingMisses.Load(),
		"upstream_errors":  mc.upstreamErrors.Load(),
		"parse_failures":   mc.parseFailures.Load(),
		"events_published": mc.published.Load(),
		"events_dropped":   mc.dropped.Load(),
		"archived":         mc.archived.Load(),
		"archive_errors":   mc.archiveErrors.Load(),
	}
}

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:          mc.requests.Load(),
			Forwarded:      mc.forwarded.Load(),
			RoutingMisses:  mc.routingMisses.Load(),
			UpstreamErrors: mc.upstreamErrors.Load(),
			ParseFailures:  mc.parseFailures.Load(),
		},
		Events: EventStats{
			Published: mc.published.Load(),
			Dropped:   mc.dropped.Load(),
		},
		Archive: ArchiveStats{
			Written: mc.archived.Load(),
			Errors:  mc.archiveErrors.Load(),
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartedAt     string       `json:"started_at"`
	Requests      RequestStats `json:"requests"`
	Events        EventStats   `json:"events"`
	Archive       ArchiveStats `json:"archive"`
	Aggregate     *Snapshot    `json:"aggregate,omitempty"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total          int64 `json:"total"`
	Forwarded      int64 `json:"forwarded"`
	RoutingMisses  int64 `json:"routing_misses"`
	UpstreamErrors int64 `json:"upstream_errors"`
	ParseFailures  int64 `json:"parse_failures"`
}

// EventStats holds event queue metrics.
type EventStats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}

// ArchiveStats holds persistence metrics.
type ArchiveStats struct {
	Written int64 `json:"written"`
	Errors  int64 `json:"errors"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
