// Package monitoring - pipeline.go moves events off the request path.
//
// DESIGN: Two bounded queues with a single hop between them:
//   - events:  request handlers -> aggregator. Publish never blocks; a full
//     queue drops the event and counts it.
//   - archive: aggregator -> archive writer. The aggregator blocks on it, so
//     back-pressure from a slow sink stops at the aggregator.
//
// The aggregator is the only sender on archive and closes it when it exits.
package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Pipeline owns both event queues.
type Pipeline struct {
	events  chan *RequestEvent
	archive chan *RequestEvent
	metrics *MetricsCollector
}

// NewPipeline creates the queues. metrics may be nil.
func NewPipeline(eventQueueSize, archiveQueueSize int, metrics *MetricsCollector) *Pipeline {
	return &Pipeline{
		events:  make(chan *RequestEvent, eventQueueSize),
		archive: make(chan *RequestEvent, archiveQueueSize),
		metrics: metrics,
	}
}

// Publish hands an event to the aggregator without blocking.
// Returns false when the queue is full and the event was dropped.
func (p *Pipeline) Publish(ev *RequestEvent) bool {
	select {
	case p.events <- ev:
		if p.metrics != nil {
			p.metrics.RecordPublished()
		}
		return true
	default:
		if p.metrics != nil {
			p.metrics.RecordDropped()
		}
		log.Warn().
			Str("request_id", ev.RequestID).
			Str("provider", ev.Provider).
			Int("queue_cap", cap(p.events)).
			Msg("event queue full, dropping event")
		return false
	}
}

// Archive is the receive end consumed by the archive writer.
func (p *Pipeline) Archive() <-chan *RequestEvent {
	return p.archive
}

// Pending returns the number of events waiting in each queue.
func (p *Pipeline) Pending() (events, archive int) {
	return len(p.events), len(p.archive)
}
