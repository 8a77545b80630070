// Package monitoring - aggregator.go folds events into running totals.
//
// DESIGN: A single goroutine (Run) owns all mutable state. Readers never
// touch it; after each event Run publishes a fresh Snapshot through an
// atomic pointer and a conflated per-watcher channel, so a slow dashboard
// only ever misses intermediate frames.
package monitoring

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/sherlock/internal/costcontrol"
)

// Aggregator keeps cumulative token totals and the most recent requests.
type Aggregator struct {
	pipeline *Pipeline
	capacity int

	// Owned by Run.
	totalTokens uint64
	requests    uint64
	costUSD     float64
	recent      []RequestSummary
	lastPrompt  string
	lastProv    string

	snapshot atomic.Pointer[Snapshot]

	watchersMu sync.Mutex
	watchers   map[chan Snapshot]struct{}
}

// NewAggregator creates an aggregator consuming p. capacity bounds the
// recent-requests ring.
func NewAggregator(p *Pipeline, capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = 1
	}
	a := &Aggregator{
		pipeline: p,
		capacity: capacity,
		recent:   make([]RequestSummary, 0, capacity),
		watchers: make(map[chan Snapshot]struct{}),
	}
	a.snapshot.Store(&Snapshot{UpdatedAt: time.Now()})
	return a
}

// Run consumes events until ctx is cancelled, then drains what is already
// queued and closes the archive queue. Every event is forwarded to the
// archive queue with a blocking send, so that queue must have a consumer.
func (a *Aggregator) Run(ctx context.Context) error {
	defer close(a.pipeline.archive)

	for {
		select {
		case ev := <-a.pipeline.events:
			a.apply(ev)
			select {
			case a.pipeline.archive <- ev:
			case <-ctx.Done():
				a.pipeline.archive <- ev
				a.drain()
				return nil
			}
		case <-ctx.Done():
			a.drain()
			return nil
		}
	}
}

// drain applies and forwards events already buffered at shutdown.
func (a *Aggregator) drain() {
	n := 0
	for {
		select {
		case ev := <-a.pipeline.events:
			a.apply(ev)
			a.pipeline.archive <- ev
			n++
		default:
			if n > 0 {
				log.Debug().Int("events", n).Msg("aggregator drained queued events")
			}
			return
		}
	}
}

// apply folds one event into state and publishes a snapshot.
func (a *Aggregator) apply(ev *RequestEvent) {
	a.totalTokens = saturatingAdd(a.totalTokens, ev.Tokens)
	a.requests++
	a.costUSD += costcontrol.EstimateInputCost(ev.Model, ev.Tokens)

	// Insert at front, evict from back.
	a.recent = append(a.recent, RequestSummary{})
	copy(a.recent[1:], a.recent)
	a.recent[0] = ev.Summary()
	if len(a.recent) > a.capacity {
		a.recent = a.recent[:a.capacity]
	}

	if prompt, ok := ev.LastUserMessage(); ok {
		a.lastPrompt = prompt
	}
	a.lastProv = ev.Provider

	a.publish()
}

func (a *Aggregator) publish() {
	snap := Snapshot{
		TotalTokens:      a.totalTokens,
		Requests:         a.requests,
		EstimatedCostUSD: a.costUSD,
		Recent:           append([]RequestSummary(nil), a.recent...),
		LastPrompt:       a.lastPrompt,
		LastProvider:     a.lastProv,
		UpdatedAt:        time.Now(),
	}
	a.snapshot.Store(&snap)

	a.watchersMu.Lock()
	defer a.watchersMu.Unlock()
	for ch := range a.watchers {
		// Conflate: replace any unread snapshot with the newest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Snapshot returns a copy of the latest published state.
func (a *Aggregator) Snapshot() Snapshot {
	snap := *a.snapshot.Load()
	snap.Recent = append([]RequestSummary(nil), snap.Recent...)
	return snap
}

// Watch returns a channel that always holds the newest snapshot not yet read,
// and a cancel func that unregisters it.
func (a *Aggregator) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	ch <- a.Snapshot()

	a.watchersMu.Lock()
	a.watchers[ch] = struct{}{}
	a.watchersMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.watchersMu.Lock()
			delete(a.watchers, ch)
			a.watchersMu.Unlock()
		})
	}
}

func saturatingAdd(total uint64, n int) uint64 {
	if n <= 0 {
		return total
	}
	if total > math.MaxUint64-uint64(n) {
		return math.MaxUint64
	}
	return total + uint64(n)
}
