// Package archive persists captured requests.
//
// DESIGN: The Writer is the only consumer of the pipeline's archive queue.
// It ranges over the queue until the aggregator closes it, so every event
// that reached the aggregator is offered to every sink before shutdown
// completes. Sink failures are logged and counted, never fatal.
//
// Sinks (selected by archive.formats):
//   - markdown: one human-readable .md file per request
//   - json:     one pretty-printed copy of the raw body per request
//   - jsonl:    one line per request appended to requests.jsonl
//   - sqlite:   requests and messages tables
//   - redis:    XADD to a capped stream
package archive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/monitoring"
)

// sinkWriteTimeout bounds a single sink write.
const sinkWriteTimeout = 5 * time.Second

// Sink stores one event.
type Sink interface {
	Name() string
	Write(ctx context.Context, ev *monitoring.RequestEvent) error
	Close() error
}

// Writer fans archive events out to the configured sinks.
type Writer struct {
	enabled bool
	sinks   []Sink
	metrics *monitoring.MetricsCollector
}

// NewWriter builds the sinks named in cfg.Formats. A sink that cannot be
// opened is logged and skipped; unknown formats are logged and ignored.
// metrics may be nil.
func NewWriter(cfg config.ArchiveConfig, metrics *monitoring.MetricsCollector) (*Writer, error) {
	w := &Writer{enabled: cfg.Enabled, metrics: metrics}
	if !cfg.Enabled {
		log.Info().Msg("prompt archiving disabled")
		return w, nil
	}

	dir := config.ExpandTilde(cfg.Directory)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory %s: %w", dir, err)
	}

	for _, format := range cfg.Formats {
		sink, err := openSink(strings.ToLower(strings.TrimSpace(format)), dir, cfg)
		if err != nil {
			log.Error().Err(err).Str("format", format).Msg("archive sink unavailable")
			continue
		}
		if sink == nil {
			log.Warn().Str("format", format).Msg("unknown archive format")
			continue
		}
		w.sinks = append(w.sinks, sink)
	}

	log.Info().Str("directory", dir).Strs("sinks", w.SinkNames()).Msg("archiving prompts")
	return w, nil
}

func openSink(format, dir string, cfg config.ArchiveConfig) (Sink, error) {
	switch format {
	case "markdown", "md":
		return NewMarkdownSink(dir), nil
	case "json":
		return NewJSONSink(dir), nil
	case "jsonl":
		return NewJSONLSink(dir)
	case "sqlite":
		return NewSQLiteSink(config.ExpandTilde(cfg.SQLitePath))
	case "redis":
		return NewRedisSink(cfg.Redis)
	default:
		return nil, nil
	}
}

// SinkNames lists the active sinks.
func (w *Writer) SinkNames() []string {
	names := make([]string, 0, len(w.sinks))
	for _, s := range w.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Run consumes events until the channel is closed, then closes every sink.
// When archiving is disabled events are drained and discarded.
func (w *Writer) Run(events <-chan *monitoring.RequestEvent) error {
	defer w.close()

	if !w.enabled {
		for range events {
		}
		return nil
	}

	for ev := range events {
		w.write(ev)
	}
	return nil
}

func (w *Writer) write(ev *monitoring.RequestEvent) {
	for _, sink := range w.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
		err := sink.Write(ctx, ev)
		cancel()

		if w.metrics != nil {
			w.metrics.RecordArchived(err)
		}
		if err != nil {
			log.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("request_id", ev.RequestID).
				Msg("failed to archive request")
			continue
		}
		log.Debug().Str("sink", sink.Name()).Str("request_id", ev.RequestID).Msg("archived request")
	}
}

func (w *Writer) close() {
	for _, sink := range w.sinks {
		if err := sink.Close(); err != nil {
			log.Warn().Err(err).Str("sink", sink.Name()).Msg("failed to close archive sink")
		}
	}
}

// baseName is the per-request file stem, e.g. 20260314_092653.123_anthropic.
func baseName(ev *monitoring.RequestEvent) string {
	return ev.Timestamp.UTC().Format("20060102_150405.000") + "_" + ev.Provider
}
