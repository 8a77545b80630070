package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/sjson"

	"github.com/compresr/sherlock/internal/monitoring"
)

// JSONLFileName is the append-only log inside the archive directory.
const JSONLFileName = "requests.jsonl"

// JSONLSink appends one JSON object per request to a single file.
// Each record carries a ULID so lines sort by capture time.
type JSONLSink struct {
	file *os.File
}

func NewJSONLSink(dir string) (*JSONLSink, error) {
	path := filepath.Join(dir, JSONLFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &JSONLSink{file: f}, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Write(_ context.Context, ev *monitoring.RequestEvent) error {
	line, err := jsonlRecord(ev)
	if err != nil {
		return err
	}
	_, err = s.file.Write(append(line, '\n'))
	return err
}

func (s *JSONLSink) Close() error { return s.file.Close() }

func jsonlRecord(ev *monitoring.RequestEvent) ([]byte, error) {
	id := ulid.MustNew(ulid.Timestamp(ev.Timestamp), ulid.DefaultEntropy())

	rec := []byte(`{}`)
	var err error
	set := func(path string, value interface{}) {
		if err == nil {
			rec, err = sjson.SetBytes(rec, path, value)
		}
	}
	set("id", id.String())
	set("request_id", ev.RequestID)
	set("timestamp", ev.Timestamp.Format(time.RFC3339Nano))
	set("provider", ev.Provider)
	set("model", ev.Model)
	set("tokens", ev.Tokens)
	set("path", ev.Path)
	set("messages", ev.Messages)
	if err == nil && len(ev.RawBody) > 0 {
		// One record per line: the body must not keep its own newlines.
		var compact bytes.Buffer
		if json.Compact(&compact, ev.RawBody) == nil {
			rec, err = sjson.SetRawBytes(rec, "body", compact.Bytes())
		} else {
			set("body", string(ev.RawBody))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build jsonl record: %w", err)
	}
	return rec, nil
}
