package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/compresr/sherlock/internal/monitoring"
	"github.com/compresr/sherlock/internal/utils"
)

var markdownPool bytebufferpool.Pool

// MarkdownSink writes one readable transcript per request.
type MarkdownSink struct {
	dir string
}

func NewMarkdownSink(dir string) *MarkdownSink { return &MarkdownSink{dir: dir} }

func (s *MarkdownSink) Name() string { return "markdown" }

func (s *MarkdownSink) Write(_ context.Context, ev *monitoring.RequestEvent) error {
	buf := markdownPool.Get()
	defer markdownPool.Put(buf)

	FormatMarkdown(buf, ev)
	return writeFile(filepath.Join(s.dir, baseName(ev)+".md"), buf.B)
}

func (s *MarkdownSink) Close() error { return nil }

// FormatMarkdown renders ev as a markdown transcript.
func FormatMarkdown(buf *bytebufferpool.ByteBuffer, ev *monitoring.RequestEvent) {
	_, _ = buf.WriteString("# " + utils.Capitalize(ev.Provider) + " Request\n\n")
	_, _ = buf.WriteString("- **Timestamp:** " + ev.Timestamp.Format(time.RFC3339Nano) + "\n")
	_, _ = buf.WriteString("- **Model:** " + ev.Model + "\n")
	_, _ = buf.WriteString("- **Tokens:** " + strconv.Itoa(ev.Tokens) + "\n")
	_, _ = buf.WriteString("- **Path:** " + ev.Path + "\n\n")

	_, _ = buf.WriteString("## Messages\n\n")
	for _, msg := range ev.Messages {
		_, _ = buf.WriteString("### " + utils.Capitalize(msg.Role) + "\n\n")
		_, _ = buf.WriteString(msg.Content)
		_, _ = buf.WriteString("\n\n")
	}
}

// JSONSink writes the raw request body, pretty-printed.
type JSONSink struct {
	dir string
}

func NewJSONSink(dir string) *JSONSink { return &JSONSink{dir: dir} }

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(_ context.Context, ev *monitoring.RequestEvent) error {
	var out bytes.Buffer
	if err := json.Indent(&out, ev.RawBody, "", "  "); err != nil {
		return fmt.Errorf("failed to format request body: %w", err)
	}
	return writeFile(filepath.Join(s.dir, baseName(ev)+".json"), out.Bytes())
}

func (s *JSONSink) Close() error { return nil }

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
