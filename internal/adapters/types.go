// Package adapters types - unified types for provider-specific request parsing.
//
// DESIGN: Each adapter reads one vendor's request schema and returns the
// model, the ordered conversation, and the text blob that tokens are counted
// over. The Normalizer owns the shared token counter and picks the adapter.
//
// All types needed by adapters, the gateway, and monitoring are defined here.
package adapters

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a request body is not a JSON document.
var ErrInvalidJSON = errors.New("request body is not valid JSON")

// =============================================================================
// PROVIDER FORMATS
// =============================================================================

// Format identifies a request body schema.
type Format string

const (
	FormatAnthropic Format = "anthropic"
	FormatOpenAI    Format = "openai"
	FormatGemini    Format = "gemini"
	FormatOllama    Format = "ollama"
	FormatGeneric   Format = "generic"
)

// String returns the format name.
func (f Format) String() string {
	return string(f)
}

// FormatFromString converts a config string to a Format.
// Unrecognised names map to FormatGeneric.
func FormatFromString(s string) Format {
	switch strings.ToLower(s) {
	case "anthropic":
		return FormatAnthropic
	case "openai":
		return FormatOpenAI
	case "gemini":
		return FormatGemini
	case "ollama":
		return FormatOllama
	default:
		return FormatGeneric
	}
}

// =============================================================================
// NORMALIZED CONVERSATION
// =============================================================================

// Sentinel model names used when a body does not carry one.
const (
	UnknownModel = "unknown"
	GeminiModel  = "gemini"
)

// Message is one normalized conversation turn.
// Role is free-form; system prompts appear as a leading "system" message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Extraction is what an adapter pulls out of a body before counting.
type Extraction struct {
	Model    string
	Messages []Message
	Text     string // newline-joined content, used only for counting
}

// Result is the normalized view of one request.
type Result struct {
	Model    string
	Messages []Message
	Tokens   int
}

// =============================================================================
// INTERFACES
// =============================================================================

// Adapter parses one vendor's request schema.
type Adapter interface {
	Name() string
	Format() Format
	Extract(body gjson.Result) Extraction
}

// TokenCounter counts tokens in a text blob.
type TokenCounter interface {
	Count(text string) int
}

// BaseAdapter carries the identity shared by all adapters.
type BaseAdapter struct {
	name   string
	format Format
}

// Name returns the adapter name.
func (b BaseAdapter) Name() string { return b.name }

// Format returns the body schema this adapter reads.
func (b BaseAdapter) Format() Format { return b.format }

// textBuilder accumulates the counting blob: each non-empty piece followed by "\n".
type textBuilder struct {
	sb strings.Builder
}

func (t *textBuilder) add(s string) {
	if s == "" {
		return
	}
	t.sb.WriteString(s)
	t.sb.WriteByte('\n')
}

func (t *textBuilder) String() string { return t.sb.String() }

// stringField returns a string field of obj, or def when absent or not a string.
func stringField(obj gjson.Result, key, def string) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return def
	}
	return v.Str
}
