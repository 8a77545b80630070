// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by gateway/, archive/, and tui/.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - RequestEvent:   One intercepted request, immutable once published
//   - RequestSummary: The row shown in the recent-requests log
//   - Snapshot:       Read-only copy of aggregator state for presentation
package monitoring

import (
	"encoding/json"
	"time"

	"github.com/compresr/sherlock/internal/adapters"
	"github.com/compresr/sherlock/internal/utils"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// RequestEvent captures one intercepted request. It is built right after the
// body is read and never mutated after Publish.
type RequestEvent struct {
	RequestID string             `json:"request_id"`
	Timestamp time.Time          `json:"timestamp"`
	Provider  string             `json:"provider"`
	Model     string             `json:"model"`
	Tokens    int                `json:"tokens"`
	Messages  []adapters.Message `json:"messages"`
	RawBody   json.RawMessage    `json:"raw_body"`
	Path      string             `json:"path"`
}

// LastUserMessage returns the content of the last "user" message, if any.
func (e *RequestEvent) LastUserMessage() (string, bool) {
	for i := len(e.Messages) - 1; i >= 0; i-- {
		if e.Messages[i].Role == "user" {
			return e.Messages[i].Content, true
		}
	}
	return "", false
}

// Summary converts an event into a log row.
func (e *RequestEvent) Summary() RequestSummary {
	return RequestSummary{
		Time:     e.Timestamp.Format("15:04:05"),
		Provider: utils.Capitalize(e.Provider),
		Model:    e.Model,
		Tokens:   e.Tokens,
	}
}

// RequestSummary is the compact form kept in the recent-requests ring.
type RequestSummary struct {
	Time     string `json:"time"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Tokens   int    `json:"tokens"`
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable copy of aggregator state. Recent is newest first.
type Snapshot struct {
	TotalTokens      uint64           `json:"total_tokens"`
	Requests         uint64           `json:"requests"`
	EstimatedCostUSD float64          `json:"estimated_cost_usd"`
	Recent           []RequestSummary `json:"recent"`
	LastPrompt       string           `json:"last_prompt,omitempty"`
	LastProvider     string           `json:"last_provider,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
