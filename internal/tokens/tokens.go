// Package tokens provides token counting using tiktoken-go.
//
// DESIGN: One Counter is built during startup and shared by every request
// handler. Construction loads the BPE ranks and may fail; callers treat that
// as fatal. Count itself never fails.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding used by Claude- and GPT-4-era tokenizers.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens with a fixed encoding. Safe for concurrent use.
type Counter struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// New loads the named encoding. An empty name selects DefaultEncoding.
func New(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encoding, err)
	}
	return &Counter{enc: enc, encoding: encoding}, nil
}

// Count returns the number of tokens in text. Special tokens are treated as
// ordinary text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.EncodeOrdinary(text))
}

// Encoding returns the encoding name.
func (c *Counter) Encoding() string {
	return c.encoding
}
