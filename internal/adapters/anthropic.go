package adapters

import "github.com/tidwall/gjson"

// AnthropicAdapter handles Messages API request bodies.
// Format: {"model": "...", "system": ..., "messages": [{"role": "...", "content": ...}]}
// "system" may be a string or an array of text blocks.
type AnthropicAdapter struct {
	BaseAdapter
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{
		BaseAdapter: BaseAdapter{
			name:   "anthropic",
			format: FormatAnthropic,
		},
	}
}

// Extract reads model, the top-level system prompt, and messages[].
func (a *AnthropicAdapter) Extract(body gjson.Result) Extraction {
	out := Extraction{Model: stringField(body, "model", UnknownModel)}
	var text textBuilder

	if system := ExtractText(body.Get("system")); system != "" {
		out.Messages = append(out.Messages, Message{Role: "system", Content: system})
		text.add(system)
	}

	out.Messages = appendChatMessages(out.Messages, body.Get("messages"), &text)
	out.Text = text.String()
	return out
}

var _ Adapter = (*AnthropicAdapter)(nil)
