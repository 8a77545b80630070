package adapters

import "github.com/tidwall/gjson"

// OpenAIAdapter handles Chat Completions request bodies.
// Format: {"model": "...", "messages": [{"role": "...", "content": ...}]}
type OpenAIAdapter struct {
	BaseAdapter
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{
		BaseAdapter: BaseAdapter{
			name:   "openai",
			format: FormatOpenAI,
		},
	}
}

// Extract reads model and messages[]. System prompts are ordinary messages here.
func (a *OpenAIAdapter) Extract(body gjson.Result) Extraction {
	out := Extraction{Model: stringField(body, "model", UnknownModel)}
	var text textBuilder
	out.Messages = appendChatMessages(out.Messages, body.Get("messages"), &text)
	out.Text = text.String()
	return out
}

// appendChatMessages walks a messages[] array shared by the chat-style schemas.
// Each element becomes one message; missing roles are "unknown".
func appendChatMessages(dst []Message, messages gjson.Result, text *textBuilder) []Message {
	if !messages.IsArray() {
		return dst
	}
	messages.ForEach(func(_, msg gjson.Result) bool {
		role, content := "unknown", ""
		if msg.IsObject() {
			role = stringField(msg, "role", "unknown")
			content = ExtractText(msg.Get("content"))
		}
		text.add(content)
		dst = append(dst, Message{Role: role, Content: content})
		return true
	})
	return dst
}

var _ Adapter = (*OpenAIAdapter)(nil)
