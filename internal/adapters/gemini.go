package adapters

import (
	"strings"

	"github.com/tidwall/gjson"
)

// GeminiAdapter handles generateContent request bodies.
// Format: {"systemInstruction": {...}, "contents": [{"role": "...", "parts": [{"text": "..."}]}]}
// The model usually lives in the URL, so the body default is "gemini".
type GeminiAdapter struct {
	BaseAdapter
}

// NewGeminiAdapter creates a new Gemini adapter.
func NewGeminiAdapter() *GeminiAdapter {
	return &GeminiAdapter{
		BaseAdapter: BaseAdapter{
			name:   "gemini",
			format: FormatGemini,
		},
	}
}

// Extract reads systemInstruction and contents[].
func (a *GeminiAdapter) Extract(body gjson.Result) Extraction {
	out := Extraction{Model: stringField(body, "model", GeminiModel)}
	var text textBuilder

	if system := ExtractText(body.Get("systemInstruction")); system != "" {
		out.Messages = append(out.Messages, Message{Role: "system", Content: system})
		text.add(system)
	}

	contents := body.Get("contents")
	if contents.IsArray() {
		contents.ForEach(func(_, content gjson.Result) bool {
			role := "user"
			if content.IsObject() {
				role = stringField(content, "role", "user")
			}
			msgText := geminiContentText(content)
			text.add(msgText)
			out.Messages = append(out.Messages, Message{Role: role, Content: msgText})
			return true
		})
	}

	out.Text = text.String()
	return out
}

// geminiContentText joins the string "text" of every part. Without a parts[]
// array the whole element goes through the generic extractor.
func geminiContentText(content gjson.Result) string {
	var parts gjson.Result
	if content.IsObject() {
		parts = content.Get("parts")
	}
	if !parts.IsArray() {
		return ExtractText(content)
	}

	var texts []string
	parts.ForEach(func(_, part gjson.Result) bool {
		if !part.IsObject() {
			return true
		}
		if t := part.Get("text"); t.Type == gjson.String {
			texts = append(texts, t.Str)
		}
		return true
	})
	return strings.Join(texts, "\n")
}

var _ Adapter = (*GeminiAdapter)(nil)
