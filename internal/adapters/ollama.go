package adapters

import "github.com/tidwall/gjson"

// OllamaAdapter handles Ollama API format requests.
// /api/chat uses the OpenAI Chat Completions shape (messages[]), so this
// adapter embeds OpenAIAdapter. /api/generate sends a single "prompt" with an
// optional "system", which is mapped onto system + user messages.
type OllamaAdapter struct {
	BaseAdapter
	*OpenAIAdapter
}

// NewOllamaAdapter creates a new Ollama adapter.
func NewOllamaAdapter() *OllamaAdapter {
	return &OllamaAdapter{
		BaseAdapter: BaseAdapter{
			name:   "ollama",
			format: FormatOllama,
		},
		OpenAIAdapter: NewOpenAIAdapter(),
	}
}

// Name returns the adapter name (overrides embedded OpenAIAdapter.Name).
func (a *OllamaAdapter) Name() string {
	return a.BaseAdapter.Name()
}

// Format returns the body schema (overrides embedded OpenAIAdapter.Format).
func (a *OllamaAdapter) Format() Format {
	return a.BaseAdapter.Format()
}

// Extract delegates chat bodies to the OpenAI adapter and maps generate bodies.
func (a *OllamaAdapter) Extract(body gjson.Result) Extraction {
	prompt := body.Get("prompt")
	if body.Get("messages").IsArray() || prompt.Type != gjson.String {
		return a.OpenAIAdapter.Extract(body)
	}

	out := Extraction{Model: stringField(body, "model", UnknownModel)}
	var text textBuilder
	if system := stringField(body, "system", ""); system != "" {
		out.Messages = append(out.Messages, Message{Role: "system", Content: system})
		text.add(system)
	}
	out.Messages = append(out.Messages, Message{Role: "user", Content: prompt.Str})
	text.add(prompt.Str)
	out.Text = text.String()
	return out
}

var _ Adapter = (*OllamaAdapter)(nil)
