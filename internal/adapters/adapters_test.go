package adapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// wordCounter counts whitespace-separated words and remembers the last blob.
type wordCounter struct {
	last string
}

func (c *wordCounter) Count(text string) int {
	c.last = text
	return len(strings.Fields(text))
}

// =============================================================================
// TEXT EXTRACTOR
// =============================================================================

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected string
	}{
		{"string is identity", `"hello world"`, "hello world"},
		{"empty string", `""`, ""},
		{"number", `42`, ""},
		{"bool", `true`, ""},
		{"null", `null`, ""},
		{"array drops empties", `["a", "", 1, null, "b"]`, "a\nb"},
		{"text short-circuits", `{"text": "X", "content": "Y", "other": "Z"}`, "X"},
		{"non-string text falls through to content", `{"text": 5, "content": "Y"}`, "Y"},
		{"content recurses", `{"content": [{"type": "text", "text": "Hello"}, {"type": "text", "text": "World"}]}`, "Hello\nWorld"},
		{"empty content still short-circuits", `{"content": "", "other": "Z"}`, ""},
		{"merge keeps document order", `{"b": "second", "a": "first"}`, "second\nfirst"},
		{"nested merge", `{"x": {"y": ["p", {"text": "q"}]}, "n": 3}`, "p\nq"},
		{"empty object", `{}`, ""},
		{"empty array", `[]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractText(gjson.Parse(tt.json)))
		})
	}
}

func TestExtractText_NoEmptySegments(t *testing.T) {
	got := ExtractText(gjson.Parse(`[{"content": ""}, "a", [], {"k": null}, "b", {"text": ""}]`))
	assert.Equal(t, "a\nb", got)
	assert.NotContains(t, got, "\n\n")
}

func TestExtractText_UnicodeEscapes(t *testing.T) {
	assert.Equal(t, "héllo <b>", ExtractText(gjson.Parse(`"héllo <b>"`)))
}

// =============================================================================
// NORMALIZER
// =============================================================================

func TestNormalize_Anthropic(t *testing.T) {
	counter := &wordCounter{}
	n := NewNormalizer(NewRegistry(), counter)

	body := `{"model":"claude-3-5-sonnet-20250514","system":"You are helpful.","messages":[{"role":"user","content":"Hello there!"}]}`
	res, err := n.Normalize(FormatAnthropic, []byte(body))
	require.NoError(t, err)

	assert.Equal(t, "claude-3-5-sonnet-20250514", res.Model)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "You are helpful."}, res.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "Hello there!"}, res.Messages[1])
	assert.Greater(t, res.Tokens, 0)
	assert.Equal(t, "You are helpful.\nHello there!\n", counter.last)
}

func TestNormalize_AnthropicSystemBlocks(t *testing.T) {
	n := NewNormalizer(nil, &wordCounter{})

	body := `{"system":[{"type":"text","text":"rule one"},{"type":"text","text":"rule two"}],"messages":[{"content":[{"type":"text","text":"hi"}]},{"role":"assistant"}]}`
	res, err := n.Normalize(FormatAnthropic, []byte(body))
	require.NoError(t, err)

	assert.Equal(t, UnknownModel, res.Model)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "rule one\nrule two", res.Messages[0].Content)
	assert.Equal(t, Message{Role: "unknown", Content: "hi"}, res.Messages[1])
	assert.Equal(t, Message{Role: "assistant", Content: ""}, res.Messages[2])
}

func TestNormalize_AnthropicEmptySystemSkipped(t *testing.T) {
	n := NewNormalizer(nil, &wordCounter{})

	res, err := n.Normalize(FormatAnthropic, []byte(`{"model":"m","system":"","messages":[{"role":"user","content":"x"}]}`))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "user", res.Messages[0].Role)
}

func TestNormalize_OpenAI(t *testing.T) {
	counter := &wordCounter{}
	n := NewNormalizer(nil, counter)

	body := `{"model":"gpt-4","system":"ignored","messages":[{"role":"system","content":"Be brief."},{"role":"user","content":"Hello!"}]}`
	res, err := n.Normalize(FormatOpenAI, []byte(body))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", res.Model)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "system", res.Messages[0].Role)
	assert.Equal(t, "Be brief.\nHello!\n", counter.last, "top-level system is not an OpenAI field")
}

func TestNormalize_Gemini(t *testing.T) {
	counter := &wordCounter{}
	n := NewNormalizer(nil, counter)

	body := `{
		"systemInstruction": {"parts": [{"text": "sys"}]},
		"contents": [
			{"parts": [{"text": "a"}, {"inlineData": {"data": "..."}}, {"text": "b"}]},
			{"role": "model", "parts": [{"text": "c"}]}
		]
	}`
	res, err := n.Normalize(FormatGemini, []byte(body))
	require.NoError(t, err)

	assert.Equal(t, GeminiModel, res.Model)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, Message{Role: "system", Content: "sys"}, res.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "a\nb"}, res.Messages[1])
	assert.Equal(t, Message{Role: "model", Content: "c"}, res.Messages[2])
	assert.Equal(t, "sys\na\nb\nc\n", counter.last)
}

func TestNormalize_GeminiWithoutParts(t *testing.T) {
	n := NewNormalizer(nil, &wordCounter{})

	res, err := n.Normalize(FormatGemini, []byte(`{"contents":[{"role":"user","text":"loose"}]}`))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "loose", res.Messages[0].Content)
}

func TestNormalize_OllamaChatAndGenerate(t *testing.T) {
	n := NewNormalizer(nil, &wordCounter{})

	chat, err := n.Normalize(FormatOllama, []byte(`{"model":"llama3","messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "llama3", chat.Model)
	assert.Equal(t, []Message{{Role: "user", Content: "hi"}}, chat.Messages)

	gen, err := n.Normalize(FormatOllama, []byte(`{"model":"llama3","system":"s","prompt":"why is the sky blue"}`))
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "why is the sky blue"}}, gen.Messages)
	assert.Equal(t, 6, gen.Tokens)
}

func TestNormalize_GenericFallback(t *testing.T) {
	counter := &wordCounter{}
	n := NewNormalizer(nil, counter)

	res, err := n.Normalize(Format("mystery"), []byte(`{"prompt":"count these words","n":1}`))
	require.NoError(t, err)

	assert.Equal(t, UnknownModel, res.Model)
	assert.Empty(t, res.Messages)
	assert.Equal(t, 3, res.Tokens)
	assert.Equal(t, "count these words", counter.last)
}

func TestNormalize_InvalidJSON(t *testing.T) {
	n := NewNormalizer(nil, &wordCounter{})

	_, err := n.Normalize(FormatAnthropic, []byte(`{"model": `))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestNormalize_NonObjectBody(t *testing.T) {
	n := NewNormalizer(nil, &wordCounter{})

	res, err := n.Normalize(FormatOpenAI, []byte(`["just", "an", "array"]`))
	require.NoError(t, err)
	assert.Equal(t, UnknownModel, res.Model)
	assert.Empty(t, res.Messages)
}

func TestFormatFromString(t *testing.T) {
	assert.Equal(t, FormatAnthropic, FormatFromString("Anthropic"))
	assert.Equal(t, FormatOpenAI, FormatFromString("openai"))
	assert.Equal(t, FormatGemini, FormatFromString("gemini"))
	assert.Equal(t, FormatOllama, FormatFromString("ollama"))
	assert.Equal(t, FormatGeneric, FormatFromString("bedrock"))
}

func TestRegistry_GetOrDefault(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "gemini", r.GetOrDefault(FormatGemini).Name())
	assert.Equal(t, "ollama", r.GetOrDefault(FormatOllama).Name())
	assert.Equal(t, "generic", r.GetOrDefault(Format("nope")).Name())
	assert.Nil(t, r.Get(Format("nope")))
}
