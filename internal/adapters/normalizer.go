package adapters

import "github.com/tidwall/gjson"

// Normalizer turns raw request bodies into a Result using the shared counter.
// Safe for concurrent use once constructed.
type Normalizer struct {
	registry *Registry
	counter  TokenCounter
}

// NewNormalizer creates a normalizer. counter must not be nil.
func NewNormalizer(registry *Registry, counter TokenCounter) *Normalizer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Normalizer{registry: registry, counter: counter}
}

// Normalize parses body as the given format. Tokens are counted once over the
// extracted text. Unknown formats use the generic adapter.
func (n *Normalizer) Normalize(format Format, body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, ErrInvalidJSON
	}
	ext := n.registry.GetOrDefault(format).Extract(gjson.ParseBytes(body))
	return Result{
		Model:    ext.Model,
		Messages: ext.Messages,
		Tokens:   n.counter.Count(ext.Text),
	}, nil
}
