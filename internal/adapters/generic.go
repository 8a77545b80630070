package adapters

import "github.com/tidwall/gjson"

// GenericAdapter is the fallback for providers without a dedicated schema.
// It reports no messages and counts tokens over every string in the body.
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates the fallback adapter.
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{
		BaseAdapter: BaseAdapter{
			name:   "generic",
			format: FormatGeneric,
		},
	}
}

// Extract reads the model and flattens the whole document.
func (a *GenericAdapter) Extract(body gjson.Result) Extraction {
	return Extraction{
		Model: stringField(body, "model", UnknownModel),
		Text:  ExtractText(body),
	}
}

var _ Adapter = (*GenericAdapter)(nil)
