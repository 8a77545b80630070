package adapters

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractText flattens an arbitrary JSON value into text.
//
//   - string: itself
//   - array:  each element extracted, empties dropped, joined with "\n"
//   - object: a string "text" field wins; else a "content" field is extracted;
//     else every value is extracted in document order, empties dropped, joined
//   - number, bool, null: ""
func ExtractText(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsArray():
		return joinNonEmpty(v)
	case v.IsObject():
		if text := v.Get("text"); text.Type == gjson.String {
			return text.Str
		}
		if content := v.Get("content"); content.Exists() {
			return ExtractText(content)
		}
		return joinNonEmpty(v)
	default:
		return ""
	}
}

// joinNonEmpty extracts every child of an array or object in document order.
func joinNonEmpty(v gjson.Result) string {
	var parts []string
	v.ForEach(func(_, child gjson.Result) bool {
		if s := ExtractText(child); s != "" {
			parts = append(parts, s)
		}
		return true
	})
	return strings.Join(parts, "\n")
}
