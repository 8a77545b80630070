// Provider routing by path.
//
// DESIGN: Providers are checked in configured order and the first pattern
// contained in the request path (including the query string) wins. No
// normalization is applied. Lists are short, so a linear scan is enough.
package gateway

import (
	"strings"

	"github.com/compresr/sherlock/internal/config"
)

// Router resolves request paths to providers. Immutable after construction.
type Router struct {
	providers []config.ProviderConfig
}

// NewRouter copies the provider list so later config edits cannot race.
func NewRouter(providers config.ProvidersConfig) *Router {
	return &Router{providers: append([]config.ProviderConfig(nil), providers...)}
}

// Match returns the first provider whose pattern is a substring of path.
func (r *Router) Match(path string) (config.ProviderConfig, bool) {
	for _, p := range r.providers {
		if p.Pattern != "" && strings.Contains(path, p.Pattern) {
			return p, true
		}
	}
	return config.ProviderConfig{}, false
}

