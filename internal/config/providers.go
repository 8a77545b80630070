// Provider configuration for upstream LLM services.
//
// DESIGN: Providers are an ORDERED list. The router walks them in
// declaration order and the first pattern contained in the request path
// wins, so precedence is whatever the config file (or DefaultProviders) says.
//
// Default providers:
//   - anthropic: api.anthropic.com, pattern /v1/messages
//   - openai:    api.openai.com, pattern /v1/chat/completions
//   - gemini:    generativelanguage.googleapis.com, pattern generateContent
//   - ollama:    localhost:11434, pattern /api/chat
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Known provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

var (
	// ErrUnknownProvider is returned when a provider name is not configured.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrDuplicateProvider is returned when two providers share a name.
	ErrDuplicateProvider = errors.New("duplicate provider")
)

// ProviderConfig describes one upstream vendor.
type ProviderConfig struct {
	Name    string   `yaml:"name"`
	Host    string   `yaml:"host"`
	BaseURL string   `yaml:"base_url"`
	EnvVars []string `yaml:"env_vars"`          // Set to the proxy URL when launching a tool
	Pattern string   `yaml:"pattern"`           // Substring matched against path+query
	Format  string   `yaml:"format,omitempty"` // Body parser; defaults to Name
}

// BodyFormat returns the parser name for this provider's request bodies.
func (p ProviderConfig) BodyFormat() string {
	if p.Format != "" {
		return p.Format
	}
	return p.Name
}

// DefaultProviders returns the built-in provider list in precedence order.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:    ProviderAnthropic,
			Host:    "api.anthropic.com",
			BaseURL: "https://api.anthropic.com",
			EnvVars: []string{"ANTHROPIC_BASE_URL"},
			Pattern: "/v1/messages",
		},
		{
			Name:    ProviderOpenAI,
			Host:    "api.openai.com",
			BaseURL: "https://api.openai.com",
			EnvVars: []string{"OPENAI_BASE_URL"},
			Pattern: "/v1/chat/completions",
		},
		{
			Name:    ProviderGemini,
			Host:    "generativelanguage.googleapis.com",
			BaseURL: "https://generativelanguage.googleapis.com",
			EnvVars: []string{"GOOGLE_GEMINI_BASE_URL", "GEMINI_API_BASE_URL", "GEMINI_BASEURL"},
			Pattern: "generateContent",
		},
		{
			Name:    ProviderOllama,
			Host:    "localhost:11434",
			BaseURL: "http://localhost:11434",
			EnvVars: []string{"OLLAMA_HOST"},
			Pattern: "/api/chat",
			Format:  ProviderOpenAI,
		},
	}
}

// ProvidersConfig is the ordered provider list.
type ProvidersConfig []ProviderConfig

// Get returns the provider with the given name.
func (p ProvidersConfig) Get(name string) (ProviderConfig, error) {
	for _, pc := range p {
		if strings.EqualFold(pc.Name, name) {
			return pc, nil
		}
	}
	return ProviderConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// Names returns provider names in precedence order.
func (p ProvidersConfig) Names() []string {
	names := make([]string, 0, len(p))
	for _, pc := range p {
		names = append(names, pc.Name)
	}
	return names
}

// Validate validates provider configurations.
func (p ProvidersConfig) Validate() error {
	if len(p) == 0 {
		return errors.New("providers: at least one provider is required")
	}
	seen := make(map[string]bool, len(p))
	for i, pc := range p {
		if pc.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		key := strings.ToLower(pc.Name)
		if seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateProvider, pc.Name)
		}
		seen[key] = true

		if pc.Pattern == "" {
			return fmt.Errorf("provider %q: pattern is required", pc.Name)
		}
		u, err := url.Parse(pc.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("provider %q: invalid base_url %q", pc.Name, pc.BaseURL)
		}
	}
	return nil
}

// applyEnvOverrides lets SHERLOCK_<NAME>_BASE_URL redirect a provider upstream.
func (p ProvidersConfig) applyEnvOverrides() {
	for i := range p {
		envVar := "SHERLOCK_" + strings.ToUpper(strings.ReplaceAll(p[i].Name, "-", "_")) + "_BASE_URL"
		if v := os.Getenv(envVar); v != "" {
			p[i].BaseURL = strings.TrimSuffix(v, "/")
			if u, err := url.Parse(p[i].BaseURL); err == nil {
				p[i].Host = u.Host
			}
		}
	}
}
