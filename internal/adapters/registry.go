package adapters

import "sync"

// Registry maps body formats to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Format]Adapter
	fallback Adapter
}

// NewRegistry creates a registry with every built-in adapter registered.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[Format]Adapter),
		fallback: NewGenericAdapter(),
	}
	r.Register(NewAnthropicAdapter())
	r.Register(NewOpenAIAdapter())
	r.Register(NewGeminiAdapter())
	r.Register(NewOllamaAdapter())
	r.Register(r.fallback)
	return r
}

// Register adds or replaces the adapter for its format.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Format()] = a
}

// Get returns the adapter for a format, or nil if none is registered.
func (r *Registry) Get(f Format) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[f]
}

// GetOrDefault returns the adapter for a format, or the generic fallback.
func (r *Registry) GetOrDefault(f Format) Adapter {
	if a := r.Get(f); a != nil {
		return a
	}
	return r.fallback
}
