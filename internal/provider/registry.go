package provider

import (
	"errors"
	"fmt"
	"sync"

	"modelgate/internal/model"
	"modelgate/internal/payload"
)

// ErrUnsupportedModel indicates no registered provider accepts the model.
var ErrUnsupportedModel = errors.New("no provider supports model")

// ErrInvalidConfig indicates a provider was constructed with unusable settings.
var ErrInvalidConfig = errors.New("invalid provider configuration")

// Provider shapes requests for one upstream API dialect.
type Provider interface {
	Name() string
	// Supports reports whether the provider can shape requests for the model.
	// Declining is not an error; the registry moves on to the next provider.
	Supports(m *model.Descriptor) bool
	// Request builds the wire request. It never mutates p or options.
	Request(m *model.Descriptor, p payload.Payload, options map[string]any) (*Request, error)
}

// Registry is an ordered dispatch table of providers. The first provider
// whose Supports accepts a model handles it.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	byName    map[string]Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Provider),
	}
}

// Register appends the provider to the dispatch order.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	r.byName[p.Name()] = p
	r.providers = append(r.providers, p)
	return nil
}

// For returns the first provider that supports the model.
func (r *Registry) For(m *model.Descriptor) (Provider, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: model descriptor must not be nil", ErrUnsupportedModel)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.providers {
		if p.Supports(m) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (family %s, role %s)", ErrUnsupportedModel, m.Name(), m.Family(), m.Role())
}

// Names lists registered providers in dispatch order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}
