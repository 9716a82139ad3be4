package catalog

import (
	"errors"
	"log/slog"

	"modelgate/internal/model"
)

// Fallback tries an optional primary catalog first and resolves everything
// the primary does not know through Heuristic.
type Fallback struct {
	primary Catalog
}

// NewFallback wraps primary, which may be nil to accept any name.
func NewFallback(primary Catalog) *Fallback {
	return &Fallback{primary: primary}
}

// Model returns the primary's descriptor unchanged when it has one. Only
// ErrModelNotFound from the primary falls through to the heuristic.
func (f *Fallback) Model(name string) (*model.Descriptor, error) {
	if f.primary != nil {
		descriptor, err := f.primary.Model(name)
		if err == nil {
			return descriptor, nil
		}
		if !errors.Is(err, ErrModelNotFound) {
			return nil, err
		}
		slog.Debug("model not in catalog, using naming heuristic", "model", name)
	}
	return Heuristic(name)
}

// Models lists nothing: the fallback accepts names rather than enumerating them.
func (f *Fallback) Models() []*model.Descriptor {
	return []*model.Descriptor{}
}
