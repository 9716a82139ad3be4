// Package catalog resolves model names to descriptors. A Static catalog holds
// an explicitly curated table; a Fallback catalog puts any catalog in front of
// the naming heuristic so that unknown names still resolve.
package catalog

import (
	"errors"

	"modelgate/internal/model"
)

// ErrModelNotFound signals that a catalog has no entry for a name. Fallback
// treats it as "try the heuristic"; every other error is final.
var ErrModelNotFound = errors.New("model not found")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// Catalog resolves model names, optionally carrying ?key=value options.
type Catalog interface {
	Model(name string) (*model.Descriptor, error)
	Models() []*model.Descriptor
}

// Heuristic resolves any name by convention: the options suffix is parsed,
// names containing "embed" become embeddings models and everything else a
// completions model. Both receive the full capability universe because
// nothing is known about the real model. It fails only on malformed options.
func Heuristic(raw string) (*model.Descriptor, error) {
	name, options, err := model.ParseName(raw)
	if err != nil {
		return nil, err
	}
	return model.New(name, model.FamilyGeneric, model.Classify(name), model.AllCapabilities(), options), nil
}
