package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"modelgate/internal/config"
	"modelgate/internal/model"
)

// Entry is a curated model definition.
type Entry struct {
	Name         string
	Family       model.Family
	Role         model.Role
	Capabilities []model.Capability
	Options      model.Options
}

// Static maintains a mapping of model names and aliases to curated entries.
type Static struct {
	mu      sync.RWMutex
	entries map[string]Entry
	aliases map[string]string
}

// NewStatic constructs an empty catalog.
func NewStatic() *Static {
	return &Static{
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
	}
}

// FromConfig builds a Static catalog from the catalog section of the
// configuration file.
func FromConfig(cfg config.CatalogConfig) (*Static, error) {
	s := NewStatic()

	for _, mc := range cfg.Models {
		entry, err := entryFromConfig(mc)
		if err != nil {
			return nil, fmt.Errorf("catalog model %q: %w", mc.Name, err)
		}
		if err := s.Register(entry); err != nil {
			return nil, err
		}
	}

	for alias, target := range cfg.Aliases {
		if err := s.Alias(alias, target); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func entryFromConfig(mc config.ModelConfig) (Entry, error) {
	entry := Entry{
		Name:    strings.TrimSpace(mc.Name),
		Family:  model.FamilyGeneric,
		Options: model.Options(mc.Options),
	}

	if mc.Family != "" {
		family, err := model.ParseFamily(mc.Family)
		if err != nil {
			return Entry{}, err
		}
		entry.Family = family
	}

	if mc.Role != "" {
		role, err := model.ParseRole(mc.Role)
		if err != nil {
			return Entry{}, err
		}
		entry.Role = role
	} else {
		entry.Role = model.Classify(entry.Name)
	}

	for _, raw := range mc.Capabilities {
		c, err := model.ParseCapability(raw)
		if err != nil {
			return Entry{}, err
		}
		entry.Capabilities = append(entry.Capabilities, c)
	}
	return entry, nil
}

// Register adds a curated entry.
func (s *Static) Register(entry Entry) error {
	if strings.TrimSpace(entry.Name) == "" {
		return errors.New("model name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, entry.Name)
	}
	if _, exists := s.aliases[entry.Name]; exists {
		return fmt.Errorf("model %q conflicts with existing alias", entry.Name)
	}
	entry.Options = entry.Options.Clone()
	entry.Capabilities = slices.Clone(entry.Capabilities)
	s.entries[entry.Name] = entry
	return nil
}

// Alias makes alias resolve to the registered model target.
func (s *Static) Alias(alias, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[alias]; exists {
		return fmt.Errorf("alias %q conflicts with existing model", alias)
	}
	if _, ok := s.entries[target]; !ok {
		return fmt.Errorf("alias %q references unknown model %q", alias, target)
	}
	s.aliases[alias] = target
	return nil
}

// Model resolves a curated name or alias. Options in the name are layered
// over the entry's own defaults. Unknown names yield ErrModelNotFound.
func (s *Static) Model(raw string) (*model.Descriptor, error) {
	name, options, err := model.ParseName(raw)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		target, aliased := s.aliases[name]
		if !aliased {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		entry = s.entries[target]
	}

	merged := entry.Options.Clone()
	for k, v := range options {
		merged[k] = v
	}
	return model.New(entry.Name, entry.Family, entry.Role, entry.Capabilities, merged), nil
}

// Models returns descriptors for every curated entry, sorted by name.
// Aliases are not listed separately.
func (s *Static) Models() []*model.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Descriptor, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, model.New(entry.Name, entry.Family, entry.Role, entry.Capabilities, entry.Options))
	}
	slices.SortFunc(out, func(a, b *model.Descriptor) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}
