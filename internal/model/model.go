package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownRole indicates a role name other than completions or embeddings.
	ErrUnknownRole = errors.New("unknown model role")
	// ErrUnknownFamily indicates a model family no provider is built for.
	ErrUnknownFamily = errors.New("unknown model family")
)

// Role decides which request shaping rules apply to a model.
type Role int

const (
	RoleCompletions Role = iota
	RoleEmbeddings
)

func (r Role) String() string {
	switch r {
	case RoleCompletions:
		return "completions"
	case RoleEmbeddings:
		return "embeddings"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MarshalText renders the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRole accepts "completions" or "embeddings", case-insensitively.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "completions":
		return RoleCompletions, nil
	case "embeddings":
		return RoleEmbeddings, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// Family identifies the upstream API dialect a model speaks.
type Family string

const (
	FamilyAnthropic Family = "anthropic"
	FamilyLlama     Family = "llama"
	FamilyGeneric   Family = "generic"
)

// ParseFamily maps a configuration string onto a known family.
func ParseFamily(value string) (Family, error) {
	switch f := Family(strings.ToLower(strings.TrimSpace(value))); f {
	case FamilyAnthropic, FamilyLlama, FamilyGeneric:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, value)
	}
}

// Options holds typed scalar defaults (int, float64 or string) for a model.
type Options map[string]any

// Clone returns a shallow copy. Values are scalars, so this is a full copy.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Descriptor is an immutable, resolved model: canonical name, family, role,
// capability set and default options. The zero value is not useful; build
// descriptors with New.
type Descriptor struct {
	name         string
	family       Family
	role         Role
	capabilities map[Capability]struct{}
	options      Options
}

// New builds a descriptor. Duplicate capabilities collapse and the options
// map is copied, so later changes by the caller are not observed.
func New(name string, family Family, role Role, capabilities []Capability, options Options) *Descriptor {
	set := make(map[Capability]struct{}, len(capabilities))
	for _, c := range capabilities {
		set[c] = struct{}{}
	}
	return &Descriptor{
		name:         name,
		family:       family,
		role:         role,
		capabilities: set,
		options:      options.Clone(),
	}
}

func (d *Descriptor) Name() string {
	return d.name
}

func (d *Descriptor) Family() Family {
	return d.family
}

func (d *Descriptor) Role() Role {
	return d.role
}

// Supports reports whether the model declares the capability.
func (d *Descriptor) Supports(c Capability) bool {
	_, ok := d.capabilities[c]
	return ok
}

// Capabilities returns the capability set in sorted order.
func (d *Descriptor) Capabilities() []Capability {
	out := make([]Capability, 0, len(d.capabilities))
	for c := range d.capabilities {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Options returns a copy of the default options.
func (d *Descriptor) Options() Options {
	return d.options.Clone()
}

// MarshalJSON renders the descriptor for the CLI and the HTTP API.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name         string       `json:"name"`
		Family       Family       `json:"family"`
		Role         Role         `json:"role"`
		Capabilities []Capability `json:"capabilities"`
		Options      Options      `json:"options"`
	}{
		Name:         d.name,
		Family:       d.family,
		Role:         d.role,
		Capabilities: d.Capabilities(),
		Options:      d.Options(),
	})
}
