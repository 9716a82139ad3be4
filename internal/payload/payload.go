// Package payload holds the provider-agnostic request payload handed to
// provider shapers: either raw text or a structured tree of string-keyed
// maps and slices decoded from JSON.
package payload

import (
	"encoding/json"
	"errors"
)

// ErrInvalidPayload indicates a payload whose shape a provider cannot accept.
var ErrInvalidPayload = errors.New("invalid payload")

// Payload is either raw text or a structured field tree. The zero value is an
// empty structured payload.
type Payload struct {
	text   string
	fields map[string]any
	isText bool
}

// Text wraps a raw string payload.
func Text(s string) Payload {
	return Payload{text: s, isText: true}
}

// Structured wraps a field tree. The tree is deep-copied so later changes by
// the caller do not leak into the payload.
func Structured(fields map[string]any) Payload {
	return Payload{fields: cloneMap(fields)}
}

// IsText reports whether the payload is a raw string.
func (p Payload) IsText() bool {
	return p.isText
}

// Text returns the raw string of a text payload, or "" for structured ones.
func (p Payload) Text() string {
	return p.text
}

// Fields returns a deep copy of the structured tree. Text payloads yield nil.
// Callers may mutate the result freely.
func (p Payload) Fields() map[string]any {
	if p.isText {
		return nil
	}
	return cloneMap(p.fields)
}

// MarshalJSON renders the payload as it would appear on the wire.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.isText {
		return json.Marshal(p.text)
	}
	if p.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.fields)
}

// Clone deep-copies maps and slices inside v. Scalars are returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = cloneMap(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}
