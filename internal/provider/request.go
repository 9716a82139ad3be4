package provider

import (
	"net/http"

	"modelgate/internal/payload"
)

const redacted = "[redacted]"

var sensitiveHeaders = []string{"Authorization", "X-Api-Key", "Api-Key"}

// Request describes a fully shaped upstream call.
type Request struct {
	Method string         `json:"method"`
	URL    string         `json:"url"`
	Header http.Header    `json:"headers"`
	Body   map[string]any `json:"body"`
}

// Redacted returns a copy whose credential headers are masked, suitable for
// logs and previews.
func (r *Request) Redacted() *Request {
	out := &Request{
		Method: r.Method,
		URL:    r.URL,
		Header: r.Header.Clone(),
		Body:   r.Body,
	}
	for _, key := range sensitiveHeaders {
		if out.Header.Get(key) != "" {
			out.Header.Set(key, redacted)
		}
	}
	return out
}

// Result is the raw upstream answer. Its body is never interpreted here.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// MergeBody layers options over the payload fields over base, one flat
// namespace, shallow: on key collisions the later layer wins.
func MergeBody(base map[string]any, fields map[string]any, options map[string]any) map[string]any {
	body := make(map[string]any, len(base)+len(fields)+len(options))
	for k, v := range base {
		body[k] = v
	}
	for k, v := range fields {
		body[k] = v
	}
	for k, v := range options {
		body[k] = payload.Clone(v)
	}
	return body
}

// CloneOptions copies the caller's options so a shaper may rewrite keys
// without touching the caller's map.
func CloneOptions(options map[string]any) map[string]any {
	out := make(map[string]any, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}

// IsSet reports whether key is present with a non-nil value.
func IsSet(options map[string]any, key string) bool {
	v, ok := options[key]
	return ok && v != nil
}
