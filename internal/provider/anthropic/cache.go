package anthropic

import (
	"fmt"

	"modelgate/internal/provider"
)

// CacheRetention controls Anthropic prompt caching.
type CacheRetention int

const (
	// CacheNone disables prompt caching.
	CacheNone CacheRetention = iota
	// CacheShort uses the default five minute ephemeral cache.
	CacheShort
	// CacheLong uses the one hour cache, only available on api.anthropic.com.
	CacheLong
)

// DefaultCacheRetention applies when no retention is configured.
const DefaultCacheRetention = "short"

// ParseCacheRetention accepts exactly "none", "short" or "long".
func ParseCacheRetention(tag string) (CacheRetention, error) {
	switch tag {
	case "none":
		return CacheNone, nil
	case "short":
		return CacheShort, nil
	case "long":
		return CacheLong, nil
	default:
		return 0, fmt.Errorf(`%w: invalid cache retention %q, supported values are "none", "short" and "long"`, provider.ErrInvalidConfig, tag)
	}
}

func (r CacheRetention) String() string {
	switch r {
	case CacheNone:
		return "none"
	case CacheShort:
		return "short"
	case CacheLong:
		return "long"
	default:
		return fmt.Sprintf("retention(%d)", int(r))
	}
}

// marker returns a fresh cache_control value, or nil when caching is off.
func (r CacheRetention) marker() map[string]any {
	switch r {
	case CacheShort:
		return map[string]any{"type": "ephemeral"}
	case CacheLong:
		return map[string]any{"type": "ephemeral", "ttl": "1h"}
	default:
		return nil
	}
}

// annotate puts the cache marker on the last content block of the last user
// message in fields. fields must be a private copy; it is modified in place.
// At most one block is ever annotated.
func (r CacheRetention) annotate(fields map[string]any) {
	marker := r.marker()
	if marker == nil {
		return
	}

	switch messages := fields["messages"].(type) {
	case []any:
		for i := len(messages) - 1; i >= 0; i-- {
			message, ok := messages[i].(map[string]any)
			if !ok || message["role"] != "user" {
				continue
			}
			annotateMessage(message, marker)
			return
		}
	case []map[string]any:
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i]["role"] != "user" {
				continue
			}
			annotateMessage(messages[i], marker)
			return
		}
	}
}

func annotateMessage(message map[string]any, marker map[string]any) {
	switch content := message["content"].(type) {
	case string:
		message["content"] = []any{
			map[string]any{"type": "text", "text": content, "cache_control": marker},
		}
	case []any:
		if len(content) == 0 {
			return
		}
		if block, ok := content[len(content)-1].(map[string]any); ok {
			block["cache_control"] = marker
		}
	case []map[string]any:
		if len(content) == 0 {
			return
		}
		content[len(content)-1]["cache_control"] = marker
	}
}
