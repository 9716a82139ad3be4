package anthropic

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"modelgate/internal/config"
	"modelgate/internal/model"
	"modelgate/internal/payload"
	"modelgate/internal/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	messagesPath   = "/v1/messages"
	apiVersion     = "2023-06-01"

	// BetaInterleavedThinking is requested whenever a thinking directive is present.
	BetaInterleavedThinking = "interleaved-thinking-2025-05-14"

	optionTools          = "tools"
	optionToolChoice     = "tool_choice"
	optionThinking       = "thinking"
	optionResponseFormat = "response_format"
	optionOutputConfig   = "output_config"
	optionBetaFeatures   = "beta_features"
)

// Provider shapes requests for the Anthropic messages API.
type Provider struct {
	name      string
	apiKey    string
	endpoint  string
	retention CacheRetention
	headers   map[string]string
}

// New constructs an Anthropic provider. An empty cache retention means
// "short"; any tag other than none, short or long is rejected.
func New(name string, cfg config.AnthropicConfig) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: anthropic api key must not be empty", provider.ErrInvalidConfig)
	}

	tag := cfg.CacheRetention
	if tag == "" {
		tag = DefaultCacheRetention
	}
	retention, err := ParseCacheRetention(tag)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Provider{
		name:      name,
		apiKey:    cfg.APIKey,
		endpoint:  baseURL + messagesPath,
		retention: retention,
		headers:   cfg.Headers,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Supports accepts Anthropic-family models only.
func (p *Provider) Supports(m *model.Descriptor) bool {
	return m != nil && m.Family() == model.FamilyAnthropic
}

// Request shapes a messages API call. The caller's payload and options are
// left untouched; all rewriting happens on copies.
func (p *Provider) Request(m *model.Descriptor, in payload.Payload, options map[string]any) (*provider.Request, error) {
	if m == nil {
		return nil, errors.New("model descriptor must not be nil")
	}
	if !p.Supports(m) {
		return nil, fmt.Errorf("%w: %s is not an anthropic model", provider.ErrUnsupportedModel, m.Name())
	}
	if m.Role() == model.RoleEmbeddings {
		return nil, fmt.Errorf("%w: anthropic has no embeddings endpoint for %s", provider.ErrUnsupportedModel, m.Name())
	}

	header := http.Header{}
	for k, v := range p.headers {
		header.Set(k, v)
	}
	header.Set("x-api-key", p.apiKey)
	header.Set("anthropic-version", apiVersion)

	var fields map[string]any
	if in.IsText() {
		// The messages API has no raw-text form: the string becomes a single
		// user turn and is not cache-annotated.
		fields = map[string]any{
			"messages": []any{map[string]any{"role": "user", "content": in.Text()}},
		}
	} else {
		fields = in.Fields()
		p.retention.annotate(fields)
	}

	opts := provider.CloneOptions(options)

	if provider.IsSet(opts, optionTools) {
		opts[optionToolChoice] = map[string]any{"type": "auto"}
	}

	if provider.IsSet(opts, optionThinking) {
		opts[optionBetaFeatures] = append(betaFeatures(opts), BetaInterleavedThinking)
	}

	if provider.IsSet(opts, optionResponseFormat) {
		opts[optionOutputConfig] = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"schema": responseSchema(opts[optionResponseFormat]),
			},
		}
		delete(opts, optionResponseFormat)
	}

	if features := betaFeatures(opts); len(features) > 0 {
		header.Set("anthropic-beta", strings.Join(features, ","))
		delete(opts, optionBetaFeatures)
	}

	return &provider.Request{
		Method: http.MethodPost,
		URL:    p.endpoint,
		Header: header,
		Body:   provider.MergeBody(map[string]any{"model": m.Name()}, fields, opts),
	}, nil
}

// betaFeatures reads the beta feature list in insertion order. Non-string
// entries are skipped and logged.
func betaFeatures(options map[string]any) []string {
	switch v := options[optionBetaFeatures].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				slog.Debug("skipping non-string beta feature", "index", i, "value", item)
				continue
			}
			out = append(out, s)
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// responseSchema digs response_format.json_schema.schema out of an
// OpenAI-style response format, defaulting to an empty schema.
func responseSchema(format any) any {
	outer, ok := format.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	jsonSchema, ok := outer["json_schema"].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	schema, ok := jsonSchema["schema"]
	if !ok || schema == nil {
		return map[string]any{}
	}
	return payload.Clone(schema)
}
