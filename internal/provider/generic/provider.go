// Package generic shapes requests for any OpenAI-compatible endpoint, which
// is where every model resolved by the naming heuristic ends up.
package generic

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"modelgate/internal/config"
	"modelgate/internal/model"
	"modelgate/internal/payload"
	"modelgate/internal/provider"
)

const userAgent = "modelgate/0.1"

// Provider implements the Provider interface for OpenAI-compatible APIs.
type Provider struct {
	name          string
	apiKey        string
	headers       map[string]string
	chatURL       string
	embeddingsURL string
}

// New creates a new OpenAI-compatible provider rooted at cfg.BaseURL,
// for example "https://api.openai.com/v1".
func New(name string, cfg config.GenericConfig) (*Provider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base url must not be empty", provider.ErrInvalidConfig)
	}

	return &Provider{
		name:          name,
		apiKey:        cfg.APIKey,
		headers:       cfg.Headers,
		chatURL:       baseURL + "/chat/completions",
		embeddingsURL: baseURL + "/embeddings",
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Supports accepts generic-family models of either role.
func (p *Provider) Supports(m *model.Descriptor) bool {
	return m != nil && m.Family() == model.FamilyGeneric
}

// Request routes completions models to /chat/completions and embeddings
// models to /embeddings. Embeddings accept a text payload, which becomes
// the input field; chat completions require a structured payload.
func (p *Provider) Request(m *model.Descriptor, in payload.Payload, options map[string]any) (*provider.Request, error) {
	if m == nil {
		return nil, errors.New("model descriptor must not be nil")
	}
	if !p.Supports(m) {
		return nil, fmt.Errorf("%w: %s is not a generic model", provider.ErrUnsupportedModel, m.Name())
	}

	var (
		url    string
		fields map[string]any
	)
	switch m.Role() {
	case model.RoleEmbeddings:
		url = p.embeddingsURL
		if in.IsText() {
			fields = map[string]any{"input": in.Text()}
		} else {
			fields = in.Fields()
		}
	default:
		if in.IsText() {
			return nil, fmt.Errorf("%w: chat completions need a structured payload, but a string was given to provider %s", payload.ErrInvalidPayload, p.name)
		}
		url = p.chatURL
		fields = in.Fields()
	}

	return &provider.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: p.header(),
		Body:   provider.MergeBody(map[string]any{"model": m.Name()}, fields, options),
	}, nil
}

func (p *Provider) header() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("User-Agent", userAgent)
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	for k, v := range p.headers {
		header.Set(k, v)
	}
	return header
}
