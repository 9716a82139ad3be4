// Package azure shapes requests for Meta Llama models deployed as Azure AI
// inference endpoints.
package azure

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

// Provider implements the Azure-hosted Llama chat completions API.
type Provider struct {
	name    string
	apiKey  string
	chatURL string
}

// New constructs a provider for the deployment host in cfg.BaseURL.
func New(name string, cfg config.AzureLlamaConfig) (*Provider, error) {
	host := strings.Trim(strings.TrimSpace(cfg.BaseURL), "/")
	if host == "" {
		return nil, fmt.Errorf("%w: azure base url must not be empty", provider.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: azure api key must not be empty", provider.ErrInvalidConfig)
	}

	return &Provider{
		name:    name,
		apiKey:  cfg.APIKey,
		chatURL: fmt.Sprintf("https://%s/chat/completions", host),
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Supports accepts Llama-family models only.
func (p *Provider) Supports(m *model.Descriptor) bool {
	return m != nil && m.Family() == model.FamilyLlama
}

// Request builds a chat completions call. Azure expects the raw key in the
// Authorization header, without a scheme.
func (p *Provider) Request(m *model.Descriptor, in payload.Payload, options map[string]any) (*provider.Request, error) {
	if m == nil {
		return nil, errors.New("model descriptor must not be nil")
	}
	if !p.Supports(m) {
		return nil, fmt.Errorf("%w: %s is not a llama model", provider.ErrUnsupportedModel, m.Name())
	}
	if in.IsText() {
		return nil, fmt.Errorf("%w: payload must be structured, but a string was given to provider %s", payload.ErrInvalidPayload, p.name)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", p.apiKey)

	return &provider.Request{
		Method: http.MethodPost,
		URL:    p.chatURL,
		Header: header,
		Body:   provider.MergeBody(map[string]any{"model": m.Name()}, in.Fields(), options),
	}, nil
}
