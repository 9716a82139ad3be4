package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"modelgate/internal/catalog"
	"modelgate/internal/model"
	"modelgate/internal/payload"
	"modelgate/internal/provider"
)

// Transport delivers a shaped request upstream.
type Transport interface {
	Send(ctx context.Context, req *provider.Request) (*provider.Result, error)
}

// Router resolves model names, picks the provider and hands shaped requests
// to the transport. Nothing is sent until a request is fully shaped.
type Router struct {
	catalog   catalog.Catalog
	registry  *provider.Registry
	transport Transport
}

// New constructs a router. transport may be nil when only Prepare is used.
func New(cat catalog.Catalog, registry *provider.Registry, transport Transport) *Router {
	return &Router{
		catalog:   cat,
		registry:  registry,
		transport: transport,
	}
}

// Resolve maps a raw model name to its descriptor.
func (r *Router) Resolve(name string) (*model.Descriptor, error) {
	return r.catalog.Model(name)
}

// Prepare resolves the model and shapes the upstream request without
// sending it. The model's default options sit under the caller's options.
func (r *Router) Prepare(modelName string, p payload.Payload, options map[string]any) (*provider.Request, *model.Descriptor, error) {
	descriptor, err := r.catalog.Model(modelName)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve model %q: %w", modelName, err)
	}

	providerImpl, err := r.registry.For(descriptor)
	if err != nil {
		return nil, nil, err
	}

	req, err := providerImpl.Request(descriptor, p, mergeOptions(descriptor.Options(), options))
	if err != nil {
		return nil, nil, fmt.Errorf("provider %s shape request: %w", providerImpl.Name(), err)
	}
	return req, descriptor, nil
}

// Invoke prepares the request and sends it through the transport.
func (r *Router) Invoke(ctx context.Context, modelName string, p payload.Payload, options map[string]any) (*provider.Result, *model.Descriptor, error) {
	if r.transport == nil {
		return nil, nil, errors.New("router has no transport configured")
	}

	req, descriptor, err := r.Prepare(modelName, p, options)
	if err != nil {
		return nil, nil, err
	}

	slog.Debug("invoking model", "model", descriptor.Name(), "family", descriptor.Family(), "url", req.URL)

	result, err := r.transport.Send(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("send request for %s: %w", descriptor.Name(), err)
	}
	return result, descriptor, nil
}

func mergeOptions(defaults model.Options, options map[string]any) map[string]any {
	if len(defaults) == 0 && len(options) == 0 {
		return nil
	}
	out := make(map[string]any, len(defaults)+len(options))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range options {
		out[k] = v
	}
	return out
}
