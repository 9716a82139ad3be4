package factory

import (
	"errors"
	"fmt"

	"modelgate/internal/config"
	"modelgate/internal/provider"
	"modelgate/internal/provider/anthropic"
	"modelgate/internal/provider/azure"
	"modelgate/internal/provider/generic"
)

// RegisterConfiguredProviders constructs providers from configuration and
// stores them in the registry. Dispatch order is anthropic, azure_llama,
// generic; each provider only accepts its own model family.
func RegisterConfiguredProviders(cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	if c := cfg.Providers.Anthropic; c != nil {
		p, err := anthropic.New("anthropic", *c)
		if err != nil {
			return fmt.Errorf("initialise anthropic provider: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register anthropic provider: %w", err)
		}
	}

	if c := cfg.Providers.AzureLlama; c != nil {
		p, err := azure.New("azure_llama", *c)
		if err != nil {
			return fmt.Errorf("initialise azure_llama provider: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register azure_llama provider: %w", err)
		}
	}

	if c := cfg.Providers.Generic; c != nil {
		p, err := generic.New("generic", *c)
		if err != nil {
			return fmt.Errorf("initialise generic provider: %w", err)
		}
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register generic provider: %w", err)
		}
	}

	return nil
}
