package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProvidersConfig catalogues configured upstream providers. A nil entry
// leaves that provider unregistered.
type ProvidersConfig struct {
	Anthropic  *AnthropicConfig  `yaml:"anthropic"`
	AzureLlama *AzureLlamaConfig `yaml:"azure_llama"`
	Generic    *GenericConfig    `yaml:"generic"`
}

// AnthropicConfig configures the Anthropic messages API.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	// CacheRetention is one of "none", "short" or "long". Empty means unset
	// and selects the default, "short"; it is never treated as a tag.
	CacheRetention string  `yaml:"cache_retention"`
	BaseURL        string  `yaml:"base_url"`
	Headers        Headers `yaml:"headers"`
}

// AzureLlamaConfig configures a Meta Llama deployment hosted on Azure.
// BaseURL is a host name such as "my-llama.eastus.models.ai.azure.com".
type AzureLlamaConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GenericConfig configures any OpenAI-compatible endpoint.
type GenericConfig struct {
	BaseURL string  `yaml:"base_url"`
	APIKey  string  `yaml:"api_key"`
	Headers Headers `yaml:"headers"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// CatalogConfig lists explicitly curated models. Names not listed here are
// still accepted through the naming heuristic.
type CatalogConfig struct {
	Models  []ModelConfig     `yaml:"models"`
	Aliases map[string]string `yaml:"aliases"`
}

// ModelConfig describes a curated model.
type ModelConfig struct {
	Name         string         `yaml:"name"`
	Family       string         `yaml:"family"`
	Role         string         `yaml:"role"`
	Capabilities []string       `yaml:"capabilities"`
	Options      map[string]any `yaml:"options"`
}

// LoadEnv loads KEY=value pairs from dotenv files into the process
// environment. Missing files are skipped; variables already set win.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", path, err)
		}
	}
	return nil
}

// Load reads YAML configuration from disk, expands ${VAR} references from the
// environment and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes and validates configuration from YAML bytes.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration. Values that
// only a provider can judge, such as the cache retention tag, are checked
// when that provider is constructed.
func (c Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if p := c.Providers.Anthropic; p != nil {
		if strings.TrimSpace(p.APIKey) == "" {
			return errors.New("provider anthropic: api_key must be provided")
		}
		if err := validateHeaders("anthropic", p.Headers); err != nil {
			return err
		}
	}
	if p := c.Providers.AzureLlama; p != nil {
		if strings.TrimSpace(p.BaseURL) == "" {
			return errors.New("provider azure_llama: base_url must be provided")
		}
		if strings.Contains(p.BaseURL, "://") {
			return fmt.Errorf("provider azure_llama: base_url %q must be a host name without scheme", p.BaseURL)
		}
		if strings.TrimSpace(p.APIKey) == "" {
			return errors.New("provider azure_llama: api_key must be provided")
		}
	}
	if p := c.Providers.Generic; p != nil {
		if strings.TrimSpace(p.BaseURL) == "" {
			return errors.New("provider generic: base_url must be provided")
		}
		if err := validateHeaders("generic", p.Headers); err != nil {
			return err
		}
	}

	return c.Catalog.validate()
}

func (c CatalogConfig) validate() error {
	seen := make(map[string]struct{}, len(c.Models))
	for i, m := range c.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return fmt.Errorf("catalog.models[%d]: name must not be empty", i)
		}
		if strings.Contains(name, "?") {
			return fmt.Errorf("catalog.models[%d]: name %q must not carry options; use the options field", i, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("catalog.models[%d]: duplicate model %q", i, name)
		}
		seen[name] = struct{}{}
	}

	for alias, target := range c.Aliases {
		if strings.TrimSpace(alias) == "" {
			return errors.New("catalog: alias name must not be empty")
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("catalog: alias %q target must not be empty", alias)
		}
	}
	return nil
}

func validateHeaders(provider string, headers Headers) error {
	for headerKey := range headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", provider, headerKey)
		}
	}
	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
