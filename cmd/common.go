package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"modelgate/internal/catalog"
	"modelgate/internal/config"
	"modelgate/internal/provider"
	providerfactory "modelgate/internal/provider/factory"
	"modelgate/internal/router"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	logLevel   string
}

func (f *commonFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "path to YAML configuration file")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
}

func (f *commonFlags) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", f.logLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig returns the zero configuration when no file was given, which
// leaves every name to the heuristic catalog and registers no providers.
func (f *commonFlags) loadConfig() (config.Config, error) {
	if f.configPath == "" {
		return config.Config{}, nil
	}
	return config.Load(f.configPath)
}

// stack is the wired catalog, provider and router set built from config.
type stack struct {
	curated *catalog.Static
	router  *router.Router
}

func buildStack(cfg config.Config, transport router.Transport) (*stack, error) {
	curated, err := catalog.FromConfig(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	if err := providerfactory.RegisterConfiguredProviders(cfg, registry); err != nil {
		return nil, err
	}

	return &stack{
		curated: curated,
		router:  router.New(catalog.NewFallback(curated), registry, transport),
	}, nil
}
