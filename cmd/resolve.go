package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

const resolveUsage = `Usage:
  modelgate resolve [--config <path>] <model>

Prints the descriptor the model name resolves to. Without --config every
name is resolved heuristically.

Flags:
  -c, --config string     Path to YAML configuration file
      --log-level string  Log level: debug, info, warn or error (default "info")`

func resolve(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintln(out, resolveUsage)
	}

	var common commonFlags
	common.register(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse resolve flags: %w", err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("resolve command requires exactly one model name\n\n%s", resolveUsage)
	}
	if err := common.setupLogging(); err != nil {
		return err
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	s, err := buildStack(cfg, nil)
	if err != nil {
		return err
	}

	descriptor, err := s.router.Resolve(fs.Arg(0))
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(descriptor)
}
