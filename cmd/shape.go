package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"modelgate/internal/model"
	"modelgate/internal/payload"
	"modelgate/internal/provider"
)

const shapeUsage = `Usage:
  modelgate shape --config <path> --model <name> --payload <file> [--option key=value]...

Prints the upstream request the model's provider would receive, with
credentials redacted. Nothing is sent.

Flags:
  -c, --config string      Path to YAML configuration file (required)
  -m, --model string       Model name, optionally with ?key=value options (required)
  -p, --payload string     JSON or JSONC payload file (required)
  -o, --option key=value   Caller option, repeatable; overrides model defaults
      --log-level string   Log level: debug, info, warn or error (default "info")`

type shapeOutput struct {
	Model   *model.Descriptor `json:"model"`
	Request *provider.Request `json:"request"`
}

func shape(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("shape", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintln(out, shapeUsage)
	}

	var common commonFlags
	var modelName, payloadPath string
	var rawOptions []string
	common.register(fs)
	fs.StringVarP(&modelName, "model", "m", "", "model name")
	fs.StringVarP(&payloadPath, "payload", "p", "", "payload file")
	fs.StringArrayVarP(&rawOptions, "option", "o", nil, "caller option as key=value")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse shape flags: %w", err)
	}

	switch {
	case common.configPath == "":
		return errors.New("shape command requires --config <path>")
	case modelName == "":
		return errors.New("shape command requires --model <name>")
	case payloadPath == "":
		return errors.New("shape command requires --payload <file>")
	}
	if err := common.setupLogging(); err != nil {
		return err
	}

	options, err := parseOptions(rawOptions)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return fmt.Errorf("read payload file: %w", err)
	}
	p, err := payload.Decode(data)
	if err != nil {
		return fmt.Errorf("payload file %q: %w", payloadPath, err)
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	s, err := buildStack(cfg, nil)
	if err != nil {
		return err
	}

	req, descriptor, err := s.router.Prepare(modelName, p, options)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(shapeOutput{Model: descriptor, Request: req.Redacted()})
}

// parseOptions reads key=value flags, splitting each on its first '=' and
// coercing values like model name options. Later flags win.
func parseOptions(raw []string) (map[string]any, error) {
	options := make(map[string]any, len(raw))
	for _, item := range raw {
		key, value, err := model.ParseOption(item)
		if err != nil {
			return nil, fmt.Errorf("--option %q: %w", item, err)
		}
		options[key] = value
	}
	return options, nil
}
