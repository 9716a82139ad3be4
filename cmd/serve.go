package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"modelgate/internal/server"
	"modelgate/internal/transport"
)

const serveUsage = `Usage:
  modelgate serve --config <path> [--port <port>]

Flags:
  -c, --config string            Path to YAML configuration file (required)
      --port int                 Override server port from configuration
      --upstream-timeout duration  Timeout for upstream provider calls (default 2m)
      --log-level string         Log level: debug, info, warn or error (default "info")`

func serve(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintln(out, serveUsage)
	}

	var common commonFlags
	var overridePort int
	var upstreamTimeout time.Duration
	common.register(fs)
	fs.IntVar(&overridePort, "port", 0, "override server port")
	fs.DurationVar(&upstreamTimeout, "upstream-timeout", 2*time.Minute, "timeout for upstream provider calls")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	if common.configPath == "" {
		return errors.New("serve command requires --config <path>")
	}
	if err := common.setupLogging(); err != nil {
		return err
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}
	if cfg.Server.Port == 0 {
		return errors.New("serve command requires server.port in configuration or --port")
	}

	s, err := buildStack(cfg, transport.New(transport.NewHTTPClient(upstreamTimeout)))
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, s.router, s.curated)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
