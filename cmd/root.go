package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"modelgate/internal/config"
)

const usage = `modelgate shapes upstream model requests from model names that carry
their own default options, e.g. claude-sonnet-4?temperature=0.2.

Usage:
  modelgate <command> [flags]

Commands:
  serve      Start the HTTP server
  resolve    Print the descriptor a model name resolves to
  shape      Print the upstream request for a model and payload, secrets redacted

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}

	if len(args) == 0 {
		return printUsage(out)
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:], out)
	case "resolve":
		return resolve(args[1:], out)
	case "shape":
		return shape(args[1:], out)
	case "help", "-h", "--help":
		return printUsage(out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage(out io.Writer) error {
	fmt.Fprintln(out, strings.TrimSpace(usage))
	return nil
}
