// Command embervm is a thin demonstration driver for the engine: it
// has no parser (spec.md §1 keeps source-text-to-AST lowering out of
// scope), so it runs a small table of hand-built ast.Program scenarios
// instead of arbitrary Ruby source, either all at once (`demo`) or
// stepped through interactively with line editing and history
// (`repl`).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/embervm/embervm/internal/config"
	"github.com/embervm/embervm/internal/elog"
)

func main() {
	var configPath string
	var logLevel string

	app := &cli.Command{
		Name:  "embervm",
		Usage: "EmberVM engine demonstration driver",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to an embervm.yaml tuning file",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "debug, info, warn, or error (overrides the config file)",
				Destination: &logLevel,
			},
		},
		Commands: []*cli.Command{
			demoCommand(&configPath, &logLevel),
			replCommand(&configPath, &logLevel),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Println("Usage: embervm [demo|repl] [--config path] [--log-level level]")
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "embervm: %v\n", err)
		os.Exit(1)
	}
}

// loadConfigAndLogger resolves --config/--log-level into a
// config.Config and an elog.Logger writing to stderr, colorized only
// when stderr is a terminal (spec.md's ambient-stack "a TTY gets short
// colorized lines, a pipe gets the same lines uncolored").
func loadConfigAndLogger(configPath, logLevel string) (config.Config, *elog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	log := elog.New(os.Stderr, parseLevel(level), color)
	return cfg, log, nil
}

func parseLevel(s string) elog.Level {
	switch s {
	case "debug":
		return elog.Debug
	case "warn":
		return elog.Warn
	case "error":
		return elog.Error
	default:
		return elog.Info
	}
}
