package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/embervm/embervm/internal/elog"
)

func demoCommand(configPath, logLevel *string) *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "run every scenario once and print its result",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfigAndLogger(*configPath, *logLevel)
			if err != nil {
				return err
			}
			for _, sc := range scenarios() {
				e := newEnv(cfg, log.With(elog.F("scenario", sc.Name)))
				fmt.Printf("--- %s: %s\n", sc.Name, sc.Description)
				res, rerr := e.run(sc.Build(), sc.Name)
				if rerr != nil {
					fmt.Printf("    raised: %v\n", rerr)
					continue
				}
				fmt.Printf("    => %s\n", inspect(e.vm, res))
			}
			return nil
		},
	}
}

func replCommand(configPath, logLevel *string) *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "step through each scenario interactively with line editing and history",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfigAndLogger(*configPath, *logLevel)
			if err != nil {
				return err
			}
			return runREPL(cfg, log)
		},
	}
}
