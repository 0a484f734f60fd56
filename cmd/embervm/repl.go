package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/embervm/embervm/internal/config"
	"github.com/embervm/embervm/internal/elog"
)

// runREPL is the readline-driven stepper SPEC_FULL.md's DOMAIN STACK
// section earmarks `github.com/chzyer/readline` for: line editing and
// history over the fixed scenario table (there is no parser behind
// this module to drive a REPL off of arbitrary typed-in Ruby source,
// so "the next line" here means "the next scenario", not "the next
// statement").
func runREPL(cfg config.Config, log *elog.Logger) error {
	scs := scenarios()

	rl, err := readline.New("embervm> ")
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close()

	fmt.Println("EmberVM demonstration REPL. Commands: list, run <name>, next, quit")
	cursor := 0
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("repl: %w", err)
		}

		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "list":
			for i, sc := range scs {
				marker := "  "
				if i == cursor {
					marker = "->"
				}
				fmt.Printf("%s %d. %-12s %s\n", marker, i, sc.Name, sc.Description)
			}
		case "next":
			if cursor >= len(scs) {
				fmt.Println("no more scenarios; use `list` to see them again")
				continue
			}
			runScenario(scs[cursor], cfg, log)
			cursor++
		case "run":
			if len(fields) < 2 {
				fmt.Println("usage: run <name>")
				continue
			}
			sc, ok := findScenario(scs, fields[1])
			if !ok {
				fmt.Printf("no such scenario: %s\n", fields[1])
				continue
			}
			runScenario(sc, cfg, log)
		default:
			fmt.Printf("unknown command %q; try list, run <name>, next, or quit\n", fields[0])
		}
	}
}

func findScenario(scs []scenario, name string) (scenario, bool) {
	for _, sc := range scs {
		if sc.Name == name {
			return sc, true
		}
	}
	return scenario{}, false
}

func runScenario(sc scenario, cfg config.Config, log *elog.Logger) {
	e := newEnv(cfg, log.With(elog.F("scenario", sc.Name)))
	fmt.Printf("--- %s: %s\n", sc.Name, sc.Description)
	res, err := e.run(sc.Build(), sc.Name)
	if err != nil {
		fmt.Printf("    raised: %v\n", err)
		return
	}
	fmt.Printf("    => %s\n", inspect(e.vm, res))
}
