package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/GwennKoi/XorShiftLPC/internal/commons/logger_config"
)

const usage = `usage: xorshift <command> [flags] [args]

commands:
  seed                              print a fresh seed
  range -size N -seed S             draw a value in [0, N)
  shuffle -seed S items...          shuffle the items
  pick -seed S items...             pick one of the items
  demo [-seed S]                    shuffle and pick from a-z
  trace record -o FILE [-seed S] [-items a,b,c] ops...
                                    ops: shuffle | pick | range:N
  trace verify FILE                 re-run a recorded trace
  scramble -seed S [-grid G] IN OUT
  scramble -seed S [-grid G] -o DIR IN...
  descramble -seed S [-grid G] IN OUT
  descramble -seed S [-grid G] -o DIR IN...
  serve [-c config.yml] [flags]     run the HTTP API
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger_config.Errorf("xorshift: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return flag.ErrHelp
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "seed":
		return cmdSeed(rest, stdout)
	case "range":
		return cmdRange(rest, stdout)
	case "shuffle":
		return cmdShuffle(rest, stdout)
	case "pick":
		return cmdPick(rest, stdout)
	case "demo":
		return cmdDemo(rest, stdout)
	case "trace":
		return cmdTrace(rest, stdout)
	case "scramble":
		return cmdScramble(rest, stdout, false)
	case "descramble":
		return cmdScramble(rest, stdout, true)
	case "serve":
		return cmdServe(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
