// m2sim runs models headless: it plays animations, steps the particle and
// ribbon simulators and reports what a renderer would have drawn.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/m2view/internal/logger"
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	err := run(os.Args[1], os.Args[2:], os.Stdout)
	logger.Sync()
	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, w io.Writer) error {
	switch command {
	case "info":
		return cmdInfo(args, w)
	case "run", "sim":
		return cmdRun(args, w)
	case "bones":
		return cmdBones(args, w)
	case "help", "-h", "--help":
		printUsage(w)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `m2sim - headless model animation and effects runner

Usage:
  m2sim <command> [options] <model.yaml>

Commands:
  info  <model.yaml>             Show sequences, bones and emitters
  run   [options] <model.yaml>   Simulate and report particles, ribbons and batches
  bones [options] <model.yaml>   Print bone positions at a point in time

Run options:
  -ticks N     number of updates (default 100)
  -dt MS       milliseconds per update (default 16)
  -every N     report every N ticks (default 10)
  -anim ID     animation id (default 0)
  -seed N      random seed (default 1)
  -t DIRS      comma separated texture directories
  -v           log to stderr at debug level

Examples:
  m2sim info torch.yaml
  m2sim run -ticks 600 -anim 4 torch.yaml
  m2sim bones -at 500 character.yaml`)
}
