// custodybench is a small CLI for exercising pkg/rhhash: an interactive
// REPL for poking at a table by hand, and a scripted benchmark mode for
// measuring add/remove/peek throughput under a weighted random op mix.
//
// Usage:
//
//	custodybench [-n size] [-s seed]              Start the interactive REPL
//	custodybench --scenario <file> [--report out]  Run a scripted benchmark
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	flagSet := flag.NewFlagSet("custodybench", flag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)

	size := flagSet.IntP("size", "n", 1024, "table capacity")
	seed := flagSet.Int64P("seed", "s", 1, "PRNG seed for generated CIDs/SIDs")
	scenarioPath := flagSet.String("scenario", "", "run a scripted benchmark from a JSONC scenario file")
	reportPath := flagSet.String("report", "", "write the benchmark report to this path (scenario mode only)")

	flagSet.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: custodybench [-n size] [-s seed] [--scenario file [--report out]]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return 2
	}

	if *scenarioPath != "" {
		return runScenario(out, errOut, *scenarioPath, *reportPath)
	}

	return runREPL(out, errOut, *size, *seed)
}
