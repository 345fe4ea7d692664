// Package main provides the entry point for tomasim.
// tomasim is a cycle-accurate Tomasulo scheduling simulator.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

type options struct {
	configPath string
	statePath  string
	maxCycles  int64
	verbosity  int
	parallel   int
	quiet      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("tomasim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to machine configuration (JSON or YAML)")
	fs.StringVar(&opts.statePath, "state", "", "Path to initial registers and memory (JSON or YAML)")
	fs.Int64Var(&opts.maxCycles, "max-cycles", 100000, "Stop after this many cycles (0 = unlimited)")
	fs.IntVar(&opts.verbosity, "v", 0, "Log verbosity (1 = events, 2 = stalls)")
	fs.IntVar(&opts.parallel, "j", 4, "Number of programs simulated at once")
	fs.BoolVar(&opts.quiet, "q", false, "Print statistics only")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tomasim [options] <program.s>...\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	config := pipeline.DefaultConfig()
	if opts.configPath != "" {
		var err error
		config, err = pipeline.LoadConfig(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading machine config: %v\n", err)
			return 1
		}
	}

	var state *loader.State
	if opts.statePath != "" {
		var err error
		state, err = loader.LoadState(opts.statePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading state: %v\n", err)
			return 1
		}
	}

	logOut := &lockedWriter{w: stderr}
	logger := funcr.New(func(prefix, args string) {
		fmt.Fprintln(logOut, prefix, args)
	}, funcr.Options{Verbosity: opts.verbosity})

	paths := fs.Args()
	reports := make([]core.Report, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(max(opts.parallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			log := logger.WithValues("run", xid.New().String(), "program", path)
			reports[i], errs[i] = simulate(path, config, state, opts.maxCycles, log)
			return errs[i]
		})
	}
	failed := g.Wait() != nil

	for i, path := range paths {
		if errs[i] != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, errs[i])
			continue
		}
		printReport(stdout, path, reports[i], opts.quiet)
	}

	if failed {
		return 1
	}
	return 0
}

// simulate runs one program to completion.
func simulate(
	path string,
	config pipeline.Config,
	state *loader.State,
	maxCycles int64,
	log logr.Logger,
) (core.Report, error) {
	prog, err := loader.Load(path)
	if err != nil {
		return core.Report{}, err
	}

	opts := append(state.Options(), pipeline.WithLogger(log))
	c, err := core.NewCore(prog, config, opts...)
	if err != nil {
		return core.Report{}, err
	}

	cycles, err := c.Run(maxCycles)
	if err != nil {
		return core.Report{}, err
	}
	log.Info("simulation finished", "cycles", cycles)
	return c.Report(), nil
}

func printReport(w io.Writer, path string, r core.Report, quiet bool) {
	fmt.Fprintf(w, "Program: %s\n", path)
	if quiet {
		fmt.Fprintf(w, "Cycles: %d\n", r.Cycles)
		fmt.Fprintf(w, "Completed: %d\n", r.Stats.Completed)
		fmt.Fprintf(w, "CPI: %.3f\n", r.Stats.CPI())
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w)
	_, _ = r.WriteTo(w)
	fmt.Fprintln(w)
}

// lockedWriter serializes log lines from concurrent simulations.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
