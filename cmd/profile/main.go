// Package main provides a profiling wrapper for tomasim to identify
// performance bottlenecks in the scheduler.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/google/pprof/profile"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	benchName  = flag.String("bench", "daxpy_loop", "built-in benchmark to run when no program is given")
	repeat     = flag.Int("repeat", 1000, "number of times the program is simulated")
	top        = flag.Int("top", 10, "number of functions listed from the CPU profile")
)

func main() {
	flag.Parse()

	prog, opts, err := selectProgram()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
			if err := summarize(os.Stdout, *cpuProfile, *top); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading CPU profile: %v\n", err)
			}
		}()
	}

	s, err := pipeline.NewScheduler(prog, pipeline.DefaultConfig(), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating scheduler: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	var cycles int64
	for i := 0; i < *repeat; i++ {
		s.Reset()
		n, err := s.Run(0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
			os.Exit(1)
		}
		cycles += n
	}
	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Runs: %d\n", *repeat)
	fmt.Printf("Simulated cycles: %d\n", cycles)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if cycles > 0 {
		fmt.Printf("Cycles/second: %.0f\n", float64(cycles)/elapsed.Seconds())
	}
}

// selectProgram loads the program named on the command line, or the
// built-in benchmark chosen by -bench.
func selectProgram() (*insts.Program, []pipeline.SchedulerOption, error) {
	if flag.NArg() > 0 {
		prog, err := loader.Load(flag.Arg(0))
		return prog, nil, err
	}

	for _, b := range benchmarks.GetMicrobenchmarks() {
		if b.Name != *benchName {
			continue
		}
		prog, err := insts.ParseString(b.Source)
		if err != nil {
			return nil, nil, err
		}
		return prog, []pipeline.SchedulerOption{
			pipeline.WithRegisters(b.Registers),
			pipeline.WithMemory(b.Memory),
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown benchmark %q", *benchName)
}

// summarize prints the functions with the most flat CPU samples.
func summarize(w io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	p, err := profile.Parse(f)
	if err != nil {
		return err
	}

	flat := make(map[string]int64)
	var total int64
	for _, sample := range p.Sample {
		if len(sample.Value) == 0 || len(sample.Location) == 0 {
			continue
		}
		v := sample.Value[0]
		total += v
		loc := sample.Location[0]
		if len(loc.Line) == 0 || loc.Line[0].Function == nil {
			continue
		}
		flat[loc.Line[0].Function.Name] += v
	}

	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return flat[names[i]] > flat[names[j]] })
	if len(names) > n {
		names = names[:n]
	}

	fmt.Fprintf(w, "\nTop functions (%d samples):\n", total)
	for _, name := range names {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(flat[name]) / float64(total)
		}
		fmt.Fprintf(w, "  %5.1f%%  %s\n", pct, name)
	}
	return nil
}
