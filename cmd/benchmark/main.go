// Command benchmark runs the tomasim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv      Output results in CSV format (default: human-readable)
//	-json     Output results as a JSON report
//	-config   Machine configuration file (JSON or YAML)
//	-core     Run only the core benchmarks
//	-j        Number of benchmarks run at once
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/tomasim/benchmarks"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	configPath := flag.String("config", "", "Machine configuration file (JSON or YAML)")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	parallel := flag.Int("j", 1, "Number of benchmarks run at once")
	verbosity := flag.Int("v", -1, "Scheduler log verbosity (-1 = off)")
	flag.Parse()

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	config.Parallel = *parallel
	config.Verbose = *verbosity >= 0
	if *configPath != "" {
		machine, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading machine config: %v\n", err)
			os.Exit(1)
		}
		config.Machine = machine
	}
	if *verbosity >= 0 {
		config.Logger = funcr.New(func(prefix, args string) {
			fmt.Fprintln(os.Stderr, prefix, args)
		}, funcr.Options{Verbosity: *verbosity})
	}

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	// Print configuration
	if !*csvOutput && !*jsonOutput {
		fmt.Println("Tomasulo Timing Benchmark Harness")
		fmt.Println("=================================")
		fmt.Printf("Stations: FP add %d, FP mul %d, integer %d\n",
			config.Machine.FPAddStations, config.Machine.FPMulStations, config.Machine.IntStations)
		fmt.Printf("Buffers: load %d, store %d\n",
			config.Machine.LoadBuffers, config.Machine.StoreBuffers)
		fmt.Printf("Cache: %d B, %d B blocks\n",
			config.Machine.Cache.Size, config.Machine.Cache.BlockSize)
		fmt.Println("")
	}

	// Run benchmarks
	results := harness.RunAll()
	summary := benchmarks.Summarize(results)

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		fmt.Println("=== Summary ===")
		fmt.Printf("Benchmarks: %d (%d failed)\n", summary.TotalBenchmarks, summary.Failed)
		fmt.Printf("Total cycles: %d\n", summary.TotalCycles)
		fmt.Printf("Average CPI: %.3f\n", summary.AverageCPI)
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
