// Package benchmarks provides timing benchmark infrastructure for the
// Tomasulo simulator.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the scheduler
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsIssued counts dynamic instructions, loop iterations
	// included
	InstructionsIssued uint64 `json:"instructions_issued"`

	// InstructionsCompleted is the number of results written back
	InstructionsCompleted uint64 `json:"instructions_completed"`

	// CPI is cycles per completed instruction
	CPI float64 `json:"cpi"`

	// Issue stall cycles by cause
	StallCycles      uint64 `json:"stall_cycles"`
	StructuralStalls uint64 `json:"structural_stalls"`
	MemoryStalls     uint64 `json:"memory_stalls"`
	BranchStalls     uint64 `json:"branch_stalls"`

	// Hazards observed at issue
	RAWHazards uint64 `json:"raw_hazards"`
	WARHazards uint64 `json:"war_hazards"`
	WAWHazards uint64 `json:"waw_hazards"`

	// TakenBranches is the number of PC redirects
	TakenBranches uint64 `json:"taken_branches"`

	// BusContention counts cycles with results left waiting for the bus
	BusContention uint64 `json:"bus_contention"`

	// Data cache counters
	CacheHits   uint64 `json:"cache_hits"`
	CacheMisses uint64 `json:"cache_misses"`

	// Valid is true when the final registers and memory match the
	// benchmark's expectations
	Valid bool `json:"valid"`

	// Error describes why the run failed or did not validate
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Source is the assembly program
	Source string

	// Registers and Memory are the initial state
	Registers map[string]float64
	Memory    map[uint64]float64

	// ExpectedRegisters and ExpectedMemory are checked after the run
	ExpectedRegisters map[string]float64
	ExpectedMemory    map[uint64]float64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine is the simulated machine configuration
	Machine pipeline.Config

	// MaxCycles bounds each run. 0 means no limit.
	MaxCycles int64

	// Parallel is the number of benchmarks run at once. Values below 2 run
	// them one after another.
	Parallel int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives scheduler events
	Logger logr.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Machine:   pipeline.DefaultConfig(),
		MaxCycles: 100000,
		Parallel:  1,
		Output:    os.Stdout,
		Logger:    logr.Discard(),
		Verbose:   false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results in the order they were
// added. Every scheduler is independent, so benchmarks may run
// concurrently.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, len(h.benchmarks))

	var g errgroup.Group
	g.SetLimit(max(h.config.Parallel, 1))
	for i, bench := range h.benchmarks {
		g.Go(func() error {
			results[i] = h.runBenchmark(bench)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	prog, err := insts.ParseString(bench.Source)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	s, err := pipeline.NewScheduler(prog, h.config.Machine,
		pipeline.WithLogger(h.config.Logger.WithValues("benchmark", bench.Name)),
		pipeline.WithRegisters(bench.Registers),
		pipeline.WithMemory(bench.Memory),
	)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Run simulation and measure time
	start := time.Now()
	_, runErr := s.Run(h.config.MaxCycles)
	result.WallTime = time.Since(start)

	stats := s.Stats()
	hazards := s.Hazards()
	cacheStats := s.CacheStats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsIssued = stats.Issued
	result.InstructionsCompleted = stats.Completed
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.StructuralStalls = stats.StructuralStalls
	result.MemoryStalls = stats.MemoryStalls
	result.BranchStalls = stats.BranchStalls
	result.RAWHazards = hazards.RAW
	result.WARHazards = hazards.WAR
	result.WAWHazards = hazards.WAW
	result.TakenBranches = stats.Flushes
	result.BusContention = stats.BusContention
	result.CacheHits = cacheStats.Hits
	result.CacheMisses = cacheStats.Misses

	if runErr != nil {
		result.Error = runErr.Error()
		return result
	}
	if err := validate(bench, s); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Valid = true
	return result
}

func validate(bench Benchmark, s *pipeline.Scheduler) error {
	names := make([]string, 0, len(bench.ExpectedRegisters))
	for name := range bench.ExpectedRegisters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		want := bench.ExpectedRegisters[name]
		if got, _ := s.Register(name); got != want {
			return fmt.Errorf("%s = %g, want %g", name, got, want)
		}
	}

	addrs := make([]uint64, 0, len(bench.ExpectedMemory))
	for addr := range bench.ExpectedMemory {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, addr := range addrs {
		want := bench.ExpectedMemory[addr]
		if got := s.MemoryFloat64(addr); got != want {
			return fmt.Errorf("mem[%d] = %g, want %g", addr, got, want)
		}
	}
	return nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	p := message.NewPrinter(language.English)
	w := h.config.Output

	_, _ = p.Fprintln(w, "=== Tomasulo Timing Benchmark Results ===")
	_, _ = p.Fprintln(w, "")

	for _, r := range results {
		_, _ = p.Fprintf(w, "Benchmark: %s\n", r.Name)
		_, _ = p.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = p.Fprintf(w, "  Valid: %v\n", r.Valid)
		if r.Error != "" {
			_, _ = p.Fprintf(w, "  Error: %s\n", r.Error)
		}
		_, _ = p.Fprintln(w, "  --- Timing ---")
		_, _ = p.Fprintf(w, "  Simulated Cycles:       %d\n", r.SimulatedCycles)
		_, _ = p.Fprintf(w, "  Instructions Issued:    %d\n", r.InstructionsIssued)
		_, _ = p.Fprintf(w, "  Instructions Completed: %d\n", r.InstructionsCompleted)
		_, _ = p.Fprintf(w, "  CPI:                    %.3f\n", r.CPI)
		_, _ = p.Fprintf(w, "  Stall Cycles:           %d\n", r.StallCycles)
		_, _ = p.Fprintf(w, "  Structural Stalls:      %d\n", r.StructuralStalls)
		_, _ = p.Fprintf(w, "  Memory Stalls:          %d\n", r.MemoryStalls)
		_, _ = p.Fprintf(w, "  Branch Stalls:          %d\n", r.BranchStalls)
		_, _ = p.Fprintf(w, "  Taken Branches:         %d\n", r.TakenBranches)
		if h.config.Verbose {
			_, _ = p.Fprintln(w, "  --- Hazards ---")
			_, _ = p.Fprintf(w, "  RAW: %d  WAR: %d  WAW: %d\n",
				r.RAWHazards, r.WARHazards, r.WAWHazards)
			_, _ = p.Fprintf(w, "  Bus Contention: %d\n", r.BusContention)
		}

		if r.CacheHits > 0 || r.CacheMisses > 0 {
			_, _ = p.Fprintln(w, "  --- D-Cache ---")
			_, _ = p.Fprintf(w, "  Hits:   %d\n", r.CacheHits)
			_, _ = p.Fprintf(w, "  Misses: %d\n", r.CacheMisses)
		}

		_, _ = p.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = p.Fprintln(w, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,issued,completed,cpi,stalls,structural_stalls,memory_stalls,branch_stalls,raw,war,waw,taken_branches,cache_hits,cache_misses,valid")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsIssued,
			r.InstructionsCompleted,
			r.CPI,
			r.StallCycles,
			r.StructuralStalls,
			r.MemoryStalls,
			r.BranchStalls,
			r.RAWHazards,
			r.WARHazards,
			r.WAWHazards,
			r.TakenBranches,
			r.CacheHits,
			r.CacheMisses,
			r.Valid,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Machine is the simulated machine configuration
	Machine pipeline.Config `json:"machine"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Failed is the number of benchmarks that did not validate
	Failed int `json:"failed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all completed instructions
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the aggregate cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		s.TotalCycles += r.SimulatedCycles
		s.TotalInstructions += r.InstructionsCompleted
		s.TotalWallTime += r.WallTime
		if !r.Valid {
			s.Failed++
		}
	}
	if s.TotalInstructions > 0 {
		s.AverageCPI = float64(s.TotalCycles) / float64(s.TotalInstructions)
	}
	return s
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Machine:   h.config.Machine,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
