// Package core provides the cycle-accurate Tomasulo core model.
// It wraps the pipeline scheduler to provide a high-level interface.
package core

import (
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions issued.
	Instructions uint64
	// Completed is the number of results written back.
	Completed uint64
	// Stalls is the number of issue stall cycles.
	Stalls uint64
	// Flushes is the number of taken branches.
	Flushes uint64
	// CacheHits and CacheMisses count data cache lookups.
	CacheHits   uint64
	CacheMisses uint64
}

// CPI returns cycles per completed instruction.
func (s Stats) CPI() float64 {
	if s.Completed == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Completed)
}

// Core represents a cycle-accurate Tomasulo machine running one program.
type Core struct {
	// Scheduler is the underlying Tomasulo scheduler.
	Scheduler *pipeline.Scheduler
}

// NewCore creates a core for prog with the given machine configuration.
func NewCore(
	prog *insts.Program,
	config pipeline.Config,
	opts ...pipeline.SchedulerOption,
) (*Core, error) {
	s, err := pipeline.NewScheduler(prog, config, opts...)
	if err != nil {
		return nil, err
	}
	return &Core{Scheduler: s}, nil
}

// Tick executes one cycle.
func (c *Core) Tick() {
	c.Scheduler.Step()
}

// Done returns true once every instruction has issued and written back.
func (c *Core) Done() bool {
	return c.Scheduler.Done()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.Scheduler.Stats()
	cs := c.Scheduler.CacheStats()
	return Stats{
		Cycles:       s.Cycles,
		Instructions: s.Issued,
		Completed:    s.Completed,
		Stalls:       s.Stalls,
		Flushes:      s.Flushes,
		CacheHits:    cs.Hits,
		CacheMisses:  cs.Misses,
	}
}

// Run executes the core until the program finishes or maxCycles elapse.
// A maxCycles of 0 means no limit. Returns the cycle count.
func (c *Core) Run(maxCycles int64) (int64, error) {
	return c.Scheduler.Run(maxCycles)
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if done.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Scheduler.RunCycles(cycles)
}

// Reset restores the initial state.
func (c *Core) Reset() {
	c.Scheduler.Reset()
}
