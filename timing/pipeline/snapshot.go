package pipeline

import (
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
)

// Cycle returns the number of cycles simulated so far.
func (s *Scheduler) Cycle() int64 {
	return s.cycle - 1
}

// PC returns the index of the next instruction to issue.
func (s *Scheduler) PC() int {
	return s.pc
}

// Program returns the simulated program.
func (s *Scheduler) Program() *insts.Program {
	return s.program
}

// Config returns the machine configuration.
func (s *Scheduler) Config() Config {
	return s.config.Clone()
}

// Stats returns performance statistics.
func (s *Scheduler) Stats() Statistics {
	return s.stats
}

// Hazards returns the hazard counters.
func (s *Scheduler) Hazards() HazardStats {
	return s.hazards
}

// Mix returns the issued instruction mix.
func (s *Scheduler) Mix() InstructionMix {
	return s.mix
}

// Statuses returns every instruction status record in allocation order.
// Records of later loop iterations follow the first iteration.
func (s *Scheduler) Statuses() []InstructionStatus {
	out := make([]InstructionStatus, len(s.statuses))
	for i, st := range s.statuses {
		out[i] = *st
	}
	return out
}

// Status returns the record for an instruction's iteration.
func (s *Scheduler) Status(index, iteration int) (InstructionStatus, bool) {
	for _, st := range s.statuses {
		if st.Index == index && st.Iteration == iteration {
			return *st, true
		}
	}
	return InstructionStatus{}, false
}

// Stations returns the occupied reservation stations.
func (s *Scheduler) Stations() []StationEntry {
	return s.stations.Entries()
}

// LoadBuffer returns the occupied load buffer slots.
func (s *Scheduler) LoadBuffer() []MemoryEntry {
	return s.loads.Entries()
}

// StoreBuffer returns the occupied store buffer slots.
func (s *Scheduler) StoreBuffer() []MemoryEntry {
	return s.stores.Entries()
}

// Branch returns the branch unit state.
func (s *Scheduler) Branch() BranchState {
	return s.branch.State()
}

// Units returns the execution unit states.
func (s *Scheduler) Units() []ExecutionUnitState {
	return s.units.Units()
}

// PendingResults returns the results waiting for the bus.
func (s *Scheduler) PendingResults() []Result {
	return s.bus.Pending()
}

// Registers returns the register file.
func (s *Scheduler) Registers() []emu.RegisterState {
	return s.regs.Snapshot()
}

// Register returns a register's committed value and pending producer.
func (s *Scheduler) Register(name string) (float64, emu.Tag) {
	return s.regs.Value(name), s.regs.Producer(name)
}

// MemoryFloat64 reads a double from memory.
func (s *Scheduler) MemoryFloat64(addr uint64) float64 {
	return s.memory.ReadFloat64(addr)
}

// CacheLines returns the cache contents.
func (s *Scheduler) CacheLines() []cache.Line {
	return s.cache.Lines()
}

// CacheStats returns the cache counters.
func (s *Scheduler) CacheStats() cache.Statistics {
	return s.cache.Stats()
}
