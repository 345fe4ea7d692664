// Package latency provides instruction timing models for cycle-accurate simulation.
//
// The latency values can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/tomasim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given
// instruction. Load and store latencies exclude the cache access time.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Class {
	case insts.ClassFloatALU:
		switch inst.Arith() {
		case insts.ArithMul:
			return t.config.FPMulLatency
		case insts.ArithDiv:
			return t.config.FPDivLatency
		default:
			return t.config.FPAddLatency
		}

	case insts.ClassIntALU:
		return t.config.IntLatency

	case insts.ClassLoad:
		return t.config.LoadLatency

	case insts.ClassStore:
		return t.config.StoreLatency

	case insts.ClassBranch:
		return t.config.BranchLatency

	default:
		return 1
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Class == insts.ClassLoad
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Class == insts.ClassStore
}

// IsBranchOp returns true if the instruction is a branch operation.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	return inst != nil && inst.Class == insts.ClassBranch
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
