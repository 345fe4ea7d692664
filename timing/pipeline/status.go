package pipeline

import (
	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// InstructionStatus records the timing of one dynamic instance of an
// instruction. Each loop iteration gets its own record. Cycle fields are -1
// until reached.
type InstructionStatus struct {
	Index     int
	Iteration int
	Inst      *insts.Instruction
	Tag       emu.Tag

	Issue     int64
	ExecStart int64
	ExecEnd   int64
	WriteBack int64

	// StructuralStall is set when issue waited for a free slot.
	StructuralStall bool
}

func newStatus(index, iteration int, inst *insts.Instruction) *InstructionStatus {
	return &InstructionStatus{
		Index:     index,
		Iteration: iteration,
		Inst:      inst,
		Issue:     -1,
		ExecStart: -1,
		ExecEnd:   -1,
		WriteBack: -1,
	}
}

// Issued reports whether the instance has issued.
func (s InstructionStatus) Issued() bool {
	return s.Issue >= 0
}

// InFlight reports whether the instance issued but has not written back.
func (s InstructionStatus) InFlight() bool {
	return s.Issue >= 0 && s.WriteBack < 0
}

// HazardStats counts hazards observed at issue. RAW, WAR, and WAW are
// counted at most once per category per instruction.
type HazardStats struct {
	RAW        uint64
	WAR        uint64
	WAW        uint64
	Structural uint64
}

// Total returns the sum of all hazard counters.
func (h HazardStats) Total() uint64 {
	return h.RAW + h.WAR + h.WAW + h.Structural
}

// InstructionMix counts issued instructions by class.
type InstructionMix struct {
	Loads    uint64
	Stores   uint64
	FPOps    uint64
	IntOps   uint64
	Branches uint64
}

func (m *InstructionMix) count(inst *insts.Instruction) {
	switch inst.Class {
	case insts.ClassLoad:
		m.Loads++
	case insts.ClassStore:
		m.Stores++
	case insts.ClassFloatALU:
		m.FPOps++
	case insts.ClassIntALU:
		m.IntOps++
	case insts.ClassBranch:
		m.Branches++
	}
}

// detectHazards compares inst against the in-flight instructions.
func detectHazards(inst *insts.Instruction, inflight []*InstructionStatus) (raw, war, waw bool) {
	sources := inst.Sources()
	for _, o := range inflight {
		other := o.Inst
		if other.Dest != "" && contains(sources, other.Dest) {
			raw = true
		}
		if inst.Dest == "" {
			continue
		}
		if other.Dest == inst.Dest {
			waw = true
		}
		if contains(other.Sources(), inst.Dest) {
			war = true
		}
	}
	return raw, war, waw
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Statistics holds scheduler performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Issued is the number of instructions issued.
	Issued uint64
	// Completed is the number of results written back.
	Completed uint64
	// Stalls is the number of cycles in which an instruction was waiting to
	// issue but could not.
	Stalls uint64
	// StructuralStalls counts issue stalls caused by a full resource.
	StructuralStalls uint64
	// MemoryStalls counts issue stalls caused by a possible address conflict.
	MemoryStalls uint64
	// BranchStalls counts issue stalls behind an unresolved branch.
	BranchStalls uint64
	// Flushes is the number of taken branches that redirected the PC.
	Flushes uint64
	// Skipped is the number of unsupported instructions skipped at issue.
	Skipped uint64
	// BusContention counts cycles in which results were left waiting for
	// the common data bus after a broadcast.
	BusContention uint64
}

// CPI returns the cycles per completed instruction.
func (s Statistics) CPI() float64 {
	if s.Completed == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Completed)
}

// IPC returns the completed instructions per cycle.
func (s Statistics) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Cycles)
}
