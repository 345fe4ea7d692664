package pipeline

import (
	"fmt"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// StationType identifies a class of scheduling resource.
type StationType uint8

// Station types.
const (
	StationFPAdd StationType = iota
	StationFPMul
	StationInteger
	StationLoad
	StationStore
	StationBranch
	numStationTypes
)

var stationNames = [numStationTypes]string{
	"FP_ADD", "FP_MUL", "INTEGER", "LOAD", "STORE", "BRANCH",
}

var tagPrefixes = [numStationTypes]string{"A", "M", "I", "L", "S", "B"}

// String returns the station type name.
func (t StationType) String() string {
	if t >= numStationTypes {
		return "UNKNOWN"
	}
	return stationNames[t]
}

// StationFor returns the resource an instruction is routed to.
func StationFor(inst *insts.Instruction) StationType {
	switch inst.Class {
	case insts.ClassFloatALU:
		if inst.IsMulDiv() {
			return StationFPMul
		}
		return StationFPAdd
	case insts.ClassIntALU:
		return StationInteger
	case insts.ClassLoad:
		return StationLoad
	case insts.ClassStore:
		return StationStore
	case insts.ClassBranch:
		return StationBranch
	default:
		panic(fmt.Sprintf("pipeline: no station for %s instruction %q",
			inst.Class, inst.Text))
	}
}

// TagAllocator hands out tags with sequential ids per station type. Tags
// are never reused within a run.
type TagAllocator struct {
	next [numStationTypes]int
}

// NewTagAllocator creates an allocator whose first tag of each type has
// id 1.
func NewTagAllocator() *TagAllocator {
	return &TagAllocator{}
}

// Allocate returns the next tag for station type t.
func (a *TagAllocator) Allocate(t StationType) emu.Tag {
	a.next[t]++
	return emu.Tag(fmt.Sprintf("%s%d", tagPrefixes[t], a.next[t]))
}

// readOperand resolves a source operand at issue time. It returns the value
// when no producer is pending, otherwise the producer tag. fresh is true when
// the value was committed by a broadcast in this cycle, in which case the
// consumer must wait one cycle before dispatch.
func readOperand(regs *emu.RegFile, src insts.Operand, cycle int64) (
	value float64, tag emu.Tag, fresh bool,
) {
	if src.IsImm {
		return src.Imm, emu.NoTag, false
	}
	if src.Reg == "" {
		return 0, emu.NoTag, false
	}
	if p := regs.Producer(src.Reg); p != emu.NoTag {
		return 0, p, false
	}
	return regs.Value(src.Reg), emu.NoTag, regs.WrittenAt(src.Reg) == cycle
}

// wake resolves an operand waiting on tag. It reports whether the operand
// was waiting on it.
func wake(q *emu.Tag, v *float64, tag emu.Tag, value float64) bool {
	if *q == emu.NoTag || *q != tag {
		return false
	}
	*q = emu.NoTag
	*v = value
	return true
}
