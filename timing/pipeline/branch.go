package pipeline

import (
	"fmt"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// BranchPhase is the state of the branch unit.
type BranchPhase uint8

// Branch unit phases.
const (
	BranchIdle BranchPhase = iota
	BranchWaiting
	BranchExecuting
	BranchResolved
	BranchWrittenBack
)

func (p BranchPhase) String() string {
	switch p {
	case BranchWaiting:
		return "WAITING"
	case BranchExecuting:
		return "EXECUTING"
	case BranchResolved:
		return "RESOLVED"
	case BranchWrittenBack:
		return "WRITTEN_BACK"
	default:
		return "IDLE"
	}
}

// BranchState is a snapshot of the branch unit.
type BranchState struct {
	Phase      BranchPhase
	Tag        emu.Tag
	Inst       *insts.Instruction
	Index      int
	Vj, Vk     float64
	Qj, Qk     emu.Tag
	ReadyCycle int64
	StartCycle int64
	EndCycle   int64
	Taken      bool
	Target     int
}

// BranchUnit resolves one conditional branch at a time. It moves from
// idle through operand wait and execution to resolved, and is cleared by
// the scheduler after the branch writes back.
type BranchUnit struct {
	state BranchState
	tags  *TagAllocator
}

// NewBranchUnit creates an idle branch unit.
func NewBranchUnit(tags *TagAllocator) *BranchUnit {
	return &BranchUnit{tags: tags}
}

// Busy reports whether a branch occupies the unit.
func (b *BranchUnit) Busy() bool {
	return b.state.Phase != BranchIdle
}

// InFlight reports whether a branch has issued but not written back.
func (b *BranchUnit) InFlight() bool {
	return b.Busy() && b.state.Phase != BranchWrittenBack
}

// State returns a snapshot of the unit.
func (b *BranchUnit) State() BranchState {
	return b.state
}

// Accept places the branch at program index into the unit. Calling Accept
// on a busy unit panics.
func (b *BranchUnit) Accept(inst *insts.Instruction, index int, regs *emu.RegFile, cycle int64) emu.Tag {
	if b.Busy() {
		panic(fmt.Sprintf("pipeline: accept %q into busy branch unit", inst.Text))
	}

	s := BranchState{
		Phase:      BranchWaiting,
		Tag:        b.tags.Allocate(StationBranch),
		Inst:       inst,
		Index:      index,
		ReadyCycle: -1,
	}
	var freshJ, freshK bool
	s.Vj, s.Qj, freshJ = readOperand(regs, inst.Src1, cycle)
	s.Vk, s.Qk, freshK = readOperand(regs, inst.Src2, cycle)
	if freshJ || freshK {
		s.ReadyCycle = cycle
	}

	b.state = s
	return s.Tag
}

// ReadyToStart reports whether the waiting branch may begin evaluating in
// cycle.
func (b *BranchUnit) ReadyToStart(cycle int64) bool {
	s := &b.state
	return s.Phase == BranchWaiting &&
		s.Qj == emu.NoTag && s.Qk == emu.NoTag &&
		(s.ReadyCycle < 0 || s.ReadyCycle < cycle)
}

// Start begins evaluating the branch. It finishes at the end of cycle
// start+latency-1.
func (b *BranchUnit) Start(cycle int64, latency uint64) {
	b.state.Phase = BranchExecuting
	b.state.StartCycle = cycle
	b.state.EndCycle = cycle + int64(latency) - 1
}

// Finished reports whether the executing branch's latency has elapsed.
func (b *BranchUnit) Finished(cycle int64) bool {
	return b.state.Phase == BranchExecuting && cycle >= b.state.EndCycle
}

// Resolve evaluates the condition and looks up the taken target.
func (b *BranchUnit) Resolve(prog *insts.Program) {
	s := &b.state
	s.Taken = emu.BranchTaken(s.Inst, s.Vj, s.Vk)
	s.Target = s.Index + 1
	if s.Taken {
		target, ok := prog.LabelIndex(s.Inst.Target)
		if !ok {
			panic(fmt.Sprintf("pipeline: %v %q", insts.ErrUnknownLabel, s.Inst.Target))
		}
		s.Target = target
	}
	s.Phase = BranchResolved
}

// OnBroadcast wakes waiting operands and records the branch's own
// write-back.
func (b *BranchUnit) OnBroadcast(r Result, cycle int64) {
	s := &b.state
	if !b.Busy() {
		return
	}
	woke := wake(&s.Qj, &s.Vj, r.Tag, r.Value)
	woke = wake(&s.Qk, &s.Vk, r.Tag, r.Value) || woke
	if woke {
		s.ReadyCycle = cycle
	}
	if s.Tag == r.Tag {
		s.Phase = BranchWrittenBack
	}
}

// Clear returns the unit to idle.
func (b *BranchUnit) Clear() {
	b.state = BranchState{}
}
