package pipeline

import (
	"fmt"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// StationEntry is an ALU operation held in a reservation station. Each
// operand carries either a value (Vj/Vk) or the tag of its producer (Qj/Qk).
type StationEntry struct {
	Tag  emu.Tag
	Type StationType
	Inst *insts.Instruction
	Dest string

	Vj, Vk float64
	Qj, Qk emu.Tag

	// ReadyCycle is the last cycle an operand turned from tag to value, or
	// -1 if every operand was available at issue.
	ReadyCycle int64

	Executing   bool
	Completed   bool
	WrittenBack bool
	Result      float64

	seq uint64
}

// OperandsReady reports whether both operands hold values.
func (e *StationEntry) OperandsReady() bool {
	return e.Qj == emu.NoTag && e.Qk == emu.NoTag
}

// ReadyForDispatch reports whether the entry may start executing in cycle.
// An operand woken in cycle N is usable from cycle N+1.
func (e *StationEntry) ReadyForDispatch(cycle int64) bool {
	return e.OperandsReady() && !e.Executing && !e.Completed &&
		(e.ReadyCycle < 0 || e.ReadyCycle < cycle)
}

// ReservationStationPool holds the FP add, FP multiply, and integer
// reservation stations.
type ReservationStationPool struct {
	capacity [numStationTypes]int
	entries  []*StationEntry
	tags     *TagAllocator
	seq      uint64
}

// NewReservationStationPool creates a pool with the given capacities.
func NewReservationStationPool(fpAdd, fpMul, integer int, tags *TagAllocator) *ReservationStationPool {
	p := &ReservationStationPool{tags: tags}
	p.capacity[StationFPAdd] = fpAdd
	p.capacity[StationFPMul] = fpMul
	p.capacity[StationInteger] = integer
	return p
}

// Capacity returns the number of stations of a type.
func (p *ReservationStationPool) Capacity(t StationType) int {
	return p.capacity[t]
}

// Occupancy returns the number of busy stations of a type.
func (p *ReservationStationPool) Occupancy(t StationType) int {
	n := 0
	for _, e := range p.entries {
		if e.Type == t {
			n++
		}
	}
	return n
}

// HasFreeFor reports whether the station type serving inst has a free slot.
func (p *ReservationStationPool) HasFreeFor(inst *insts.Instruction) bool {
	t := StationFor(inst)
	return p.Occupancy(t) < p.capacity[t]
}

// Accept places inst into a free station, resolving its operands against
// regs and renaming its destination to the new tag. Calling Accept when
// HasFreeFor is false panics.
func (p *ReservationStationPool) Accept(
	inst *insts.Instruction,
	regs *emu.RegFile,
	cycle int64,
) *StationEntry {
	if !p.HasFreeFor(inst) {
		panic(fmt.Sprintf("pipeline: accept %q into full %s stations",
			inst.Text, StationFor(inst)))
	}

	t := StationFor(inst)
	p.seq++
	e := &StationEntry{
		Tag:        p.tags.Allocate(t),
		Type:       t,
		Inst:       inst,
		Dest:       inst.Dest,
		ReadyCycle: -1,
		seq:        p.seq,
	}

	var freshJ, freshK bool
	e.Vj, e.Qj, freshJ = readOperand(regs, inst.Src1, cycle)
	e.Vk, e.Qk, freshK = readOperand(regs, inst.Src2, cycle)
	if freshJ || freshK {
		e.ReadyCycle = cycle
	}

	if e.Dest != "" {
		regs.SetProducer(e.Dest, e.Tag)
	}

	p.entries = append(p.entries, e)
	return e
}

// OnBroadcast wakes operands waiting on the result and marks its producer
// as written back. The producer keeps its slot until Release.
func (p *ReservationStationPool) OnBroadcast(r Result, cycle int64) {
	for _, e := range p.entries {
		woke := wake(&e.Qj, &e.Vj, r.Tag, r.Value)
		woke = wake(&e.Qk, &e.Vk, r.Tag, r.Value) || woke
		if woke {
			e.ReadyCycle = cycle
		}
		if e.Tag == r.Tag {
			e.WrittenBack = true
		}
	}
}

// Release frees the station holding tag.
func (p *ReservationStationPool) Release(tag emu.Tag) bool {
	for i, e := range p.entries {
		if e.Tag == tag {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entry returns the station holding tag, or nil.
func (p *ReservationStationPool) Entry(tag emu.Tag) *StationEntry {
	for _, e := range p.entries {
		if e.Tag == tag {
			return e
		}
	}
	return nil
}

// Ready returns the entries that may dispatch in cycle, oldest first.
func (p *ReservationStationPool) Ready(cycle int64) []*StationEntry {
	var ready []*StationEntry
	for _, e := range p.entries {
		if e.ReadyForDispatch(cycle) {
			ready = append(ready, e)
		}
	}
	return ready
}

// Entries returns a snapshot of the occupied stations, oldest first.
func (p *ReservationStationPool) Entries() []StationEntry {
	out := make([]StationEntry, len(p.entries))
	for i, e := range p.entries {
		out[i] = *e
	}
	return out
}
