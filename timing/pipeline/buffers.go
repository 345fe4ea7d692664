package pipeline

import (
	"fmt"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

// MemoryEntry is a load or store waiting in a buffer.
type MemoryEntry struct {
	Tag  emu.Tag
	Type StationType
	Inst *insts.Instruction
	Dest string

	// Base register operand.
	Base    float64
	BaseTag emu.Tag
	Offset  int64

	// Value to store. Unused by loads.
	Value    float64
	ValueTag emu.Tag

	// ReadyCycle is the last cycle an operand turned from tag to value, or
	// -1 if every operand was available at issue.
	ReadyCycle int64

	// Address is valid once the base operand is known.
	Address      uint64
	AddressKnown bool

	Executing   bool
	Completed   bool
	WrittenBack bool
	StartCycle  int64
	EndCycle    int64
	CacheHit    bool
	Result      float64

	// Seq orders memory operations across both buffers in program order.
	Seq uint64
}

// Width returns the number of bytes accessed.
func (e *MemoryEntry) Width() int {
	return e.Inst.Width()
}

// OperandsReady reports whether the base (and, for stores, the value) are
// known.
func (e *MemoryEntry) OperandsReady() bool {
	return e.BaseTag == emu.NoTag &&
		(e.Type != StationStore || e.ValueTag == emu.NoTag)
}

// IsReadyForDispatch reports whether the entry may start in cycle.
func (e *MemoryEntry) IsReadyForDispatch(cycle int64) bool {
	return e.OperandsReady() && !e.Executing && !e.Completed &&
		(e.ReadyCycle < 0 || e.ReadyCycle < cycle)
}

// Remaining returns the cycles left before the access completes.
func (e *MemoryEntry) Remaining(cycle int64) int64 {
	if !e.Executing {
		return 0
	}
	return e.EndCycle - cycle + 1
}

// Overlaps reports whether the entry's access range intersects
// [addr, addr+width).
func (e *MemoryEntry) Overlaps(addr uint64, width int) bool {
	return rangesOverlap(e.Address, e.Width(), addr, width)
}

func (e *MemoryEntry) resolveAddress() {
	if e.BaseTag != emu.NoTag || e.AddressKnown {
		return
	}
	e.Address = effectiveAddress(e.Base, e.Offset)
	e.AddressKnown = true
}

func effectiveAddress(base float64, offset int64) uint64 {
	return uint64(int64(base) + offset)
}

func rangesOverlap(a uint64, aw int, b uint64, bw int) bool {
	return a < b+uint64(bw) && b < a+uint64(aw)
}

// MemoryBuffer holds loads or stores awaiting their memory access.
type MemoryBuffer struct {
	kind     StationType
	capacity int
	entries  []*MemoryEntry
	tags     *TagAllocator
}

// NewLoadBuffer creates a load buffer with capacity slots.
func NewLoadBuffer(capacity int, tags *TagAllocator) *MemoryBuffer {
	return &MemoryBuffer{kind: StationLoad, capacity: capacity, tags: tags}
}

// NewStoreBuffer creates a store buffer with capacity slots.
func NewStoreBuffer(capacity int, tags *TagAllocator) *MemoryBuffer {
	return &MemoryBuffer{kind: StationStore, capacity: capacity, tags: tags}
}

// Kind returns StationLoad or StationStore.
func (b *MemoryBuffer) Kind() StationType {
	return b.kind
}

// Capacity returns the number of slots.
func (b *MemoryBuffer) Capacity() int {
	return b.capacity
}

// HasFree reports whether a slot is free.
func (b *MemoryBuffer) HasFree() bool {
	return len(b.entries) < b.capacity
}

// Accept places inst into a free slot. Loads rename their destination.
// Calling Accept on a full buffer panics.
func (b *MemoryBuffer) Accept(
	inst *insts.Instruction,
	regs *emu.RegFile,
	seq uint64,
	cycle int64,
) *MemoryEntry {
	if !b.HasFree() {
		panic(fmt.Sprintf("pipeline: accept %q into full %s buffer", inst.Text, b.kind))
	}
	if StationFor(inst) != b.kind {
		panic(fmt.Sprintf("pipeline: %s instruction %q routed to %s buffer",
			inst.Class, inst.Text, b.kind))
	}

	e := &MemoryEntry{
		Tag:        b.tags.Allocate(b.kind),
		Type:       b.kind,
		Inst:       inst,
		Offset:     inst.Offset,
		ReadyCycle: -1,
		Seq:        seq,
	}

	var fresh bool
	e.Base, e.BaseTag, fresh = readOperand(regs, insts.RegOperand(inst.Base), cycle)
	if b.kind == StationStore {
		var freshValue bool
		e.Value, e.ValueTag, freshValue = readOperand(regs, inst.Src1, cycle)
		fresh = fresh || freshValue
	}
	if fresh {
		e.ReadyCycle = cycle
	}
	e.resolveAddress()

	if b.kind == StationLoad {
		e.Dest = inst.Dest
		regs.SetProducer(e.Dest, e.Tag)
	}

	b.entries = append(b.entries, e)
	return e
}

// OnBroadcast wakes operands waiting on the result, computes addresses
// whose base just arrived, and marks the producer as written back.
func (b *MemoryBuffer) OnBroadcast(r Result, cycle int64) {
	for _, e := range b.entries {
		woke := wake(&e.BaseTag, &e.Base, r.Tag, r.Value)
		if woke {
			e.resolveAddress()
		}
		if b.kind == StationStore {
			woke = wake(&e.ValueTag, &e.Value, r.Tag, r.Value) || woke
		}
		if woke {
			e.ReadyCycle = cycle
		}
		if e.Tag == r.Tag {
			e.WrittenBack = true
		}
	}
}

// Release frees the slot holding tag.
func (b *MemoryBuffer) Release(tag emu.Tag) bool {
	for i, e := range b.entries {
		if e.Tag == tag {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entry returns the slot holding tag, or nil.
func (b *MemoryBuffer) Entry(tag emu.Tag) *MemoryEntry {
	for _, e := range b.entries {
		if e.Tag == tag {
			return e
		}
	}
	return nil
}

// Pending returns the entries that have not written back, in issue order.
func (b *MemoryBuffer) Pending() []*MemoryEntry {
	var out []*MemoryEntry
	for _, e := range b.entries {
		if !e.WrittenBack {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a snapshot of the occupied slots in issue order.
func (b *MemoryBuffer) Entries() []MemoryEntry {
	out := make([]MemoryEntry, len(b.entries))
	for i, e := range b.entries {
		out[i] = *e
	}
	return out
}
