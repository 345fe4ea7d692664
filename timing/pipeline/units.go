package pipeline

import (
	"fmt"
	"sort"

	"github.com/sarchlab/tomasim/emu"
)

// ExecutionUnit is one functional unit. It executes a single station entry
// at a time.
type ExecutionUnit struct {
	ID         int
	Type       StationType
	Entry      *StationEntry
	StartCycle int64
	EndCycle   int64

	// reserved is the cycle a single-cycle operation passed through the
	// unit without occupying it.
	reserved int64
}

// Busy reports whether the unit is executing an entry.
func (u *ExecutionUnit) Busy() bool {
	return u.Entry != nil
}

// ExecutionUnitState is a snapshot of an execution unit.
type ExecutionUnitState struct {
	ID         int
	Type       StationType
	Tag        emu.Tag
	StartCycle int64
	EndCycle   int64
}

// ExecutionUnitPool holds a fixed number of units per station type.
type ExecutionUnitPool struct {
	units []*ExecutionUnit
}

// NewExecutionUnitPool creates fpAdd, fpMul, and integer units.
func NewExecutionUnitPool(fpAdd, fpMul, integer int) *ExecutionUnitPool {
	p := &ExecutionUnitPool{}
	add := func(t StationType, n int) {
		for i := 0; i < n; i++ {
			p.units = append(p.units, &ExecutionUnit{
				ID:       len(p.units),
				Type:     t,
				reserved: -1,
			})
		}
	}
	add(StationFPAdd, fpAdd)
	add(StationFPMul, fpMul)
	add(StationInteger, integer)
	return p
}

// Free returns an idle unit of type t usable in cycle, or nil.
func (p *ExecutionUnitPool) Free(t StationType, cycle int64) *ExecutionUnit {
	for _, u := range p.units {
		if u.Type == t && !u.Busy() && u.reserved != cycle {
			return u
		}
	}
	return nil
}

// Start begins executing e on u. The result is ready at the end of cycle
// start+latency-1.
func (p *ExecutionUnitPool) Start(u *ExecutionUnit, e *StationEntry, cycle int64, latency uint64) {
	if u.Busy() {
		panic(fmt.Sprintf("pipeline: start %s on busy unit %d", e.Tag, u.ID))
	}
	u.Entry = e
	u.StartCycle = cycle
	u.EndCycle = cycle + int64(latency) - 1
	e.Executing = true
}

// Bypass claims u for a single-cycle operation in cycle.
func (p *ExecutionUnitPool) Bypass(u *ExecutionUnit, cycle int64) {
	u.reserved = cycle
}

// Collect computes and returns the entries whose execution ends in or
// before cycle, oldest first, and frees their units.
func (p *ExecutionUnitPool) Collect(cycle int64) []*StationEntry {
	var done []*StationEntry
	for _, u := range p.units {
		if !u.Busy() || u.EndCycle > cycle {
			continue
		}
		e := u.Entry
		e.Result = emu.Compute(e.Inst, e.Vj, e.Vk)
		e.Executing = false
		e.Completed = true
		u.Entry = nil
		done = append(done, e)
	}
	sort.Slice(done, func(i, j int) bool { return done[i].seq < done[j].seq })
	return done
}

// Units returns a snapshot of every unit.
func (p *ExecutionUnitPool) Units() []ExecutionUnitState {
	out := make([]ExecutionUnitState, len(p.units))
	for i, u := range p.units {
		out[i] = ExecutionUnitState{ID: u.ID, Type: u.Type}
		if u.Busy() {
			out[i].Tag = u.Entry.Tag
			out[i].StartCycle = u.StartCycle
			out[i].EndCycle = u.EndCycle
		}
	}
	return out
}
