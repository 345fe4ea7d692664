// Package pipeline provides a cycle-accurate Tomasulo scheduler: in-order
// issue into reservation stations and load/store buffers, out-of-order
// execution, and a common data bus that broadcasts one result per cycle.
package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/go-logr/logr"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/latency"
)

// ErrCycleLimit is returned by Run when the program does not finish within
// the cycle budget.
var ErrCycleLimit = errors.New("cycle limit reached")

// SchedulerOption is a functional option for configuring the Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger for scheduling events.
func WithLogger(logger logr.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithRegisters sets initial register values, applied before the first
// cycle and again on every Reset.
func WithRegisters(values map[string]float64) SchedulerOption {
	return func(s *Scheduler) {
		s.initialRegs = maps.Clone(values)
	}
}

// WithMemory sets initial memory doubles by byte address, applied before
// the first cycle and again on every Reset.
func WithMemory(values map[uint64]float64) SchedulerOption {
	return func(s *Scheduler) {
		s.initialMem = maps.Clone(values)
	}
}

// Scheduler drives the Tomasulo machine one cycle at a time. It owns every
// component and is the only code that mutates them. Each Step runs the
// phases in a fixed order: slot release, write-back, execution collection,
// dispatch, memory, branch, and issue.
type Scheduler struct {
	program *insts.Program
	config  Config
	logger  logr.Logger

	initialRegs map[string]float64
	initialMem  map[uint64]float64

	latency  *latency.Table
	regs     *emu.RegFile
	memory   *emu.Memory
	cache    *cache.Cache
	tags     *TagAllocator
	stations *ReservationStationPool
	units    *ExecutionUnitPool
	loads    *MemoryBuffer
	stores   *MemoryBuffer
	branch   *BranchUnit
	bus      *CommonDataBus

	statuses []*InstructionStatus
	current  []*InstructionStatus
	byTag    map[emu.Tag]*InstructionStatus

	// cycle is the number of the next cycle to execute.
	cycle int64
	pc    int

	memSeq         uint64
	pendingRelease []emu.Tag
	branchWritten  bool

	hazards HazardStats
	mix     InstructionMix
	stats   Statistics
}

// NewScheduler creates a scheduler for prog. It fails if the configuration
// is invalid, a branch target is undefined, or an initial register does not
// exist.
func NewScheduler(prog *insts.Program, config Config, opts ...SchedulerOption) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		program: prog,
		config:  config.Clone(),
		logger:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := emu.NewRegFile().Load(s.initialRegs); err != nil {
		return nil, fmt.Errorf("invalid initial registers: %w", err)
	}

	s.Reset()
	return s, nil
}

// Reset reinitializes every component, reapplies the initial state, and
// sets the program counter to 0.
func (s *Scheduler) Reset() {
	s.latency = latency.NewTableWithConfig(s.config.Latency.Clone())

	s.regs = emu.NewRegFile()
	_ = s.regs.Load(s.initialRegs)
	s.memory = emu.NewMemory()
	s.memory.Load(s.initialMem)
	s.cache = cache.New(s.config.Cache, cache.NewMemoryBacking(s.memory))

	s.tags = NewTagAllocator()
	s.stations = NewReservationStationPool(
		s.config.FPAddStations, s.config.FPMulStations, s.config.IntStations, s.tags)
	s.units = NewExecutionUnitPool(
		s.config.FPAddUnits, s.config.FPMulUnits, s.config.IntUnits)
	s.loads = NewLoadBuffer(s.config.LoadBuffers, s.tags)
	s.stores = NewStoreBuffer(s.config.StoreBuffers, s.tags)
	s.branch = NewBranchUnit(s.tags)
	s.bus = NewCommonDataBus(
		s.stations, s.loads, s.stores, s.branch, regFileSubscriber{s.regs})

	s.statuses = nil
	s.current = make([]*InstructionStatus, s.program.Len())
	s.byTag = make(map[emu.Tag]*InstructionStatus)
	for i := range s.current {
		s.newStatus(i, 1)
	}

	s.cycle = 1
	s.pc = 0
	s.memSeq = 0
	s.pendingRelease = nil
	s.branchWritten = false
	s.hazards = HazardStats{}
	s.mix = InstructionMix{}
	s.stats = Statistics{}
}

func (s *Scheduler) newStatus(index, iteration int) *InstructionStatus {
	st := newStatus(index, iteration, s.program.At(index))
	s.statuses = append(s.statuses, st)
	s.current[index] = st
	return st
}

// Step simulates one cycle and reports whether an instruction issued.
func (s *Scheduler) Step() bool {
	c := s.cycle

	s.releaseSlots()
	s.writeBack(c)
	s.collectUnits(c)
	s.dispatch(c)
	s.advanceMemory(c)
	s.advanceBranch(c)
	issued := s.issue(c)

	s.cycle++
	s.stats.Cycles++
	return issued
}

// Done reports whether every instruction has issued and written back.
func (s *Scheduler) Done() bool {
	if s.pc < s.program.Len() || s.bus.Len() > 0 || s.branch.Busy() {
		return false
	}
	for _, st := range s.statuses {
		if st.InFlight() {
			return false
		}
	}
	return true
}

// Run steps until the program finishes. A positive maxCycles bounds the
// total number of cycles; exceeding it returns ErrCycleLimit.
func (s *Scheduler) Run(maxCycles int64) (int64, error) {
	for !s.Done() {
		if maxCycles > 0 && s.Cycle() >= maxCycles {
			return s.Cycle(), fmt.Errorf("%w after %d cycles", ErrCycleLimit, s.Cycle())
		}
		s.Step()
	}
	return s.Cycle(), nil
}

// RunCycles executes at most cycles cycles.
// Returns true if the program is still running.
func (s *Scheduler) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !s.Done(); i++ {
		s.Step()
	}
	return !s.Done()
}

// Phase 1: free slots whose result was broadcast last cycle.
func (s *Scheduler) releaseSlots() {
	for _, tag := range s.pendingRelease {
		if s.stations.Release(tag) || s.loads.Release(tag) || s.stores.Release(tag) {
			continue
		}
		panic(fmt.Sprintf("pipeline: release of unknown tag %s", tag))
	}
	s.pendingRelease = nil
}

// Phase 2: broadcast at most one result.
func (s *Scheduler) writeBack(c int64) {
	r, ok := s.bus.TickAndBroadcast(c)
	if !ok {
		return
	}
	if s.bus.Len() > 0 {
		s.stats.BusContention++
	}

	st := s.byTag[r.Tag]
	st.WriteBack = c
	s.stats.Completed++
	s.logger.V(1).Info("write back", "cycle", c, "tag", r.Tag, "dest", r.Dest, "value", r.Value)

	switch st.Inst.Class {
	case insts.ClassLoad:
		e := s.loads.Entry(r.Tag)
		if !e.CacheHit {
			s.cache.CompleteFill(e.Address)
		}
		s.pendingRelease = append(s.pendingRelease, r.Tag)
	case insts.ClassStore:
		e := s.stores.Entry(r.Tag)
		s.cache.WriteThrough(e.Address, emu.EncodeStore(e.Inst, e.Value))
		s.pendingRelease = append(s.pendingRelease, r.Tag)
	case insts.ClassBranch:
		s.branchWritten = true
	case insts.ClassFloatALU, insts.ClassIntALU:
		s.pendingRelease = append(s.pendingRelease, r.Tag)
	default:
		panic(fmt.Sprintf("pipeline: write back of %s instruction", st.Inst.Class))
	}
}

// Phase 3: results of finished execution units join the bus queue.
func (s *Scheduler) collectUnits(c int64) {
	for _, e := range s.units.Collect(c) {
		s.byTag[e.Tag].ExecEnd = c
		s.bus.Enqueue(e.Tag, e.Dest, e.Result)
	}
}

// Phase 4: ready station entries start on free units.
func (s *Scheduler) dispatch(c int64) {
	for _, e := range s.stations.Ready(c) {
		s.dispatchEntry(e, c)
	}
}

func (s *Scheduler) dispatchEntry(e *StationEntry, c int64) bool {
	unit := s.units.Free(e.Type, c)
	if unit == nil {
		return false
	}

	st := s.byTag[e.Tag]
	st.ExecStart = c
	lat := s.latency.GetLatency(e.Inst)
	s.logger.V(1).Info("dispatch", "cycle", c, "tag", e.Tag, "unit", unit.ID, "latency", lat)

	if lat <= 1 {
		s.units.Bypass(unit, c)
		e.Result = emu.Compute(e.Inst, e.Vj, e.Vk)
		e.Completed = true
		st.ExecEnd = c
		s.bus.Enqueue(e.Tag, e.Dest, e.Result)
		return true
	}

	s.units.Start(unit, e, c, lat)
	return true
}

// Phase 5: finish and start memory accesses in program order.
func (s *Scheduler) advanceMemory(c int64) {
	ops := s.memoryOps()
	for _, e := range ops {
		if e.Executing && c >= e.EndCycle {
			s.completeMemory(e, c)
		}
	}
	for _, e := range ops {
		if e.IsReadyForDispatch(c) && s.canStart(e) {
			s.startMemory(e, c)
		}
	}
}

// memoryOps returns every load and store not yet written back, in program
// order.
func (s *Scheduler) memoryOps() []*MemoryEntry {
	ops := append(s.loads.Pending(), s.stores.Pending()...)
	sort.Slice(ops, func(i, j int) bool { return ops[i].Seq < ops[j].Seq })
	return ops
}

// canStart reports whether no earlier pending memory operation may touch
// the same bytes as e.
func (s *Scheduler) canStart(e *MemoryEntry) bool {
	if !e.AddressKnown {
		return false
	}
	for _, o := range s.memoryOps() {
		if o.Seq >= e.Seq {
			break
		}
		if !o.AddressKnown || o.Overlaps(e.Address, e.Width()) {
			return false
		}
	}
	return true
}

func (s *Scheduler) startMemory(e *MemoryEntry, c int64) {
	access := s.cache.Access(e.Address)
	if e.Type == StationLoad && !access.Hit {
		s.cache.MarkPendingFill(e.Address)
	}

	base := s.latency.GetLatency(e.Inst)
	e.Executing = true
	e.CacheHit = access.Hit
	e.StartCycle = c
	e.EndCycle = c + int64(base+access.Latency) - 1
	s.byTag[e.Tag].ExecStart = c
	s.logger.V(1).Info("memory access", "cycle", c, "tag", e.Tag,
		"addr", e.Address, "hit", access.Hit, "end", e.EndCycle)

	if c >= e.EndCycle {
		s.completeMemory(e, c)
	}
}

func (s *Scheduler) completeMemory(e *MemoryEntry, c int64) {
	e.Executing = false
	e.Completed = true
	s.byTag[e.Tag].ExecEnd = c

	if e.Type == StationLoad {
		e.Result = emu.LoadValue(s.memory, e.Inst, e.Address)
		s.bus.Enqueue(e.Tag, e.Dest, e.Result)
		return
	}
	s.bus.Enqueue(e.Tag, "", e.Value)
}

// Phase 6: evaluate the branch and redirect on its write-back.
func (s *Scheduler) advanceBranch(c int64) {
	if s.branchWritten {
		s.redirect()
		return
	}
	s.tryStartBranch(c)
	if s.branch.Finished(c) {
		s.resolveBranch(c)
	}
}

func (s *Scheduler) tryStartBranch(c int64) {
	if !s.branch.ReadyToStart(c) {
		return
	}
	state := s.branch.State()
	s.branch.Start(c, s.latency.GetLatency(state.Inst))
	s.byTag[state.Tag].ExecStart = c
}

func (s *Scheduler) resolveBranch(c int64) {
	s.branch.Resolve(s.program)
	state := s.branch.State()
	s.byTag[state.Tag].ExecEnd = c

	value := 0.0
	if state.Taken {
		value = 1
	}
	s.bus.Enqueue(state.Tag, "", value)
}

func (s *Scheduler) redirect() {
	state := s.branch.State()
	s.branchWritten = false
	s.branch.Clear()

	if !state.Taken {
		return
	}

	s.pc = state.Target
	s.stats.Flushes++
	s.logger.Info("branch taken", "branch", state.Index, "target", state.Target)

	if state.Target > state.Index {
		return
	}
	for i := state.Target; i <= state.Index; i++ {
		if cur := s.current[i]; cur.Issued() {
			s.newStatus(i, cur.Iteration+1)
		}
	}
}

// Phase 7: issue the instruction at the PC if its resource is free.
func (s *Scheduler) issue(c int64) bool {
	if s.branch.InFlight() {
		s.stats.Stalls++
		s.stats.BranchStalls++
		return false
	}

	s.skipUnsupported()
	if s.pc >= s.program.Len() {
		return false
	}

	inst := s.program.At(s.pc)
	st := s.current[s.pc]
	if st.Issued() {
		st = s.newStatus(s.pc, st.Iteration+1)
	}

	if !s.hasFreeSlot(inst) {
		st.StructuralStall = true
		s.stats.Stalls++
		s.stats.StructuralStalls++
		s.logger.V(2).Info("structural stall", "cycle", c, "pc", s.pc)
		return false
	}
	if s.memoryConflict(inst) {
		s.stats.Stalls++
		s.stats.MemoryStalls++
		s.logger.V(2).Info("memory conflict stall", "cycle", c, "pc", s.pc)
		return false
	}

	s.countHazards(inst, st)

	var tag emu.Tag
	switch inst.Class {
	case insts.ClassFloatALU, insts.ClassIntALU:
		e := s.stations.Accept(inst, s.regs, c)
		tag = e.Tag
		s.record(st, tag, c)
		if e.ReadyForDispatch(c) {
			s.dispatchEntry(e, c)
		}
	case insts.ClassLoad, insts.ClassStore:
		s.memSeq++
		buf := s.loads
		if inst.Class == insts.ClassStore {
			buf = s.stores
		}
		e := buf.Accept(inst, s.regs, s.memSeq, c)
		tag = e.Tag
		s.record(st, tag, c)
		if e.IsReadyForDispatch(c) && s.canStart(e) {
			s.startMemory(e, c)
		}
	case insts.ClassBranch:
		tag = s.branch.Accept(inst, s.pc, s.regs, c)
		s.record(st, tag, c)
		s.tryStartBranch(c)
		if s.branch.Finished(c) {
			s.resolveBranch(c)
		}
	default:
		panic(fmt.Sprintf("pipeline: issue of %s instruction", inst.Class))
	}

	s.logger.V(1).Info("issue", "cycle", c, "pc", s.pc, "inst", inst.String(), "tag", tag)
	s.mix.count(inst)
	s.stats.Issued++
	s.pc++
	return true
}

func (s *Scheduler) record(st *InstructionStatus, tag emu.Tag, c int64) {
	st.Issue = c
	st.Tag = tag
	s.byTag[tag] = st
}

func (s *Scheduler) skipUnsupported() {
	for s.pc < s.program.Len() && s.program.At(s.pc).Class == insts.ClassUnknown {
		inst := s.program.At(s.pc)
		s.logger.Info("skipping unsupported instruction", "pc", s.pc, "inst", inst.Text)
		s.stats.Skipped++
		s.pc++
	}
}

func (s *Scheduler) hasFreeSlot(inst *insts.Instruction) bool {
	switch inst.Class {
	case insts.ClassFloatALU, insts.ClassIntALU:
		return s.stations.HasFreeFor(inst)
	case insts.ClassLoad:
		return s.loads.HasFree()
	case insts.ClassStore:
		return s.stores.HasFree()
	case insts.ClassBranch:
		return !s.branch.Busy()
	default:
		return false
	}
}

// memoryConflict reports whether a load or store must wait for an earlier
// memory operation. Either address being unknown counts as a conflict.
func (s *Scheduler) memoryConflict(inst *insts.Instruction) bool {
	if inst.Class != insts.ClassLoad && inst.Class != insts.ClassStore {
		return false
	}

	ops := s.memoryOps()
	if len(ops) == 0 {
		return false
	}
	if s.regs.Producer(inst.Base) != emu.NoTag {
		return true
	}

	addr := effectiveAddress(s.regs.Value(inst.Base), inst.Offset)
	for _, o := range ops {
		if !o.AddressKnown || o.Overlaps(addr, inst.Width()) {
			return true
		}
	}
	return false
}

func (s *Scheduler) countHazards(inst *insts.Instruction, st *InstructionStatus) {
	var inflight []*InstructionStatus
	for _, o := range s.statuses {
		if o.InFlight() {
			inflight = append(inflight, o)
		}
	}

	raw, war, waw := detectHazards(inst, inflight)
	if raw {
		s.hazards.RAW++
	}
	if war {
		s.hazards.WAR++
	}
	if waw {
		s.hazards.WAW++
	}
	if st.StructuralStall {
		s.hazards.Structural++
	}
}
