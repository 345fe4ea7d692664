package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

func mustInst(line string) *insts.Instruction {
	inst, err := insts.ParseLine(line)
	Expect(err).NotTo(HaveOccurred())
	return inst
}

type recorder struct {
	name string
	log  *[]string
}

func (r recorder) OnBroadcast(res pipeline.Result, cycle int64) {
	*r.log = append(*r.log, r.name+":"+string(res.Tag))
}

var _ = Describe("TagAllocator", func() {
	It("should number tags per station type", func() {
		tags := pipeline.NewTagAllocator()
		Expect(tags.Allocate(pipeline.StationFPAdd)).To(Equal(emu.Tag("A1")))
		Expect(tags.Allocate(pipeline.StationFPAdd)).To(Equal(emu.Tag("A2")))
		Expect(tags.Allocate(pipeline.StationFPMul)).To(Equal(emu.Tag("M1")))
		Expect(tags.Allocate(pipeline.StationLoad)).To(Equal(emu.Tag("L1")))
		Expect(tags.Allocate(pipeline.StationBranch)).To(Equal(emu.Tag("B1")))
	})
})

var _ = DescribeTable("StationFor",
	func(line string, want pipeline.StationType) {
		Expect(pipeline.StationFor(mustInst(line))).To(Equal(want))
	},
	Entry("fp add", "ADD.D F0, F2, F4", pipeline.StationFPAdd),
	Entry("fp sub", "SUB.S F0, F2, F4", pipeline.StationFPAdd),
	Entry("fp mul", "MUL.D F0, F2, F4", pipeline.StationFPMul),
	Entry("fp div", "DIV.D F0, F2, F4", pipeline.StationFPMul),
	Entry("integer", "DADDI R1, R1, 8", pipeline.StationInteger),
	Entry("load", "L.D F0, 0(R1)", pipeline.StationLoad),
	Entry("store", "S.D F0, 0(R1)", pipeline.StationStore),
	Entry("branch", "BNE R1, R2, LOOP", pipeline.StationBranch),
)

var _ = Describe("ReservationStationPool", func() {
	var (
		regs *emu.RegFile
		pool *pipeline.ReservationStationPool
	)

	BeforeEach(func() {
		regs = emu.NewRegFile()
		pool = pipeline.NewReservationStationPool(2, 1, 1, pipeline.NewTagAllocator())
	})

	It("should read ready operands and rename the destination", func() {
		regs.SetValue("F2", 1.5)
		regs.SetValue("F4", 2)

		e := pool.Accept(mustInst("ADD.D F0, F2, F4"), regs, 1)
		Expect(e.Tag).To(Equal(emu.Tag("A1")))
		Expect(e.Vj).To(Equal(1.5))
		Expect(e.Vk).To(Equal(2.0))
		Expect(e.OperandsReady()).To(BeTrue())
		Expect(e.ReadyCycle).To(Equal(int64(-1)))
		Expect(regs.Producer("F0")).To(Equal(emu.Tag("A1")))
	})

	It("should wait on a pending producer and wake on its broadcast", func() {
		regs.SetProducer("F2", "M1")

		e := pool.Accept(mustInst("ADD.D F0, F2, F4"), regs, 1)
		Expect(e.Qj).To(Equal(emu.Tag("M1")))
		Expect(pool.Ready(2)).To(BeEmpty())

		pool.OnBroadcast(pipeline.Result{Tag: "M1", Dest: "F2", Value: 7}, 5)
		Expect(e.Vj).To(Equal(7.0))
		Expect(e.ReadyCycle).To(Equal(int64(5)))
		Expect(e.ReadyForDispatch(5)).To(BeFalse())
		Expect(e.ReadyForDispatch(6)).To(BeTrue())
	})

	It("should use immediates as values", func() {
		e := pool.Accept(mustInst("DADDI R1, R1, 8"), regs, 1)
		Expect(e.Vk).To(Equal(8.0))
		Expect(e.Qk).To(Equal(emu.NoTag))
	})

	It("should track capacity per station type", func() {
		mul := mustInst("MUL.D F0, F2, F4")
		Expect(pool.HasFreeFor(mul)).To(BeTrue())
		pool.Accept(mul, regs, 1)
		Expect(pool.HasFreeFor(mul)).To(BeFalse())
		Expect(pool.HasFreeFor(mustInst("ADD.D F6, F8, F10"))).To(BeTrue())
		Expect(pool.Occupancy(pipeline.StationFPMul)).To(Equal(1))

		Expect(func() { pool.Accept(mul, regs, 2) }).To(Panic())
	})

	It("should keep the slot until released", func() {
		e := pool.Accept(mustInst("ADD.D F0, F2, F4"), regs, 1)
		pool.OnBroadcast(pipeline.Result{Tag: e.Tag, Dest: "F0", Value: 1}, 4)
		Expect(pool.Entry(e.Tag).WrittenBack).To(BeTrue())
		Expect(pool.Entries()).To(HaveLen(1))

		Expect(pool.Release(e.Tag)).To(BeTrue())
		Expect(pool.Entries()).To(BeEmpty())
		Expect(pool.Release(e.Tag)).To(BeFalse())
	})
})

var _ = Describe("MemoryBuffer", func() {
	var (
		regs  *emu.RegFile
		loads *pipeline.MemoryBuffer
	)

	BeforeEach(func() {
		regs = emu.NewRegFile()
		loads = pipeline.NewLoadBuffer(2, pipeline.NewTagAllocator())
	})

	It("should compute the address when the base is known", func() {
		regs.SetValue("R1", 16)
		e := loads.Accept(mustInst("L.D F0, 8(R1)"), regs, 1, 1)
		Expect(e.AddressKnown).To(BeTrue())
		Expect(e.Address).To(Equal(uint64(24)))
		Expect(e.Width()).To(Equal(8))
		Expect(regs.Producer("F0")).To(Equal(e.Tag))
	})

	It("should compute the address when the base arrives", func() {
		regs.SetProducer("R1", "I1")
		e := loads.Accept(mustInst("L.S F0, 4(R1)"), regs, 1, 1)
		Expect(e.AddressKnown).To(BeFalse())

		loads.OnBroadcast(pipeline.Result{Tag: "I1", Dest: "R1", Value: 32}, 3)
		Expect(e.AddressKnown).To(BeTrue())
		Expect(e.Address).To(Equal(uint64(36)))
		Expect(e.IsReadyForDispatch(3)).To(BeFalse())
		Expect(e.IsReadyForDispatch(4)).To(BeTrue())
	})

	It("should detect overlapping accesses", func() {
		e := loads.Accept(mustInst("L.D F0, 8(R0)"), regs, 1, 1)
		Expect(e.Overlaps(12, 4)).To(BeTrue())
		Expect(e.Overlaps(16, 8)).To(BeFalse())
		Expect(e.Overlaps(0, 8)).To(BeFalse())
		Expect(e.Overlaps(4, 8)).To(BeTrue())
	})

	It("should wait for the store value", func() {
		stores := pipeline.NewStoreBuffer(1, pipeline.NewTagAllocator())
		regs.SetProducer("F4", "M2")
		e := stores.Accept(mustInst("S.D F4, 0(R1)"), regs, 1, 1)
		Expect(e.OperandsReady()).To(BeFalse())
		Expect(regs.Producer("F4")).To(Equal(emu.Tag("M2")))

		stores.OnBroadcast(pipeline.Result{Tag: "M2", Dest: "F4", Value: 9}, 6)
		Expect(e.Value).To(Equal(9.0))
		Expect(e.OperandsReady()).To(BeTrue())
		Expect(stores.HasFree()).To(BeFalse())
	})

	It("should reject misrouted and overflowing accepts", func() {
		Expect(func() {
			loads.Accept(mustInst("S.D F4, 0(R1)"), regs, 1, 1)
		}).To(Panic())

		loads.Accept(mustInst("L.D F0, 0(R1)"), regs, 1, 1)
		loads.Accept(mustInst("L.D F2, 8(R1)"), regs, 2, 1)
		Expect(func() {
			loads.Accept(mustInst("L.D F4, 16(R1)"), regs, 3, 1)
		}).To(Panic())
	})
})

var _ = Describe("BranchUnit", func() {
	var (
		regs   *emu.RegFile
		branch *pipeline.BranchUnit
		prog   *insts.Program
	)

	BeforeEach(func() {
		regs = emu.NewRegFile()
		branch = pipeline.NewBranchUnit(pipeline.NewTagAllocator())
		prog = insts.MustParse(`
			LOOP: DADDI R1, R1, 1
			      BNE R1, R2, LOOP
		`)
	})

	It("should resolve a taken branch to its label", func() {
		regs.SetValue("R1", 1)
		tag := branch.Accept(prog.At(1), 1, regs, 1)
		Expect(tag).To(Equal(emu.Tag("B1")))
		Expect(branch.Busy()).To(BeTrue())
		Expect(branch.ReadyToStart(1)).To(BeTrue())

		branch.Start(1, 1)
		Expect(branch.Finished(1)).To(BeTrue())
		branch.Resolve(prog)

		state := branch.State()
		Expect(state.Phase).To(Equal(pipeline.BranchResolved))
		Expect(state.Taken).To(BeTrue())
		Expect(state.Target).To(Equal(0))
	})

	It("should fall through when not taken", func() {
		branch.Accept(prog.At(1), 1, regs, 1)
		branch.Start(1, 2)
		Expect(branch.Finished(1)).To(BeFalse())
		Expect(branch.Finished(2)).To(BeTrue())
		branch.Resolve(prog)

		Expect(branch.State().Taken).To(BeFalse())
		Expect(branch.State().Target).To(Equal(2))
	})

	It("should wait for its operands", func() {
		regs.SetProducer("R1", "I3")
		branch.Accept(prog.At(1), 1, regs, 1)
		Expect(branch.ReadyToStart(2)).To(BeFalse())

		branch.OnBroadcast(pipeline.Result{Tag: "I3", Dest: "R1", Value: 4}, 2)
		Expect(branch.ReadyToStart(2)).To(BeFalse())
		Expect(branch.ReadyToStart(3)).To(BeTrue())
	})

	It("should stay busy until cleared", func() {
		tag := branch.Accept(prog.At(1), 1, regs, 1)
		branch.Start(1, 1)
		branch.Resolve(prog)
		Expect(branch.InFlight()).To(BeTrue())

		branch.OnBroadcast(pipeline.Result{Tag: tag}, 2)
		Expect(branch.InFlight()).To(BeFalse())
		Expect(branch.Busy()).To(BeTrue())
		Expect(func() { branch.Accept(prog.At(1), 1, regs, 2) }).To(Panic())

		branch.Clear()
		Expect(branch.Busy()).To(BeFalse())
	})
})

var _ = Describe("CommonDataBus", func() {
	It("should broadcast one result per tick in FIFO order", func() {
		var log []string
		bus := pipeline.NewCommonDataBus(recorder{"a", &log})
		bus.Subscribe(recorder{"b", &log})

		bus.Enqueue("A1", "F0", 1)
		bus.Enqueue("M1", "F2", 2)
		Expect(bus.Len()).To(Equal(2))

		r, ok := bus.TickAndBroadcast(1)
		Expect(ok).To(BeTrue())
		Expect(r.Tag).To(Equal(emu.Tag("A1")))
		Expect(log).To(Equal([]string{"a:A1", "b:A1"}))
		Expect(bus.Pending()).To(Equal([]pipeline.Result{{Tag: "M1", Dest: "F2", Value: 2}}))

		r, _ = bus.TickAndBroadcast(2)
		Expect(r.Tag).To(Equal(emu.Tag("M1")))

		_, ok = bus.TickAndBroadcast(3)
		Expect(ok).To(BeFalse())
		Expect(bus.Broadcasts()).To(Equal(uint64(2)))
	})

	It("should refuse a result without a tag", func() {
		bus := pipeline.NewCommonDataBus()
		Expect(func() { bus.Enqueue(emu.NoTag, "F0", 1) }).To(Panic())
	})
})

var _ = Describe("ExecutionUnitPool", func() {
	It("should hold a unit for the operation latency", func() {
		regs := emu.NewRegFile()
		regs.SetValue("F2", 3)
		regs.SetValue("F4", 4)
		stations := pipeline.NewReservationStationPool(1, 1, 1, pipeline.NewTagAllocator())
		e := stations.Accept(mustInst("MUL.D F0, F2, F4"), regs, 1)

		units := pipeline.NewExecutionUnitPool(2, 1, 1)
		u := units.Free(pipeline.StationFPMul, 1)
		Expect(u).NotTo(BeNil())
		units.Start(u, e, 1, 10)
		Expect(units.Free(pipeline.StationFPMul, 2)).To(BeNil())

		Expect(units.Collect(9)).To(BeEmpty())
		done := units.Collect(10)
		Expect(done).To(HaveLen(1))
		Expect(done[0].Result).To(Equal(12.0))
		Expect(done[0].Completed).To(BeTrue())
		Expect(units.Free(pipeline.StationFPMul, 10)).NotTo(BeNil())
	})

	It("should reserve a unit for a single-cycle bypass", func() {
		units := pipeline.NewExecutionUnitPool(1, 1, 1)
		u := units.Free(pipeline.StationInteger, 3)
		units.Bypass(u, 3)
		Expect(units.Free(pipeline.StationInteger, 3)).To(BeNil())
		Expect(units.Free(pipeline.StationInteger, 4)).NotTo(BeNil())
		Expect(units.Units()).To(HaveLen(3))
	})
})

var _ = Describe("Statistics", func() {
	It("should derive CPI and IPC", func() {
		s := pipeline.Statistics{Cycles: 20, Completed: 10}
		Expect(s.CPI()).To(Equal(2.0))
		Expect(s.IPC()).To(Equal(0.5))
		Expect(pipeline.Statistics{}.CPI()).To(BeZero())
	})

	It("should total hazards", func() {
		h := pipeline.HazardStats{RAW: 1, WAR: 2, WAW: 3, Structural: 4}
		Expect(h.Total()).To(Equal(uint64(10)))
	})
})
