package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
)

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory()
	})

	It("should read zero from unwritten addresses", func() {
		Expect(memory.Read64(0x100)).To(BeZero())
		Expect(memory.ReadFloat64(0x100)).To(BeZero())
	})

	It("should store little-endian words", func() {
		memory.Write32(0x10, 0x11223344)
		Expect(memory.Read8(0x10)).To(Equal(byte(0x44)))
		Expect(memory.Read8(0x13)).To(Equal(byte(0x11)))
	})

	It("should load initial doubles", func() {
		memory.Load(map[uint64]float64{0: 3.5, 8: -1})
		Expect(memory.ReadFloat64(0)).To(Equal(3.5))
		Expect(memory.ReadFloat64(8)).To(Equal(-1.0))
		Expect(memory.Footprint()).NotTo(BeEmpty())

		memory.Reset()
		Expect(memory.Footprint()).To(BeEmpty())
	})

	Describe("typed accesses", func() {
		It("should round trip a word store and load", func() {
			sw := insts.MustParse("SW R1, 0(R0)").At(0)
			lw := insts.MustParse("LW R2, 0(R0)").At(0)
			emu.StoreValue(memory, sw, 16, -42)
			Expect(emu.LoadValue(memory, lw, 16)).To(Equal(-42.0))
		})

		It("should narrow single-precision stores", func() {
			ss := insts.MustParse("S.S F1, 0(R0)").At(0)
			ls := insts.MustParse("L.S F2, 0(R0)").At(0)
			emu.StoreValue(memory, ss, 32, 0.1)
			Expect(emu.LoadValue(memory, ls, 32)).To(Equal(float64(float32(0.1))))
			Expect(emu.EncodeStore(ss, 1)).To(HaveLen(4))
		})

		It("should store doubles in eight bytes", func() {
			sd := insts.MustParse("S.D F1, 0(R0)").At(0)
			Expect(emu.EncodeStore(sd, math.Pi)).To(HaveLen(8))
			emu.StoreValue(memory, sd, 0, math.Pi)
			Expect(memory.ReadFloat64(0)).To(Equal(math.Pi))
		})
	})
})
