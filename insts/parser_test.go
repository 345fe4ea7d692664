package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/insts"
)

var _ = Describe("Parser", func() {
	Describe("ParseLine", func() {
		It("should parse a floating-point ALU instruction", func() {
			inst, err := insts.ParseLine("MUL.D F0, F2, F4")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMULD))
			Expect(inst.Class).To(Equal(insts.ClassFloatALU))
			Expect(inst.Dest).To(Equal("F0"))
			Expect(inst.Src1).To(Equal(insts.RegOperand("F2")))
			Expect(inst.Src2).To(Equal(insts.RegOperand("F4")))
			Expect(inst.IsMulDiv()).To(BeTrue())
		})

		It("should parse an immediate source", func() {
			inst, err := insts.ParseLine("daddi r1, r1, -8")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Opcode).To(Equal("DADDI"))
			Expect(inst.Class).To(Equal(insts.ClassIntALU))
			Expect(inst.Dest).To(Equal("R1"))
			Expect(inst.Src2.IsImm).To(BeTrue())
			Expect(inst.Src2.Imm).To(Equal(-8.0))
			Expect(inst.Sources()).To(Equal([]string{"R1"}))
		})

		It("should parse a load", func() {
			inst, err := insts.ParseLine("L.D F6, 32(R2)")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Class).To(Equal(insts.ClassLoad))
			Expect(inst.Dest).To(Equal("F6"))
			Expect(inst.Offset).To(Equal(int64(32)))
			Expect(inst.Base).To(Equal("R2"))
			Expect(inst.Width()).To(Equal(8))
		})

		It("should parse a store with an omitted offset", func() {
			inst, err := insts.ParseLine("SW R3, (R4)")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Class).To(Equal(insts.ClassStore))
			Expect(inst.Src1.Reg).To(Equal("R3"))
			Expect(inst.Offset).To(BeZero())
			Expect(inst.Base).To(Equal("R4"))
			Expect(inst.Width()).To(Equal(4))
			Expect(inst.Sources()).To(Equal([]string{"R3", "R4"}))
		})

		It("should parse a branch", func() {
			inst, err := insts.ParseLine("BNE R1, R2, loop")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Class).To(Equal(insts.ClassBranch))
			Expect(inst.Target).To(Equal("LOOP"))
			Expect(inst.String()).To(Equal("BNE R1, R2, LOOP"))
		})

		It("should keep unsupported mnemonics as unknown", func() {
			inst, err := insts.ParseLine("NOP")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Class).To(Equal(insts.ClassUnknown))
			Expect(inst.String()).To(Equal("NOP"))
		})

		It("should reject bad registers", func() {
			_, err := insts.ParseLine("ADD.D F0, F2, X4")
			Expect(err).To(MatchError(insts.ErrBadRegister))

			_, err = insts.ParseLine("L.D F0, 8(R32)")
			Expect(err).To(MatchError(insts.ErrBadRegister))
		})

		It("should reject a wrong operand count", func() {
			_, err := insts.ParseLine("ADD.D F0, F2")
			Expect(err).To(MatchError(insts.ErrSyntax))
		})
	})

	Describe("Parse", func() {
		It("should bind labels and skip comments", func() {
			prog, err := insts.ParseString(`
# daxpy-like loop
LOOP:  L.D   F0, 0(R1)   ; load x
       MUL.D F4, F0, F2
END:
       S.D   F4, 0(R1)
       BNE   R1, R2, LOOP
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Len()).To(Equal(4))

			idx, ok := prog.LabelIndex("loop")
			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(0))

			idx, ok = prog.LabelIndex("END")
			Expect(ok).To(BeTrue())
			Expect(idx).To(Equal(2))
			Expect(prog.At(2).Label).To(Equal("END"))
			Expect(prog.Validate()).To(Succeed())
		})

		It("should report the failing line", func() {
			_, err := insts.ParseString("ADD.D F0, F2, F4\nL.D F0, R1")
			var perr *insts.ParseError
			Expect(err).To(BeAssignableToTypeOf(perr))
			Expect(err.(*insts.ParseError).Line).To(Equal(2))
			Expect(err).To(MatchError(insts.ErrSyntax))
		})

		It("should reject duplicate labels", func() {
			_, err := insts.ParseString("A: ADD R1, R1, R2\nA: ADD R1, R1, R2")
			Expect(err).To(MatchError(insts.ErrDuplicateLabel))
		})

		It("should detect unresolved branch targets", func() {
			prog := insts.MustParse("BEQ R1, R2, NOWHERE")
			Expect(prog.Validate()).To(MatchError(insts.ErrUnknownLabel))
		})
	})

	Describe("Lookup", func() {
		DescribeTable("classifies mnemonics",
			func(mnemonic string, class insts.Class) {
				_, c := insts.Lookup(mnemonic)
				Expect(c).To(Equal(class))
			},
			Entry("ADD.D", "ADD.D", insts.ClassFloatALU),
			Entry("div.s", "div.s", insts.ClassFloatALU),
			Entry("DSUB", "DSUB", insts.ClassIntALU),
			Entry("LW", "LW", insts.ClassLoad),
			Entry("S.S", "S.S", insts.ClassStore),
			Entry("BEQ", "BEQ", insts.ClassBranch),
			Entry("J", "J", insts.ClassUnknown),
		)
	})
})
