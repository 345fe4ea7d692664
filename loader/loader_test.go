package loader_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

var _ = Describe("Loader", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		It("should parse a program file", func() {
			path := write("loop.s", `
# daxpy step
LOOP:	L.D F0, 0(R1)
	MUL.D F4, F0, F2
	S.D F4, 0(R1)
	DADDI R1, R1, 8
	BNE R1, R2, LOOP
`)
			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Len()).To(Equal(5))
			Expect(prog.At(0).Label).To(Equal("LOOP"))
			Expect(prog.At(4).Class).To(Equal(insts.ClassBranch))
		})

		It("should return error for non-existent file", func() {
			_, err := loader.Load(filepath.Join(dir, "missing.s"))
			Expect(err).To(HaveOccurred())
		})

		It("should report the failing line", func() {
			path := write("bad.s", "ADD.D F0, F2\n")
			_, err := loader.Load(path)

			var perr *insts.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Line).To(Equal(1))
			Expect(err).To(MatchError(insts.ErrSyntax))
		})

		It("should reject undefined branch targets", func() {
			path := write("branch.s", "BEQ R1, R2, DONE\n")
			_, err := loader.Load(path)
			Expect(err).To(MatchError(insts.ErrUnknownLabel))
		})
	})

	Describe("LoadState", func() {
		It("should read YAML state", func() {
			path := write("state.yaml", `
registers:
  f2: 2.5
  R2: 24
memory:
  0x10: 1.5
  8: 3
`)
			state, err := loader.LoadState(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Registers).To(Equal(map[string]float64{"F2": 2.5, "R2": 24}))
			Expect(state.Memory).To(Equal(map[uint64]float64{16: 1.5, 8: 3}))
		})

		It("should read JSON state", func() {
			path := write("state.json", `{"registers": {"R1": 8}, "memory": {"8": 4.25}}`)
			state, err := loader.LoadState(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Registers).To(HaveKeyWithValue("R1", 8.0))
			Expect(state.Memory).To(HaveKeyWithValue(uint64(8), 4.25))
		})

		It("should reject unknown registers", func() {
			path := write("state.yaml", "registers:\n  Q7: 1\n")
			_, err := loader.LoadState(path)
			Expect(err).To(MatchError(emu.ErrUnknownRegister))
		})

		It("should apply the state to a scheduler", func() {
			path := write("state.yaml", "registers:\n  F2: 1.5\n  F4: 2\nmemory:\n  0: 7\n")
			state, err := loader.LoadState(path)
			Expect(err).NotTo(HaveOccurred())

			s, err := pipeline.NewScheduler(
				insts.MustParse("ADD.D F0, F2, F4"), pipeline.DefaultConfig(), state.Options()...)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(100)
			Expect(err).NotTo(HaveOccurred())

			v, _ := s.Register("F0")
			Expect(v).To(Equal(3.5))
			Expect(s.MemoryFloat64(0)).To(Equal(7.0))
		})
	})
})
