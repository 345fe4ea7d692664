package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/timing/cache"
)

var _ = Describe("Cache", func() {
	var (
		c       *cache.Cache
		memory  *emu.Memory
		backing *cache.MemoryBacking
	)

	BeforeEach(func() {
		memory = emu.NewMemory()
		backing = cache.NewMemoryBacking(memory)
		// 4 lines of 16 bytes.
		c = cache.New(cache.DefaultConfig(), backing)
	})

	Describe("Config", func() {
		It("should accept the default geometry", func() {
			Expect(cache.DefaultConfig().Validate()).To(Succeed())
			Expect(cache.DefaultConfig().Lines()).To(Equal(4))
		})

		It("should reject bad geometry", func() {
			cfg := cache.DefaultConfig()
			cfg.BlockSize = 0
			Expect(cfg.Validate()).To(MatchError(cache.ErrInvalidConfig))

			cfg = cache.DefaultConfig()
			cfg.Size = 40
			Expect(cfg.Validate()).To(MatchError(cache.ErrInvalidConfig))

			cfg = cache.DefaultConfig()
			cfg.MissPenalty = 0
			Expect(cfg.Validate()).To(HaveOccurred())
		})
	})

	Describe("Address mapping", func() {
		It("should compute index and tag", func() {
			Expect(c.IndexOf(0)).To(Equal(0))
			Expect(c.IndexOf(16)).To(Equal(1))
			Expect(c.IndexOf(72)).To(Equal(0))
			Expect(c.TagOf(72)).To(Equal(uint64(1)))
			Expect(c.BlockAddr(27)).To(Equal(uint64(16)))
		})
	})

	Describe("Access", func() {
		It("should miss on cold cache without installing the line", func() {
			result := c.Access(0x20)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Index).To(Equal(2))

			Expect(c.Lines()[2].Valid).To(BeFalse())
			Expect(c.Access(0x20).Hit).To(BeFalse())

			stats := c.Stats()
			Expect(stats.Accesses).To(Equal(uint64(2)))
			Expect(stats.Misses).To(Equal(uint64(2)))
		})

		It("should treat a block with a pending fill as a miss", func() {
			c.Access(0x10)
			c.MarkPendingFill(0x10)
			Expect(c.HasPendingFill(0x18)).To(BeTrue())

			result := c.Access(0x18)
			Expect(result.Hit).To(BeFalse())
			Expect(result.PendingFill).To(BeTrue())
		})

		It("should hit after the fill completes", func() {
			memory.WriteFloat64(0x10, 2.5)
			c.Access(0x10)
			c.MarkPendingFill(0x10)
			c.CompleteFill(0x10)

			Expect(c.HasPendingFill(0x10)).To(BeFalse())
			result := c.Access(0x18)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))

			line := c.Lines()[1]
			Expect(line.Valid).To(BeTrue())
			Expect(line.BlockAddr).To(Equal(uint64(0x10)))
			Expect(line.Data).To(Equal(memory.ReadBytes(0x10, 16)))
			Expect(c.Stats().Fills).To(Equal(uint64(1)))
		})

		It("should not refill a resident block without a pending fill", func() {
			memory.WriteFloat64(0x10, 2.5)
			c.Access(0x10)
			c.MarkPendingFill(0x10)
			c.Access(0x18)
			c.MarkPendingFill(0x18)

			c.CompleteFill(0x10)
			c.WriteThrough(0x10, []byte{7})
			c.CompleteFill(0x18)

			Expect(c.Stats().Fills).To(Equal(uint64(1)))
			Expect(c.Lines()[1].Data[0]).To(Equal(byte(7)))
			Expect(c.Access(0x18).Hit).To(BeTrue())
		})

		It("should replace a conflicting block in a direct-mapped line", func() {
			c.CompleteFill(0x00)
			c.CompleteFill(0x40)

			Expect(c.Access(0x00).Hit).To(BeFalse())
			Expect(c.Access(0x40).Hit).To(BeTrue())
			Expect(c.Lines()[0].Tag).To(Equal(uint64(1)))
		})
	})

	Describe("WriteThrough", func() {
		It("should update memory without allocating", func() {
			c.WriteThrough(0x30, []byte{1, 2, 3, 4})
			Expect(memory.Read32(0x30)).To(Equal(uint32(0x04030201)))
			Expect(c.Lines()[3].Valid).To(BeFalse())
			Expect(c.Stats().WriteThroughs).To(Equal(uint64(1)))
		})

		It("should refresh a resident line", func() {
			c.CompleteFill(0x30)
			c.WriteThrough(0x34, []byte{9})
			Expect(c.Lines()[3].Data[4]).To(Equal(byte(9)))
		})
	})

	Describe("Reset", func() {
		It("should invalidate lines and clear pending fills", func() {
			c.CompleteFill(0x00)
			c.MarkPendingFill(0x10)
			c.Reset()

			Expect(c.HasPendingFill(0x10)).To(BeFalse())
			Expect(c.Access(0x00).Hit).To(BeFalse())
			Expect(c.Stats().Accesses).To(Equal(uint64(1)))
		})
	})

	Describe("HitRate", func() {
		It("should compute hit rate", func() {
			Expect(cache.Statistics{}.HitRate()).To(BeZero())
			Expect(cache.Statistics{Accesses: 4, Hits: 1}.HitRate()).To(Equal(0.25))
		})
	})
})
