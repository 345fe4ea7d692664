package pipeline_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should provide a valid default machine", func() {
		cfg := pipeline.DefaultConfig()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.FPAddStations).To(Equal(3))
		Expect(cfg.FPMulStations).To(Equal(2))
		Expect(cfg.IntStations).To(Equal(2))
		Expect(cfg.LoadBuffers).To(Equal(3))
		Expect(cfg.StoreBuffers).To(Equal(3))
		Expect(cfg.Cache).To(Equal(cache.DefaultConfig()))
	})

	DescribeTable("should reject unusable values",
		func(mutate func(*pipeline.Config)) {
			cfg := pipeline.DefaultConfig()
			mutate(&cfg)
			Expect(cfg.Validate()).To(MatchError(pipeline.ErrInvalidConfig))
		},
		Entry("no fp add stations", func(c *pipeline.Config) { c.FPAddStations = 0 }),
		Entry("no load buffers", func(c *pipeline.Config) { c.LoadBuffers = 0 }),
		Entry("no integer units", func(c *pipeline.Config) { c.IntUnits = -1 }),
		Entry("bad cache geometry", func(c *pipeline.Config) { c.Cache.BlockSize = 0 }),
		Entry("zero latency", func(c *pipeline.Config) { c.Latency.LoadLatency = 0 }),
	)

	It("should keep cache errors matchable", func() {
		cfg := pipeline.DefaultConfig()
		cfg.Cache.Size = 8
		Expect(cfg.Validate()).To(MatchError(cache.ErrInvalidConfig))
	})

	It("should round trip through JSON", func() {
		cfg := pipeline.DefaultConfig()
		cfg.FPMulUnits = 2
		cfg.Latency.FPDivLatency = 24
		path := filepath.Join(dir, "machine.json")

		Expect(cfg.SaveConfig(path)).To(Succeed())
		loaded, err := pipeline.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(cfg))
	})

	It("should fill missing YAML fields with defaults", func() {
		path := filepath.Join(dir, "machine.yaml")
		Expect(os.WriteFile(path, []byte(`
fp_add_stations: 1
cache:
  miss_penalty: 20
latency:
  fp_mul_latency: 6
`), 0644)).To(Succeed())

		cfg, err := pipeline.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.FPAddStations).To(Equal(1))
		Expect(cfg.FPMulStations).To(Equal(2))
		Expect(cfg.Cache.MissPenalty).To(Equal(uint64(20)))
		Expect(cfg.Cache.BlockSize).To(Equal(16))
		Expect(cfg.Latency.FPMulLatency).To(Equal(uint64(6)))
		Expect(cfg.Latency.FPAddLatency).To(Equal(uint64(3)))
	})

	It("should reject an invalid file", func() {
		path := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(path, []byte(`{"load_buffers": 0}`), 0644)).To(Succeed())

		_, err := pipeline.LoadConfig(path)
		Expect(err).To(MatchError(pipeline.ErrInvalidConfig))
	})

	It("should report a missing file", func() {
		_, err := pipeline.LoadConfig(filepath.Join(dir, "missing.json"))
		Expect(err).To(HaveOccurred())
	})

	It("should clone independently", func() {
		cfg := pipeline.DefaultConfig()
		clone := cfg.Clone()
		clone.Latency.IntLatency = 5
		Expect(cfg.Latency.IntLatency).To(Equal(uint64(1)))
	})
})
