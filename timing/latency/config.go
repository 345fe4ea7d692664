package latency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// TimingConfig holds execution latencies, in cycles, for each class of
// instruction.
type TimingConfig struct {
	// FPAddLatency covers floating-point add and subtract. Default: 3 cycles.
	FPAddLatency uint64 `json:"fp_add_latency" yaml:"fp_add_latency"`

	// FPMulLatency covers floating-point multiply. Default: 10 cycles.
	FPMulLatency uint64 `json:"fp_mul_latency" yaml:"fp_mul_latency"`

	// FPDivLatency covers floating-point divide. Default: 40 cycles.
	FPDivLatency uint64 `json:"fp_div_latency" yaml:"fp_div_latency"`

	// IntLatency covers all integer arithmetic. Default: 1 cycle.
	IntLatency uint64 `json:"int_latency" yaml:"int_latency"`

	// LoadLatency is the load pipeline latency before the cache access is
	// added. Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency" yaml:"load_latency"`

	// StoreLatency is the store pipeline latency before the cache access is
	// added. Default: 2 cycles.
	StoreLatency uint64 `json:"store_latency" yaml:"store_latency"`

	// BranchLatency is the time to evaluate a branch condition. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency" yaml:"branch_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default latencies.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		FPAddLatency:  3,
		FPMulLatency:  10,
		FPDivLatency:  40,
		IntLatency:    1,
		LoadLatency:   2,
		StoreLatency:  2,
		BranchLatency: 1,
	}
}

// LoadConfig loads a TimingConfig from a JSON or YAML file. Fields missing
// from the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON or YAML file, chosen by the
// file extension.
func (c *TimingConfig) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.FPAddLatency == 0 {
		return fmt.Errorf("fp_add_latency must be > 0")
	}
	if c.FPMulLatency == 0 {
		return fmt.Errorf("fp_mul_latency must be > 0")
	}
	if c.FPDivLatency == 0 {
		return fmt.Errorf("fp_div_latency must be > 0")
	}
	if c.IntLatency == 0 {
		return fmt.Errorf("int_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
