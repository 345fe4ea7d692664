package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/latency"
)

// ErrInvalidConfig is returned when a Config cannot drive a simulation.
var ErrInvalidConfig = errors.New("invalid scheduler config")

// Config holds the resource capacities, cache geometry, and latencies of a
// simulated machine.
type Config struct {
	// Reservation station capacities per station type.
	FPAddStations int `json:"fp_add_stations" yaml:"fp_add_stations"`
	FPMulStations int `json:"fp_mul_stations" yaml:"fp_mul_stations"`
	IntStations   int `json:"int_stations" yaml:"int_stations"`

	// Load and store buffer capacities.
	LoadBuffers  int `json:"load_buffers" yaml:"load_buffers"`
	StoreBuffers int `json:"store_buffers" yaml:"store_buffers"`

	// Execution unit counts per station type.
	FPAddUnits int `json:"fp_add_units" yaml:"fp_add_units"`
	FPMulUnits int `json:"fp_mul_units" yaml:"fp_mul_units"`
	IntUnits   int `json:"int_units" yaml:"int_units"`

	Cache   cache.Config         `json:"cache" yaml:"cache"`
	Latency latency.TimingConfig `json:"latency" yaml:"latency"`
}

// DefaultConfig returns the default machine: three FP add stations, two FP
// multiply stations, two integer stations, three load and three store
// buffers, two FP add units and one unit of every other type.
func DefaultConfig() Config {
	return Config{
		FPAddStations: 3,
		FPMulStations: 2,
		IntStations:   2,
		LoadBuffers:   3,
		StoreBuffers:  3,
		FPAddUnits:    2,
		FPMulUnits:    1,
		IntUnits:      1,
		Cache:         cache.DefaultConfig(),
		Latency:       *latency.DefaultTimingConfig(),
	}
}

// Validate checks that every capacity and latency is usable.
func (c Config) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"fp_add_stations", c.FPAddStations},
		{"fp_mul_stations", c.FPMulStations},
		{"int_stations", c.IntStations},
		{"load_buffers", c.LoadBuffers},
		{"store_buffers", c.StoreBuffers},
		{"fp_add_units", c.FPAddUnits},
		{"fp_mul_units", c.FPMulUnits},
		{"int_units", c.IntUnits},
	}
	for _, cnt := range counts {
		if cnt.value < 1 {
			return fmt.Errorf("%w: %s must be > 0", ErrInvalidConfig, cnt.name)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Clone returns a copy of the Config.
func (c Config) Clone() Config {
	clone := c
	clone.Latency = *c.Latency.Clone()
	return clone
}

// LoadConfig reads a Config from a JSON or YAML file, chosen by extension.
// Fields missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// SaveConfig writes the Config to a JSON or YAML file.
func (c Config) SaveConfig(path string) error {
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
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
