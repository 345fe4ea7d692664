// Package loader reads assembly programs and initial machine state from
// files.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// Load parses an assembly source file and checks that every branch target
// is defined.
func Load(path string) (*insts.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := insts.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program %s: %w", path, err)
	}
	return prog, nil
}

// State is the machine state before the first cycle.
type State struct {
	// Registers maps register names (R0-R31, F0-F31) to values.
	Registers map[string]float64 `json:"registers" yaml:"registers"`
	// Memory maps byte addresses to the doubles stored there.
	Memory map[uint64]float64 `json:"memory" yaml:"memory"`
}

// LoadState reads a State from a JSON or YAML file, chosen by extension.
// Register names are case-insensitive.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if isYAML(path) {
		err = yaml.Unmarshal(data, &state)
	} else {
		err = json.Unmarshal(data, &state)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	regs := make(map[string]float64, len(state.Registers))
	for name, v := range state.Registers {
		regs[strings.ToUpper(name)] = v
	}
	state.Registers = regs

	if err := emu.NewRegFile().Load(state.Registers); err != nil {
		return nil, fmt.Errorf("invalid state %s: %w", path, err)
	}
	return &state, nil
}

// Options returns the scheduler options that apply the state.
func (s *State) Options() []pipeline.SchedulerOption {
	if s == nil {
		return nil
	}
	return []pipeline.SchedulerOption{
		pipeline.WithRegisters(s.Registers),
		pipeline.WithMemory(s.Memory),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
