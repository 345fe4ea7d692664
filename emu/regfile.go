// Package emu provides the functional machine state of the simulator:
// registers, memory, and arithmetic.
package emu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/tomasim/insts"
)

// ErrUnknownRegister is returned when a register name is not R0-R31 or F0-F31.
var ErrUnknownRegister = errors.New("unknown register")

// Tag names the reservation station, buffer slot, or unit that will produce a
// value. The empty tag means no producer.
type Tag string

// NoTag is the empty tag.
const NoTag Tag = ""

// RegisterState is a snapshot of one register.
type RegisterState struct {
	Name     string
	Value    float64
	Producer Tag
}

// RegFile holds the integer (R0-R31) and floating-point (F0-F31) registers.
// Each register carries its committed value, the tag of the in-flight
// instruction that will next write it, and the cycle of its last commit.
type RegFile struct {
	names     []string
	index     map[string]int
	values    []float64
	producers []Tag
	written   []int64
}

// NewRegFile creates a register file with every register zero and no
// producers.
func NewRegFile() *RegFile {
	r := &RegFile{index: make(map[string]int, 2*insts.NumRegisters)}
	for _, bank := range []string{"R", "F"} {
		for i := 0; i < insts.NumRegisters; i++ {
			name := bank + strconv.Itoa(i)
			r.index[name] = len(r.names)
			r.names = append(r.names, name)
		}
	}
	r.values = make([]float64, len(r.names))
	r.producers = make([]Tag, len(r.names))
	r.written = make([]int64, len(r.names))
	r.Reset()
	return r
}

// Reset zeroes every register and clears all producers.
func (r *RegFile) Reset() {
	for i := range r.names {
		r.values[i] = 0
		r.producers[i] = NoTag
		r.written[i] = -1
	}
}

func (r *RegFile) lookup(name string) int {
	i, ok := r.index[name]
	if !ok {
		i, ok = r.index[strings.ToUpper(name)]
	}
	if !ok {
		panic(fmt.Sprintf("emu: %v %q", ErrUnknownRegister, name))
	}
	return i
}

// Has reports whether name is a register of this file.
func (r *RegFile) Has(name string) bool {
	_, ok := r.index[strings.ToUpper(name)]
	return ok
}

// Value returns the committed value of a register.
func (r *RegFile) Value(name string) float64 {
	return r.values[r.lookup(name)]
}

// SetValue sets the committed value of a register directly. It is used to
// load initial state.
func (r *RegFile) SetValue(name string, v float64) {
	r.values[r.lookup(name)] = v
}

// Producer returns the tag that will next write the register, or NoTag.
func (r *RegFile) Producer(name string) Tag {
	return r.producers[r.lookup(name)]
}

// SetProducer records that tag will produce the register's next value.
func (r *RegFile) SetProducer(name string, tag Tag) {
	r.producers[r.lookup(name)] = tag
}

// Commit writes a broadcast value into the register if tag is still its
// producer, clearing the producer. A later producer that renamed the
// register keeps it, and the write is dropped.
func (r *RegFile) Commit(name string, tag Tag, v float64, cycle int64) bool {
	i := r.lookup(name)
	if tag == NoTag || r.producers[i] != tag {
		return false
	}
	r.values[i] = v
	r.producers[i] = NoTag
	r.written[i] = cycle
	return true
}

// WrittenAt returns the cycle of the register's last commit, or -1.
func (r *RegFile) WrittenAt(name string) int64 {
	return r.written[r.lookup(name)]
}

// Load sets initial register values by name.
func (r *RegFile) Load(values map[string]float64) error {
	for name, v := range values {
		if !r.Has(name) {
			return fmt.Errorf("%w %q", ErrUnknownRegister, name)
		}
		r.SetValue(name, v)
	}
	return nil
}

// Names returns all register names, integer registers first.
func (r *RegFile) Names() []string {
	return append([]string(nil), r.names...)
}

// Snapshot returns the state of every register.
func (r *RegFile) Snapshot() []RegisterState {
	out := make([]RegisterState, len(r.names))
	for i, name := range r.names {
		out[i] = RegisterState{
			Name:     name,
			Value:    r.values[i],
			Producer: r.producers[i],
		}
	}
	return out
}
