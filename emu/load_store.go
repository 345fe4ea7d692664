package emu

import (
	"encoding/binary"
	"math"

	"github.com/sarchlab/tomasim/insts"
)

// LoadValue reads the value a load instruction produces from memory.
func LoadValue(m *Memory, inst *insts.Instruction, addr uint64) float64 {
	switch inst.Op {
	case insts.OpLS:
		return float64(math.Float32frombits(m.Read32(addr)))
	case insts.OpLW:
		return float64(int32(m.Read32(addr)))
	default:
		return m.ReadFloat64(addr)
	}
}

// EncodeStore returns the little-endian bytes a store instruction writes
// for value.
func EncodeStore(inst *insts.Instruction, value float64) []byte {
	switch inst.Op {
	case insts.OpSS:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(value)))
	case insts.OpSW:
		return binary.LittleEndian.AppendUint32(nil, uint32(int32(value)))
	default:
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(value))
	}
}

// StoreValue writes a store instruction's value to memory.
func StoreValue(m *Memory, inst *insts.Instruction, addr uint64, value float64) {
	m.WriteBytes(addr, EncodeStore(inst, value))
}
