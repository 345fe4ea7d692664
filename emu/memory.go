package emu

import (
	"encoding/binary"
	"math"
	"sort"
)

// Memory is a sparse byte-addressable little-endian memory. Unwritten bytes
// read as zero.
type Memory struct {
	data map[uint64]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{data: make(map[uint64]byte)}
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) byte {
	return m.data[addr]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, v byte) {
	if v == 0 {
		delete(m.data, addr)
		return
	}
	m.data[addr] = v
}

// ReadBytes reads size consecutive bytes.
func (m *Memory) ReadBytes(addr uint64, size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = m.Read8(addr + uint64(i))
	}
	return buf
}

// WriteBytes writes consecutive bytes.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// Read32 reads a 32-bit word.
func (m *Memory) Read32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.ReadBytes(addr, 4))
}

// Write32 writes a 32-bit word.
func (m *Memory) Write32(addr uint64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	m.WriteBytes(addr, buf[:])
}

// Read64 reads a 64-bit word.
func (m *Memory) Read64(addr uint64) uint64 {
	return binary.LittleEndian.Uint64(m.ReadBytes(addr, 8))
}

// Write64 writes a 64-bit word.
func (m *Memory) Write64(addr uint64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	m.WriteBytes(addr, buf[:])
}

// ReadFloat64 reads a double.
func (m *Memory) ReadFloat64(addr uint64) float64 {
	return math.Float64frombits(m.Read64(addr))
}

// WriteFloat64 writes a double.
func (m *Memory) WriteFloat64(addr uint64, v float64) {
	m.Write64(addr, math.Float64bits(v))
}

// Load stores initial values as doubles at the given byte addresses.
func (m *Memory) Load(values map[uint64]float64) {
	for addr, v := range values {
		m.WriteFloat64(addr, v)
	}
}

// Reset clears all memory.
func (m *Memory) Reset() {
	m.data = make(map[uint64]byte)
}

// Footprint returns the sorted addresses holding non-zero bytes.
func (m *Memory) Footprint() []uint64 {
	addrs := make([]uint64, 0, len(m.data))
	for a := range m.data {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
