// Package cache provides a direct-mapped data cache model using Akita cache
// components.
package cache

import (
	"errors"
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// ErrInvalidConfig is returned for an unusable cache geometry.
var ErrInvalidConfig = errors.New("invalid cache config")

// maxPendingFills bounds the number of blocks with an outstanding fill.
const maxPendingFills = 1024

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size" yaml:"size"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size" yaml:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency" yaml:"hit_latency"`
	// MissPenalty in cycles, charged instead of HitLatency on a miss
	MissPenalty uint64 `json:"miss_penalty" yaml:"miss_penalty"`
}

// DefaultConfig returns a 64-byte cache with 16-byte blocks.
func DefaultConfig() Config {
	return Config{
		Size:        64,
		BlockSize:   16,
		HitLatency:  1,
		MissPenalty: 10,
	}
}

// Lines returns the number of cache lines.
func (c Config) Lines() int {
	if c.BlockSize <= 0 {
		return 0
	}
	return c.Size / c.BlockSize
}

// Validate checks the cache geometry and latencies.
func (c Config) Validate() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block_size must be > 0", ErrInvalidConfig)
	case c.Size < c.BlockSize:
		return fmt.Errorf("%w: size must be >= block_size", ErrInvalidConfig)
	case c.Size%c.BlockSize != 0:
		return fmt.Errorf("%w: size must be a multiple of block_size", ErrInvalidConfig)
	case c.HitLatency == 0:
		return fmt.Errorf("%w: hit_latency must be > 0", ErrInvalidConfig)
	case c.MissPenalty == 0:
		return fmt.Errorf("%w: miss_penalty must be > 0", ErrInvalidConfig)
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access adds.
	Latency uint64
	// Index is the cache line the address maps to.
	Index int
	// Tag is the address tag compared against the line.
	Tag uint64
	// PendingFill is true when the block already had a fill in flight.
	PendingFill bool
}

// Line is a snapshot of one cache line.
type Line struct {
	Index int
	Valid bool
	Tag   uint64
	// BlockAddr is the block-aligned address held by the line.
	BlockAddr uint64
	Data      []byte
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Accesses      uint64
	Hits          uint64
	Misses        uint64
	Fills         uint64
	WriteThroughs uint64
}

// HitRate returns hits over accesses.
func (s Statistics) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses)
}

// BackingStore interface for the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// Cache is a direct-mapped, write-through, no-write-allocate cache. Misses
// do not install lines when they are detected. A load miss instead registers
// a pending fill that is completed when the load writes back.
type Cache struct {
	config Config

	// Akita cache directory with one way per set.
	directory *akitacache.DirectoryImpl

	// Blocks with a fill in flight.
	pending akitacache.MSHR

	// Data storage indexed by set.
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	lines := config.Lines()

	dataStore := make([][]byte, lines)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			lines,
			1,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		pending:   akitacache.NewMSHR(maxPendingFills),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// BlockAddr returns the block-aligned address of addr.
func (c *Cache) BlockAddr(addr uint64) uint64 {
	return (addr / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// IndexOf returns the line an address maps to.
func (c *Cache) IndexOf(addr uint64) int {
	return int((addr / uint64(c.config.BlockSize)) % uint64(c.config.Lines()))
}

// TagOf returns the tag of an address.
func (c *Cache) TagOf(addr uint64) uint64 {
	return addr / uint64(c.config.Size)
}

func (c *Cache) resident(addr uint64) *akitacache.Block {
	block := c.directory.Lookup(0, c.BlockAddr(addr))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// Access looks up an address and returns the access latency. The cache
// contents are not changed. An access to a block whose fill is still pending
// is a miss.
func (c *Cache) Access(addr uint64) AccessResult {
	c.stats.Accesses++

	result := AccessResult{
		Index:       c.IndexOf(addr),
		Tag:         c.TagOf(addr),
		PendingFill: c.HasPendingFill(addr),
	}

	block := c.resident(addr)
	if block != nil && !result.PendingFill {
		c.stats.Hits++
		c.directory.Visit(block)
		result.Hit = true
		result.Latency = c.config.HitLatency
		return result
	}

	c.stats.Misses++
	result.Latency = c.config.MissPenalty
	return result
}

// MarkPendingFill records that the block holding addr will be filled when
// the access that missed completes.
func (c *Cache) MarkPendingFill(addr uint64) {
	blockAddr := c.BlockAddr(addr)
	if c.pending.Query(0, blockAddr) != nil || c.pending.IsFull() {
		return
	}
	c.pending.Add(0, blockAddr)
}

// HasPendingFill reports whether the block holding addr has a fill in flight.
func (c *Cache) HasPendingFill(addr uint64) bool {
	return c.pending.Query(0, c.BlockAddr(addr)) != nil
}

// CompleteFill installs the block holding addr from the backing store,
// replacing whatever the line held, and clears its pending fill. A block
// that is already resident with no fill in flight is left alone.
func (c *Cache) CompleteFill(addr uint64) {
	blockAddr := c.BlockAddr(addr)
	if c.pending.Query(0, blockAddr) != nil {
		c.pending.Remove(0, blockAddr)
	} else if c.resident(addr) != nil {
		return
	}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return
	}

	data := c.dataStore[victim.SetID]
	if c.backing != nil {
		copy(data, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		clear(data)
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)
	c.stats.Fills++
}

// WriteThrough writes data to the backing store and refreshes any resident
// line it overlaps. Lines are never allocated by writes.
func (c *Cache) WriteThrough(addr uint64, data []byte) {
	c.stats.WriteThroughs++
	if c.backing != nil {
		c.backing.Write(addr, data)
	}

	for i, b := range data {
		a := addr + uint64(i)
		block := c.resident(a)
		if block == nil {
			continue
		}
		c.dataStore[block.SetID][a-block.Tag] = b
	}
}

// Lines returns a snapshot of every cache line in index order.
func (c *Cache) Lines() []Line {
	lines := make([]Line, c.config.Lines())
	for i := range lines {
		lines[i].Index = i
	}

	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			line := &lines[block.SetID]
			line.Valid = block.IsValid
			if !block.IsValid {
				continue
			}
			line.BlockAddr = block.Tag
			line.Tag = c.TagOf(block.Tag)
			line.Data = append([]byte(nil), c.dataStore[block.SetID]...)
		}
	}

	return lines
}

// Reset invalidates all cache lines, drops pending fills, and clears
// statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.pending = akitacache.NewMSHR(maxPendingFills)
	for _, data := range c.dataStore {
		clear(data)
	}
	c.stats = Statistics{}
}
