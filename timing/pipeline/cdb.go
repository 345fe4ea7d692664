package pipeline

import (
	"fmt"

	"github.com/sarchlab/tomasim/emu"
)

// Result is a completed value waiting for the common data bus. Stores and
// branches carry no destination.
type Result struct {
	Tag   emu.Tag
	Dest  string
	Value float64
}

// Subscriber receives every broadcast result.
type Subscriber interface {
	OnBroadcast(r Result, cycle int64)
}

// CommonDataBus broadcasts at most one result per cycle, in the order the
// results were enqueued.
type CommonDataBus struct {
	queue       []Result
	subscribers []Subscriber
	broadcasts  uint64
}

// NewCommonDataBus creates a bus that fans out to subs in order.
func NewCommonDataBus(subs ...Subscriber) *CommonDataBus {
	return &CommonDataBus{subscribers: subs}
}

// Subscribe adds a subscriber after the existing ones.
func (b *CommonDataBus) Subscribe(s Subscriber) {
	b.subscribers = append(b.subscribers, s)
}

// Enqueue schedules a result for broadcast. An empty tag panics.
func (b *CommonDataBus) Enqueue(tag emu.Tag, dest string, value float64) {
	if tag == emu.NoTag {
		panic(fmt.Sprintf("pipeline: enqueue result for %q without a tag", dest))
	}
	b.queue = append(b.queue, Result{Tag: tag, Dest: dest, Value: value})
}

// TickAndBroadcast pops the oldest result and delivers it to every
// subscriber. It returns false when nothing was waiting.
func (b *CommonDataBus) TickAndBroadcast(cycle int64) (Result, bool) {
	if len(b.queue) == 0 {
		return Result{}, false
	}

	r := b.queue[0]
	b.queue = b.queue[1:]
	b.broadcasts++
	for _, s := range b.subscribers {
		s.OnBroadcast(r, cycle)
	}
	return r, true
}

// Len returns the number of results waiting.
func (b *CommonDataBus) Len() int {
	return len(b.queue)
}

// Pending returns the waiting results, oldest first.
func (b *CommonDataBus) Pending() []Result {
	return append([]Result(nil), b.queue...)
}

// Broadcasts returns the number of results delivered.
func (b *CommonDataBus) Broadcasts() uint64 {
	return b.broadcasts
}

// regFileSubscriber commits broadcast values into the register file.
type regFileSubscriber struct {
	regs *emu.RegFile
}

func (s regFileSubscriber) OnBroadcast(r Result, cycle int64) {
	if r.Dest == "" {
		return
	}
	s.regs.Commit(r.Dest, r.Tag, r.Value, cycle)
}
