package core

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/timing/cache"
	"github.com/sarchlab/tomasim/timing/pipeline"
)

// Report is a read-only summary of a simulation.
type Report struct {
	Cycles    int64
	Statuses  []pipeline.InstructionStatus
	Registers []emu.RegisterState
	Stats     pipeline.Statistics
	Hazards   pipeline.HazardStats
	Mix       pipeline.InstructionMix
	Cache     cache.Statistics
}

// Report captures the current state of the core. Registers holding zero are
// left out.
func (c *Core) Report() Report {
	s := c.Scheduler
	r := Report{
		Cycles:   s.Cycle(),
		Statuses: s.Statuses(),
		Stats:    s.Stats(),
		Hazards:  s.Hazards(),
		Mix:      s.Mix(),
		Cache:    s.CacheStats(),
	}
	for _, reg := range s.Registers() {
		if reg.Value != 0 || reg.Producer != emu.NoTag {
			r.Registers = append(r.Registers, reg)
		}
	}
	return r
}

func cycleText(c int64) string {
	if c < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", c)
}

// WriteTo renders the report as text tables.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tIter\tInstruction\tTag\tIssue\tExec\tWrite")
	for _, st := range r.Statuses {
		exec := "-"
		if st.ExecStart >= 0 {
			exec = cycleText(st.ExecStart) + "-" + cycleText(st.ExecEnd)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			st.Index, st.Iteration, st.Inst.Text, st.Tag,
			cycleText(st.Issue), exec, cycleText(st.WriteBack))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Register\tValue\tProducer")
	for _, reg := range r.Registers {
		fmt.Fprintf(tw, "%s\t%g\t%s\n", reg.Name, reg.Value, reg.Producer)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Cycles:\t%d\n", r.Cycles)
	fmt.Fprintf(tw, "Issued:\t%d\n", r.Stats.Issued)
	fmt.Fprintf(tw, "Completed:\t%d\n", r.Stats.Completed)
	fmt.Fprintf(tw, "IPC:\t%.3f\n", r.Stats.IPC())
	fmt.Fprintf(tw, "CPI:\t%.3f\n", r.Stats.CPI())
	fmt.Fprintf(tw, "Stalls:\t%d (structural %d, memory %d, branch %d)\n",
		r.Stats.Stalls, r.Stats.StructuralStalls, r.Stats.MemoryStalls, r.Stats.BranchStalls)
	fmt.Fprintf(tw, "Taken branches:\t%d\n", r.Stats.Flushes)
	if r.Stats.Skipped > 0 {
		fmt.Fprintf(tw, "Skipped:\t%d\n", r.Stats.Skipped)
	}
	fmt.Fprintf(tw, "Hazards:\tRAW %d, WAR %d, WAW %d, structural %d\n",
		r.Hazards.RAW, r.Hazards.WAR, r.Hazards.WAW, r.Hazards.Structural)
	fmt.Fprintf(tw, "Mix:\t%d loads, %d stores, %d fp, %d int, %d branches\n",
		r.Mix.Loads, r.Mix.Stores, r.Mix.FPOps, r.Mix.IntOps, r.Mix.Branches)
	fmt.Fprintf(tw, "Cache:\t%d hits, %d misses (%.1f%%)\n",
		r.Cache.Hits, r.Cache.Misses, 100*r.Cache.HitRate())

	err := tw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
