// Package parbench performance counter integration for detailed performance analysis
package parbench

import (
	"fmt"
	"strings"
	"sync"
)

// HardwareCounters holds hardware event counts for one measured region,
// summed over the workers that ran it.
type HardwareCounters struct {
	Cycles          uint64 `json:"cycles"`
	Instructions    uint64 `json:"instructions"`
	BranchMisses    uint64 `json:"branch_misses"`
	CacheReferences uint64 `json:"cache_references"`
	CacheMisses     uint64 `json:"cache_misses"`
	L1DMisses       uint64 `json:"l1d_misses"`
	LLCMisses       uint64 `json:"llc_misses"`
}

// Add accumulates o into c
func (c *HardwareCounters) Add(o HardwareCounters) {
	c.Cycles += o.Cycles
	c.Instructions += o.Instructions
	c.BranchMisses += o.BranchMisses
	c.CacheReferences += o.CacheReferences
	c.CacheMisses += o.CacheMisses
	c.L1DMisses += o.L1DMisses
	c.LLCMisses += o.LLCMisses
}

// IPC returns instructions per cycle, or 0 when no cycles were counted
func (c HardwareCounters) IPC() float64 {
	if c.Cycles == 0 {
		return 0
	}
	return float64(c.Instructions) / float64(c.Cycles)
}

// CacheMissRate returns cache misses per cache reference
func (c HardwareCounters) CacheMissRate() float64 {
	if c.CacheReferences == 0 {
		return 0
	}
	return float64(c.CacheMisses) / float64(c.CacheReferences)
}

// String formats the counters for display
func (c HardwareCounters) String() string {
	var sb strings.Builder

	sb.WriteString("Performance Counters:\n")
	if c.Cycles > 0 {
		sb.WriteString(fmt.Sprintf("  CPU Cycles:        %d\n", c.Cycles))
		sb.WriteString(fmt.Sprintf("  Instructions:      %d\n", c.Instructions))
		sb.WriteString(fmt.Sprintf("  IPC:               %.2f\n", c.IPC()))
	}
	if c.BranchMisses > 0 {
		sb.WriteString(fmt.Sprintf("  Branch Misses:     %d\n", c.BranchMisses))
	}
	if c.L1DMisses > 0 {
		sb.WriteString(fmt.Sprintf("  L1D Cache Misses:  %d\n", c.L1DMisses))
	}
	if c.LLCMisses > 0 {
		sb.WriteString(fmt.Sprintf("  LLC Misses:        %d\n", c.LLCMisses))
	}
	if c.CacheReferences > 0 {
		sb.WriteString(fmt.Sprintf("  Cache Miss Rate:   %.2f%%\n", c.CacheMissRate()*100))
	}

	return sb.String()
}

// CounterAggregate sums the counters of every worker of every region it is
// attached to. It is safe for concurrent use.
type CounterAggregate struct {
	mu          sync.Mutex
	total       HardwareCounters
	workers     int
	unavailable error
}

// NewCounterAggregate creates an empty aggregate
func NewCounterAggregate() *CounterAggregate {
	return &CounterAggregate{}
}

func (a *CounterAggregate) add(c HardwareCounters) {
	a.mu.Lock()
	a.total.Add(c)
	a.workers++
	a.mu.Unlock()
}

func (a *CounterAggregate) markUnavailable(err error) {
	a.mu.Lock()
	if a.unavailable == nil {
		a.unavailable = err
	}
	a.mu.Unlock()
}

// Snapshot returns the totals so far. The error is set when some worker
// could not open its counters, typically because perf_event_paranoid
// forbids it or the platform has no perf events.
func (a *CounterAggregate) Snapshot() (HardwareCounters, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total, a.unavailable
}

// Workers returns how many worker regions contributed to the totals
func (a *CounterAggregate) Workers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workers
}

// Reset clears totals and the unavailable state
func (a *CounterAggregate) Reset() {
	a.mu.Lock()
	a.total = HardwareCounters{}
	a.workers = 0
	a.unavailable = nil
	a.mu.Unlock()
}

// PerCall divides every count by calls, for totals gathered over repeated
// calls of the same kernel.
func (c HardwareCounters) PerCall(calls int) HardwareCounters {
	if calls <= 0 {
		return c
	}
	k := uint64(calls)
	return HardwareCounters{
		Cycles:          c.Cycles / k,
		Instructions:    c.Instructions / k,
		BranchMisses:    c.BranchMisses / k,
		CacheReferences: c.CacheReferences / k,
		CacheMisses:     c.CacheMisses / k,
		L1DMisses:       c.L1DMisses / k,
		LLCMisses:       c.LLCMisses / k,
	}
}
