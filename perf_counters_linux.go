//go:build linux

// Package parbench provides Linux-specific performance counter implementation
package parbench

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

type perfEventConfig struct {
	name   string
	typ    uint32
	config uint64
	field  func(*HardwareCounters) *uint64
}

// cacheConfig creates a cache event configuration
func cacheConfig(cache, op, result uint64) uint64 {
	return cache | op<<8 | result<<16
}

var perfEvents = []perfEventConfig{
	{"cycles", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES,
		func(c *HardwareCounters) *uint64 { return &c.Cycles }},
	{"instructions", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS,
		func(c *HardwareCounters) *uint64 { return &c.Instructions }},
	{"branch-misses", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES,
		func(c *HardwareCounters) *uint64 { return &c.BranchMisses }},
	{"cache-references", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES,
		func(c *HardwareCounters) *uint64 { return &c.CacheReferences }},
	{"cache-misses", unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES,
		func(c *HardwareCounters) *uint64 { return &c.CacheMisses }},
	{"L1-dcache-load-misses", unix.PERF_TYPE_HW_CACHE,
		cacheConfig(unix.PERF_COUNT_HW_CACHE_L1D, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
		func(c *HardwareCounters) *uint64 { return &c.L1DMisses }},
	{"LLC-load-misses", unix.PERF_TYPE_HW_CACHE,
		cacheConfig(unix.PERF_COUNT_HW_CACHE_LL, unix.PERF_COUNT_HW_CACHE_OP_READ, unix.PERF_COUNT_HW_CACHE_RESULT_MISS),
		func(c *HardwareCounters) *uint64 { return &c.LLCMisses }},
}

// threadCounters is the set of perf event descriptors of one OS thread.
// An event the CPU does not support is left at -1 and reads as zero.
type threadCounters struct {
	fds []int
}

// openThreadCounters opens and enables counters for the calling thread.
// The caller must hold the thread with runtime.LockOSThread until
// readAndClose. Only user-space events are counted so that the default
// perf_event_paranoid setting allows it.
func openThreadCounters() (*threadCounters, error) {
	tc := &threadCounters{fds: make([]int, len(perfEvents))}
	opened := 0
	var firstErr error
	for i, ev := range perfEvents {
		attr := unix.PerfEventAttr{
			Type:   ev.typ,
			Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
			Config: ev.config,
			Bits:   unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
		}
		fd, err := unix.PerfEventOpen(&attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
		if err != nil {
			tc.fds[i] = -1
			if firstErr == nil {
				firstErr = fmt.Errorf("perf event %s: %w", ev.name, err)
			}
			continue
		}
		tc.fds[i] = fd
		opened++
	}
	if opened == 0 {
		return nil, NewExecutionError("openThreadCounters", "no hardware counters available", firstErr)
	}

	for _, fd := range tc.fds {
		if fd < 0 {
			continue
		}
		_ = unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0)
		_ = unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0)
	}
	return tc, nil
}

// readAndClose disables every counter, reads it and closes it
func (tc *threadCounters) readAndClose() HardwareCounters {
	var counters HardwareCounters
	var buf [8]byte
	for i, fd := range tc.fds {
		if fd < 0 {
			continue
		}
		_ = unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0)
		if n, err := unix.Read(fd, buf[:]); err == nil && n == len(buf) {
			*perfEvents[i].field(&counters) = binary.NativeEndian.Uint64(buf[:])
		}
		unix.Close(fd)
	}
	tc.fds = nil
	return counters
}
