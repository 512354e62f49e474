package parbench

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Schedule is a loop scheduling policy
type Schedule int

const (
	// Iterations are assigned up front, no negotiation at run time
	ScheduleStatic Schedule = iota
	// Fixed-size chunks claimed from a shared cursor
	ScheduleDynamic
	// Chunks claimed from a shared cursor, shrinking as work runs out
	ScheduleGuided
)

// String returns the lowercase schedule name
func (s Schedule) String() string {
	switch s {
	case ScheduleStatic:
		return "static"
	case ScheduleDynamic:
		return "dynamic"
	case ScheduleGuided:
		return "guided"
	default:
		return fmt.Sprintf("Schedule(%d)", int(s))
	}
}

// ParseSchedule accepts static, dynamic or guided in any case
func ParseSchedule(s string) (Schedule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return ScheduleStatic, nil
	case "dynamic":
		return ScheduleDynamic, nil
	case "guided":
		return ScheduleGuided, nil
	default:
		return 0, NewInvalidArgError("ParseSchedule", fmt.Sprintf("unknown schedule %q", s))
	}
}

// Policy pairs a schedule with a chunk size. For Static a chunk of zero means
// one contiguous range per thread; for Dynamic and Guided it means 1.
type Policy struct {
	Schedule Schedule
	Chunk    int
}

// Static returns a static policy. chunk <= 0 splits the space into one
// contiguous range per thread.
func Static(chunk int) Policy { return Policy{Schedule: ScheduleStatic, Chunk: chunk} }

// Dynamic returns a dynamic policy claiming chunk iterations at a time
func Dynamic(chunk int) Policy { return Policy{Schedule: ScheduleDynamic, Chunk: chunk} }

// Guided returns a guided policy whose claims shrink toward chunk
func Guided(chunk int) Policy { return Policy{Schedule: ScheduleGuided, Chunk: chunk} }

// String formats the policy the way OpenMP's schedule clause reads
func (p Policy) String() string {
	if p.Chunk <= 0 {
		return p.Schedule.String()
	}
	return p.Schedule.String() + "," + strconv.Itoa(p.Chunk)
}

// Validate rejects unknown schedules and negative chunks
func (p Policy) Validate() error {
	if p.Schedule < ScheduleStatic || p.Schedule > ScheduleGuided {
		return NewInvalidArgError("Policy", fmt.Sprintf("unknown schedule %d", int(p.Schedule)))
	}
	if p.Chunk < 0 {
		return NewInvalidArgError("Policy", fmt.Sprintf("negative chunk size %d", p.Chunk))
	}
	return nil
}

// Chunk is the half-open iteration range [Start, End) handed out by one claim
type Chunk struct {
	Start, End int
}

// Len returns the number of iterations in the chunk
func (c Chunk) Len() int { return c.End - c.Start }

// Partitioner hands out chunks of [0, N) to the threads of a team. The union
// of all chunks returned for one region covers [0, N) exactly once.
//
// Next must only be called by the thread it names. Implementations are safe
// for concurrent use by distinct threads.
type Partitioner interface {
	// Next returns the next chunk for thread, or false when thread has no
	// more work.
	Next(thread int) (Chunk, bool)
}

// NewPartitioner creates a partitioner over [0, n) for a team of the given size
func NewPartitioner(n, threads int, p Policy) (Partitioner, error) {
	if n <= 0 {
		return nil, ErrEmptyIterationSpace
	}
	if threads <= 0 {
		return nil, ErrZeroThreads
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// A chunk never needs to exceed the space. Clamping keeps every cursor
	// below n*(threads+1), so claim arithmetic cannot overflow.
	chunk := min(p.Chunk, n)

	switch p.Schedule {
	case ScheduleDynamic:
		return &dynamicPartitioner{n: int64(n), chunk: int64(max(chunk, 1))}, nil
	case ScheduleGuided:
		return &guidedPartitioner{n: int64(n), threads: int64(threads), chunk: int64(max(chunk, 1))}, nil
	default:
		if chunk <= 0 {
			chunk = (n + threads - 1) / threads
		}
		sp := &staticPartitioner{n: n, threads: threads, chunk: chunk, cursors: make([]blockCursor, threads)}
		for t := range sp.cursors {
			sp.cursors[t].next = t
		}
		return sp, nil
	}
}

// blockCursor is one thread's position in the round-robin block sequence.
// Padding keeps neighbouring threads off each other's cache line.
type blockCursor struct {
	_    cpu.CacheLinePad
	next int
}

// staticPartitioner deals blocks of chunk iterations round-robin: thread t
// gets blocks t, t+P, t+2P, ... With the default chunk of ceil(N/P) every
// thread gets exactly one contiguous range and the last one is truncated.
type staticPartitioner struct {
	n, threads, chunk int
	cursors           []blockCursor
}

func (s *staticPartitioner) Next(thread int) (Chunk, bool) {
	cur := &s.cursors[thread]
	start := cur.next * s.chunk
	if start >= s.n {
		return Chunk{}, false
	}
	cur.next += s.threads
	return Chunk{Start: start, End: min(start+s.chunk, s.n)}, true
}

// dynamicPartitioner claims fixed blocks with an atomic fetch-and-add on a
// shared cursor, so no two claims can overlap.
type dynamicPartitioner struct {
	_      cpu.CacheLinePad
	cursor atomic.Int64
	n      int64
	chunk  int64
}

func (d *dynamicPartitioner) Next(int) (Chunk, bool) {
	start := d.cursor.Add(d.chunk) - d.chunk
	if start >= d.n {
		return Chunk{}, false
	}
	return Chunk{Start: int(start), End: int(min(start+d.chunk, d.n))}, true
}

// guidedPartitioner claims ceil(remaining/(2P)) iterations at a time, never
// fewer than chunk, so claims halve as each round of the team drains half of
// what is left. Claims use compare-and-swap; a failed swap retries against
// the new cursor.
type guidedPartitioner struct {
	_       cpu.CacheLinePad
	cursor  atomic.Int64
	n       int64
	threads int64
	chunk   int64
}

func (g *guidedPartitioner) Next(int) (Chunk, bool) {
	for {
		start := g.cursor.Load()
		if start >= g.n {
			return Chunk{}, false
		}
		remaining := g.n - start
		size := max((remaining+2*g.threads-1)/(2*g.threads), g.chunk)
		size = min(size, remaining)
		if g.cursor.CompareAndSwap(start, start+size) {
			return Chunk{Start: int(start), End: int(start + size)}, true
		}
	}
}

// Drain runs a partitioner to exhaustion on one goroutine, letting threads
// claim in round-robin order, and returns the chunks each thread received.
func Drain(n, threads int, p Policy) ([][]Chunk, error) {
	part, err := NewPartitioner(n, threads, p)
	if err != nil {
		return nil, err
	}

	assigned := make([][]Chunk, threads)
	active := threads
	done := make([]bool, threads)
	for active > 0 {
		for t := 0; t < threads; t++ {
			if done[t] {
				continue
			}
			c, ok := part.Next(t)
			if !ok {
				done[t] = true
				active--
				continue
			}
			assigned[t] = append(assigned[t], c)
		}
	}
	return assigned, nil
}

// CheckCoverage verifies that chunks cover [0, n) exactly once, with no gap,
// overlap, empty or out-of-range chunk. Chunks may be in any order.
func CheckCoverage(n int, chunks []Chunk) error {
	sorted := slices.Clone(chunks)
	slices.SortFunc(sorted, func(a, b Chunk) int { return a.Start - b.Start })

	next := 0
	for _, c := range sorted {
		switch {
		case c.Start >= c.End:
			return NewCoverageError("CheckCoverage", fmt.Sprintf("empty chunk [%d,%d)", c.Start, c.End), c)
		case c.Start < 0 || c.End > n:
			return NewCoverageError("CheckCoverage", fmt.Sprintf("chunk [%d,%d) outside [0,%d)", c.Start, c.End, n), c)
		case c.Start < next:
			return NewCoverageError("CheckCoverage", fmt.Sprintf("chunk [%d,%d) overlaps iterations before %d", c.Start, c.End, next), c)
		case c.Start > next:
			return NewCoverageError("CheckCoverage", fmt.Sprintf("gap [%d,%d)", next, c.Start), c)
		}
		next = c.End
	}
	if next != n {
		return NewCoverageError("CheckCoverage", fmt.Sprintf("gap [%d,%d)", next, n), Chunk{Start: next, End: n})
	}
	return nil
}

// ParsePolicy reads the form produced by Policy.String: a schedule name,
// optionally followed by a comma and a chunk size.
func ParsePolicy(s string) (Policy, error) {
	name, chunk, hasChunk := strings.Cut(s, ",")
	sched, err := ParseSchedule(name)
	if err != nil {
		return Policy{}, err
	}
	p := Policy{Schedule: sched}
	if hasChunk {
		c, err := strconv.Atoi(strings.TrimSpace(chunk))
		if err != nil {
			return Policy{}, NewInvalidArgError("ParsePolicy", fmt.Sprintf("bad chunk size in %q", s))
		}
		p.Chunk = c
	}
	return p, p.Validate()
}

// MarshalText implements encoding.TextMarshaler
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
