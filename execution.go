package parbench

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/cpu"
)

// Reduction selects how per-thread partial results reach the shared target.
type Reduction int

const (
	// Every chunk's partial is combined into the target with an atomic update
	SharedReduction Reduction = iota
	// Each thread accumulates privately, then merges once under a lock
	LocalMerge
	// Read-modify-write on the target without synchronization. Updates can
	// be lost; only for demonstrating the race.
	Unsynchronized
)

// String returns the strategy name used in reports
func (r Reduction) String() string {
	switch r {
	case SharedReduction:
		return "shared"
	case LocalMerge:
		return "local"
	case Unsynchronized:
		return "unsync"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

// ParseReduction is the inverse of Reduction.String
func ParseReduction(s string) (Reduction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared":
		return SharedReduction, nil
	case "local":
		return LocalMerge, nil
	case "unsync":
		return Unsynchronized, nil
	default:
		return 0, NewInvalidArgError("ParseReduction", fmt.Sprintf("unknown reduction %q", s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (r Reduction) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Reduction) UnmarshalText(text []byte) error {
	parsed, err := ParseReduction(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Sync selects what a thread does between finishing its chunks and merging.
type Sync int

const (
	// Wait for the whole team before any thread merges
	Barrier Sync = iota
	// Merge as soon as the thread's own chunks are done
	NoWait
)

// String returns the sync mode name used in reports
func (s Sync) String() string {
	switch s {
	case Barrier:
		return "barrier"
	case NoWait:
		return "nowait"
	default:
		return fmt.Sprintf("Sync(%d)", int(s))
	}
}

// ParseSync is the inverse of Sync.String
func ParseSync(s string) (Sync, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "barrier":
		return Barrier, nil
	case "nowait":
		return NoWait, nil
	default:
		return 0, NewInvalidArgError("ParseSync", fmt.Sprintf("unknown sync mode %q", s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Sync) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Sync) UnmarshalText(text []byte) error {
	parsed, err := ParseSync(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Strategy pairs a reduction with a sync mode
type Strategy struct {
	Reduction Reduction
	Sync      Sync
}

// Validate rejects NoWait where nothing downstream synchronizes: only the
// locked merge of LocalMerge makes skipping the barrier safe.
func (s Strategy) Validate() error {
	if s.Reduction < SharedReduction || s.Reduction > Unsynchronized {
		return NewInvalidArgError("Strategy", fmt.Sprintf("unknown reduction %d", int(s.Reduction)))
	}
	if s.Sync != Barrier && s.Sync != NoWait {
		return NewInvalidArgError("Strategy", fmt.Sprintf("unknown sync mode %d", int(s.Sync)))
	}
	if s.Sync == NoWait && s.Reduction != LocalMerge {
		return NewInvalidArgError("Strategy", fmt.Sprintf("nowait requires a local merge, got %s", s.Reduction))
	}
	return nil
}

func (s Strategy) String() string {
	return s.Reduction.String() + "+" + s.Sync.String()
}

// ReduceOp is an associative, commutative combine with its identity
type ReduceOp struct {
	Identity float64
	Combine  func(a, b float64) float64
}

var (
	OpSum = ReduceOp{Identity: 0, Combine: func(a, b float64) float64 { return a + b }}
	OpMax = ReduceOp{Identity: math.Inf(-1), Combine: math.Max}
)

// EventKind classifies what a worker reports to a team tracer
type EventKind int

const (
	EventClaim EventKind = iota
	EventAtomicUpdate
	EventBarrier
	EventMerge
)

// Event is one step of one worker inside a parallel region
type Event struct {
	Kind   EventKind
	Thread int
	Chunk  Chunk
}

// TeamOption configures a Team
type TeamOption func(*Team)

// WithPinning binds worker i to the i-th allowed CPU, wrapping around when
// the team is larger than the CPU set.
func WithPinning() TeamOption {
	return func(t *Team) { t.pin = true }
}

// WithTracer reports every claim, atomic update, barrier arrival and merge.
// fn is called from all workers concurrently.
func WithTracer(fn func(Event)) TeamOption {
	return func(t *Team) { t.tracer = fn }
}

// WithHardwareCounters collects per-worker hardware counters for every
// region into agg.
func WithHardwareCounters(agg *CounterAggregate) TeamOption {
	return func(t *Team) { t.counters = agg }
}

// Team is a fixed-size group of workers. Each region (Run, For, Reduce,
// ReduceInto) forks one goroutine per worker and joins them all before
// returning; nothing persists between regions except scratch buffers.
// A Team runs one region at a time.
type Team struct {
	size     int
	pin      bool
	cpus     []int
	tracer   func(Event)
	counters *CounterAggregate
	scratch  [][]float64
}

// NewTeam creates a team of size workers
func NewTeam(size int, opts ...TeamOption) (*Team, error) {
	if size <= 0 {
		return nil, ErrZeroThreads
	}
	t := &Team{size: size}
	for _, opt := range opts {
		opt(t)
	}
	if t.pin {
		cpus, err := allowedCPUs()
		if err != nil {
			return nil, err
		}
		t.cpus = cpus
	}
	return t, nil
}

// Size returns the number of workers
func (t *Team) Size() int {
	return t.size
}

func (t *Team) trace(kind EventKind, thread int, c Chunk) {
	if t.tracer != nil {
		t.tracer(Event{Kind: kind, Thread: thread, Chunk: c})
	}
}

// Run forks one goroutine per worker running body(thread) and waits for all
// of them. A pinning failure is returned after the join; the worker still
// runs its body so that barriers inside body see the whole team.
func (t *Team) Run(body func(thread int)) error {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	wg.Add(t.size)
	for id := 0; id < t.size; id++ {
		go func() {
			defer wg.Done()
			if err := t.work(id, body); err != nil {
				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return first
}

func (t *Team) work(id int, body func(int)) error {
	var err error
	if t.pin || t.counters != nil {
		runtime.LockOSThread()
		// A pinned thread exits with its goroutine instead of returning to
		// the scheduler with a narrowed affinity mask.
		if !t.pin {
			defer runtime.UnlockOSThread()
		}
	}
	if t.pin {
		err = pinCurrentThread(t.cpus[id%len(t.cpus)])
	}
	if t.counters != nil {
		tc, cerr := openThreadCounters()
		if cerr != nil {
			t.counters.markUnavailable(cerr)
		} else {
			defer func() { t.counters.add(tc.readAndClose()) }()
		}
	}
	body(id)
	return err
}

// slot is per-worker region state, padded so neighbouring workers do not
// share a cache line.
type slot struct {
	_       cpu.CacheLinePad
	claimed int
	acc     float64
}

func checkClaimed(op string, n int, slots []slot) error {
	total := 0
	for i := range slots {
		total += slots[i].claimed
	}
	if total != n {
		return NewCoverageError(op, fmt.Sprintf("workers claimed %d iterations of %d", total, n), total)
	}
	return nil
}

// For runs body over every chunk of [0, n) handed out by the policy. It
// fails with a coverage error if the claimed iterations do not add up to n.
func (t *Team) For(n int, p Policy, body func(thread int, c Chunk)) error {
	part, err := NewPartitioner(n, t.size, p)
	if err != nil {
		return err
	}
	slots := make([]slot, t.size)
	err = t.Run(func(id int) {
		s := &slots[id]
		for {
			c, ok := part.Next(id)
			if !ok {
				return
			}
			t.trace(EventClaim, id, c)
			body(id, c)
			s.claimed += c.Len()
		}
	})
	if err != nil {
		return err
	}
	return checkClaimed("For", n, slots)
}

// Audit records every chunk the team claims for [0, n) under the policy and
// checks that together they cover it exactly once.
func (t *Team) Audit(n int, p Policy) ([]Chunk, error) {
	var (
		mu     sync.Mutex
		chunks []Chunk
	)
	err := t.For(n, p, func(_ int, c Chunk) {
		mu.Lock()
		chunks = append(chunks, c)
		mu.Unlock()
	})
	if err != nil {
		return chunks, err
	}
	return chunks, CheckCoverage(n, chunks)
}

// Reduce folds partial(c) over every chunk of [0, n) with op, delivering the
// partials through the strategy.
func (t *Team) Reduce(n int, p Policy, s Strategy, op ReduceOp, partial func(c Chunk) float64) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	part, err := NewPartitioner(n, t.size, p)
	if err != nil {
		return 0, err
	}

	var (
		result = op.Identity
		mu     sync.Mutex
		bar    *barrier
	)
	if s.Reduction == LocalMerge && s.Sync == Barrier {
		bar = newBarrier(t.size)
	}
	slots := make([]slot, t.size)

	err = t.Run(func(id int) {
		sl := &slots[id]
		sl.acc = op.Identity
		for {
			c, ok := part.Next(id)
			if !ok {
				break
			}
			t.trace(EventClaim, id, c)
			v := partial(c)
			sl.claimed += c.Len()
			switch s.Reduction {
			case SharedReduction:
				atomicCombine(&result, v, op.Combine)
				t.trace(EventAtomicUpdate, id, c)
			case Unsynchronized:
				tornCombine(&result, v, op.Combine)
			default:
				sl.acc = op.Combine(sl.acc, v)
			}
		}
		if s.Reduction != LocalMerge {
			return
		}
		if bar != nil {
			t.trace(EventBarrier, id, Chunk{})
			bar.Wait()
		}
		mu.Lock()
		result = op.Combine(result, sl.acc)
		mu.Unlock()
		t.trace(EventMerge, id, Chunk{})
	})
	if err != nil {
		return 0, err
	}
	if err := checkClaimed("Reduce", n, slots); err != nil {
		return 0, err
	}
	return result, nil
}

// ReduceInto sums per-chunk contributions into target. body adds the
// contribution of chunk c into acc, a zeroed buffer the length of target
// that belongs to the calling worker.
func (t *Team) ReduceInto(n int, p Policy, s Strategy, target []float64, body func(acc []float64, c Chunk)) error {
	if err := s.Validate(); err != nil {
		return err
	}
	part, err := NewPartitioner(n, t.size, p)
	if err != nil {
		return err
	}

	var (
		mu  sync.Mutex
		bar *barrier
	)
	if s.Reduction == LocalMerge && s.Sync == Barrier {
		bar = newBarrier(t.size)
	}
	scratch := t.scratchBuffers(len(target))
	slots := make([]slot, t.size)

	err = t.Run(func(id int) {
		sl := &slots[id]
		priv := scratch[id]
		clear(priv)
		for {
			c, ok := part.Next(id)
			if !ok {
				break
			}
			t.trace(EventClaim, id, c)
			switch s.Reduction {
			case SharedReduction:
				clear(priv)
				body(priv, c)
				for i, v := range priv {
					atomicAdd(&target[i], v)
				}
				t.trace(EventAtomicUpdate, id, c)
			case Unsynchronized:
				clear(priv)
				body(priv, c)
				for i, v := range priv {
					tornAdd(&target[i], v)
				}
			default:
				body(priv, c)
			}
			sl.claimed += c.Len()
		}
		if s.Reduction != LocalMerge {
			return
		}
		if bar != nil {
			t.trace(EventBarrier, id, Chunk{})
			bar.Wait()
		}
		mu.Lock()
		for i, v := range priv {
			target[i] += v
		}
		mu.Unlock()
		t.trace(EventMerge, id, Chunk{})
	})
	if err != nil {
		return err
	}
	return checkClaimed("ReduceInto", n, slots)
}

// scratchBuffers returns one private buffer of length m per worker, reusing
// the previous region's buffers when the length matches.
func (t *Team) scratchBuffers(m int) [][]float64 {
	if len(t.scratch) == t.size && len(t.scratch[0]) == m {
		return t.scratch
	}
	t.scratch = make([][]float64, t.size)
	for i := range t.scratch {
		t.scratch[i] = make([]float64, m)
	}
	return t.scratch
}
