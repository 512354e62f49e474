package parbench

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Clock supplies timestamps to the Timer. time.Now reads the monotonic
// clock, so differences are immune to wall-clock adjustments.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the monotonic process clock
var SystemClock Clock = systemClock{}

// ManualClock only moves when Advance is called. Kernels that advance it
// by fixed amounts give exactly reproducible trial times.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock at the Unix epoch
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

// Now returns the current reading
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// TimerState tracks a Timer through one measurement
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerWarming
	TimerMeasuring
	TimerDone
)

func (s TimerState) String() string {
	switch s {
	case TimerIdle:
		return "idle"
	case TimerWarming:
		return "warming"
	case TimerMeasuring:
		return "measuring"
	case TimerDone:
		return "done"
	default:
		return fmt.Sprintf("TimerState(%d)", int(s))
	}
}

// TrialResult is one timed call of a kernel
type TrialResult struct {
	// Zero-based index among the measured trials
	Trial int `json:"trial"`
	// Wall time in seconds
	Elapsed float64 `json:"elapsed_seconds"`
	// Snapshot of what the call produced
	Output Output `json:"output"`
}

// Measurement is the outcome of Timer.Measure
type Measurement struct {
	// Fastest trial; ties keep the earliest
	Best TrialResult
	// Elapsed seconds of every measured trial, in order
	Trials []float64
}

// Timer runs a callable Warmup times untimed, then Trials times timed, and
// keeps the fastest trial. OS preemption only ever adds time, so the
// minimum is the least noisy estimate.
type Timer struct {
	Warmup int
	Trials int

	// Clock defaults to SystemClock
	Clock Clock

	// Prepare runs untimed before every call, warmups included. It is where
	// mutable buffers are zeroed and caches flushed.
	Prepare func() error

	// Observe, if set, sees every measured trial as it completes
	Observe func(TrialResult)

	state TimerState
}

// NewTimer creates a timer with the given protocol on the system clock
func NewTimer(warmup, trials int) *Timer {
	return &Timer{Warmup: warmup, Trials: trials, Clock: SystemClock}
}

// State returns where the timer is in its current or last measurement
func (t *Timer) State() TimerState {
	return t.state
}

// Measure runs the protocol against fn. An error from fn or Prepare aborts
// the measurement and is returned as is. Buffer outputs are copied when a
// trial becomes the best, so fn may reuse its output buffer.
func (t *Timer) Measure(fn func() (Output, error)) (Measurement, error) {
	t.state = TimerIdle
	if t.Trials <= 0 {
		return Measurement{}, NewDegenerateInputError("Measure", fmt.Sprintf("trial count must be positive, got %d", t.Trials))
	}
	if t.Warmup < 0 {
		return Measurement{}, NewInvalidArgError("Measure", fmt.Sprintf("negative warmup count %d", t.Warmup))
	}
	clock := t.Clock
	if clock == nil {
		clock = SystemClock
	}

	t.state = TimerWarming
	for i := 0; i < t.Warmup; i++ {
		if err := t.prepare(); err != nil {
			return Measurement{}, err
		}
		if _, err := fn(); err != nil {
			return Measurement{}, err
		}
	}

	t.state = TimerMeasuring
	m := Measurement{Trials: make([]float64, 0, t.Trials)}
	for i := 0; i < t.Trials; i++ {
		if err := t.prepare(); err != nil {
			return Measurement{}, err
		}
		start := clock.Now()
		out, err := fn()
		elapsed := clock.Now().Sub(start).Seconds()
		if err != nil {
			return Measurement{}, err
		}

		m.Trials = append(m.Trials, elapsed)
		trial := TrialResult{Trial: i, Elapsed: elapsed, Output: out}
		if i == 0 || elapsed < m.Best.Elapsed {
			if out.IsBuffer() {
				trial.Output.Buffer = slices.Clone(out.Buffer)
			}
			m.Best = trial
		}
		if t.Observe != nil {
			t.Observe(trial)
		}
	}

	t.state = TimerDone
	return m, nil
}

func (t *Timer) prepare() error {
	if t.Prepare == nil {
		return nil
	}
	return t.Prepare()
}
