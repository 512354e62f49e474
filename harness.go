package parbench

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// RunConfig is one parallel configuration of a benchmark
type RunConfig struct {
	Threads   int       `json:"threads"`
	Policy    Policy    `json:"policy"`
	Reduction Reduction `json:"reduction"`
	Sync      Sync      `json:"sync"`
	Warmup    int       `json:"warmup"`
	Trials    int       `json:"trials"`
	Tolerance Tolerance `json:"tolerance"`

	// Bind workers to CPUs
	Pin bool `json:"pin,omitempty"`
	// Flush caches before every call, sequential baseline included
	ColdCache bool `json:"cold_cache,omitempty"`
	// Collect hardware counters over one extra untimed parallel call
	Counters bool `json:"counters,omitempty"`
}

// Strategy returns the reduction and sync mode of the configuration
func (c RunConfig) Strategy() Strategy {
	return Strategy{Reduction: c.Reduction, Sync: c.Sync}
}

// Validate rejects degenerate and inconsistent configurations before any
// timing happens.
func (c RunConfig) Validate() error {
	if c.Threads <= 0 {
		return ErrZeroThreads
	}
	if c.Trials <= 0 {
		return NewDegenerateInputError("RunConfig", fmt.Sprintf("trial count must be positive, got %d", c.Trials))
	}
	if c.Warmup < 0 {
		return NewInvalidArgError("RunConfig", fmt.Sprintf("negative warmup count %d", c.Warmup))
	}
	if c.Tolerance.Abs < 0 || c.Tolerance.Rel < 0 {
		return NewInvalidArgError("RunConfig", fmt.Sprintf("negative tolerance %+v", c.Tolerance))
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	return c.Strategy().Validate()
}

// Report is everything measured for one configuration
type Report struct {
	Kernel    string            `json:"kernel"`
	Config    RunConfig         `json:"config"`
	Baseline  TrialResult       `json:"baseline"`
	Best      TrialResult       `json:"best"`
	Trials    []float64         `json:"trials"`
	Counts    Counts            `json:"counts"`
	Metrics   Metrics           `json:"metrics"`
	Verify    Outcome           `json:"verify"`
	// Counts of the untimed counting call, nil unless Counters was set and
	// the host allows perf events
	Counters  *HardwareCounters `json:"counters,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Err returns a tolerance error when the parallel result disagreed with the
// sequential one, nil otherwise. The timing data is valid either way.
func (r *Report) Err() error {
	if r.Verify.Pass {
		return nil
	}
	return r.Verify.Err(r.Kernel)
}

// Observer receives results as a harness produces them. Implementations
// must be safe for concurrent use when harnesses share one.
type Observer interface {
	ObserveTrial(kernel string, cfg RunConfig, trial TrialResult)
	ObserveReport(r *Report)
	ObserveError(kernel string, err error)
}

// Option configures a Harness
type Option func(*Harness)

// WithLogger sets the structured logger; the default is slog.Default
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithClock replaces the monotonic clock, for deterministic tests
func WithClock(c Clock) Option {
	return func(h *Harness) { h.clock = c }
}

// WithObserver forwards trials, reports and errors to o
func WithObserver(o Observer) Option {
	return func(h *Harness) { h.observer = o }
}

type baselineKey struct {
	warmup, trials int
	cold           bool
}

// Harness owns the buffers of one KernelSpec and runs parallel
// configurations against its sequential baseline. Methods are serialized;
// a harness measures one thing at a time.
type Harness struct {
	mu       sync.Mutex
	spec     KernelSpec
	label    string
	work     *workload
	logger   *slog.Logger
	clock    Clock
	observer Observer
	flusher  *CacheFlusher

	baseline    *TrialResult
	baselineKey baselineKey

	closed bool
}

// NewHarness validates spec and allocates its buffers
func NewHarness(spec KernelSpec, opts ...Option) (*Harness, error) {
	work, err := newWorkload(spec)
	if err != nil {
		return nil, err
	}
	h := &Harness{
		spec:   spec,
		label:  spec.Label(),
		work:   work,
		logger: slog.Default(),
		clock:  SystemClock,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("kernel", h.label)
	return h, nil
}

// Spec returns the kernel spec the harness was built for
func (h *Harness) Spec() KernelSpec {
	return h.spec
}

// Counts returns the static work model of the kernel
func (h *Harness) Counts() Counts {
	return h.work.counts
}

// Close releases the buffers. Further calls fail with ErrHarnessClosed.
func (h *Harness) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.work.release()
	h.flusher = nil
	h.baseline = nil
	return nil
}

// prepare returns the untimed step run before every call
func (h *Harness) prepare(cold bool) (func() error, error) {
	if cold && h.flusher == nil {
		f, err := NewCacheFlusher(0)
		if err != nil {
			return nil, err
		}
		h.flusher = f
	}
	reset := h.work.reset
	flusher := h.flusher
	return func() error {
		if reset != nil {
			reset()
		}
		if cold {
			flusher.Flush()
		}
		return nil
	}, nil
}

// Baseline measures the sequential kernel with the given protocol. The
// result is cached until the protocol changes, and its output is the
// reference every parallel result is verified against.
func (h *Harness) Baseline(warmup, trials int, cold bool) (TrialResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return TrialResult{}, ErrHarnessClosed
	}
	return h.baselineLocked(warmup, trials, cold)
}

func (h *Harness) baselineLocked(warmup, trials int, cold bool) (TrialResult, error) {
	key := baselineKey{warmup: warmup, trials: trials, cold: cold}
	if h.baseline != nil && h.baselineKey == key {
		return *h.baseline, nil
	}

	prepare, err := h.prepare(cold)
	if err != nil {
		return TrialResult{}, err
	}
	timer := &Timer{Warmup: warmup, Trials: trials, Clock: h.clock, Prepare: prepare}
	m, err := timer.Measure(h.work.sequential)
	if err != nil {
		return TrialResult{}, err
	}
	h.baseline = &m.Best
	h.baselineKey = key
	h.logger.Debug("sequential baseline",
		"elapsed_seconds", m.Best.Elapsed,
		"warmup", warmup,
		"trials", trials,
		"cold_cache", cold)
	return m.Best, nil
}

// Run measures one parallel configuration: the chunk assignment is audited
// for coverage, the parallel kernel is timed, and its best result is checked
// against the sequential reference. A tolerance failure is recorded on the
// report and does not make Run fail.
func (h *Harness) Run(cfg RunConfig) (*Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHarnessClosed
	}
	r, err := h.run(cfg)
	if err != nil && h.observer != nil {
		h.observer.ObserveError(h.label, err)
	}
	return r, err
}

func (h *Harness) run(cfg RunConfig) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := h.logger.With(
		"threads", cfg.Threads,
		"policy", cfg.Policy.String(),
		"strategy", cfg.Strategy().String())

	base, err := h.baselineLocked(cfg.Warmup, cfg.Trials, cfg.ColdCache)
	if err != nil {
		return nil, err
	}

	var teamOpts []TeamOption
	if cfg.Pin {
		teamOpts = append(teamOpts, WithPinning())
	}
	team, err := NewTeam(cfg.Threads, teamOpts...)
	if err != nil {
		return nil, err
	}

	chunks, err := team.Audit(h.work.space, cfg.Policy)
	if err != nil {
		logger.Error("chunk assignment does not cover the iteration space", "err", err)
		return nil, err
	}
	logger.Debug("coverage audit passed", "chunks", len(chunks), "space", h.work.space)

	prepare, err := h.prepare(cfg.ColdCache)
	if err != nil {
		return nil, err
	}
	timer := &Timer{Warmup: cfg.Warmup, Trials: cfg.Trials, Clock: h.clock, Prepare: prepare}
	if h.observer != nil {
		timer.Observe = func(t TrialResult) { h.observer.ObserveTrial(h.label, cfg, t) }
	}
	strategy := cfg.Strategy()
	m, err := timer.Measure(func() (Output, error) {
		return h.work.parallel(team, cfg.Policy, strategy)
	})
	if err != nil {
		logger.Error("parallel run aborted", "err", err)
		return nil, err
	}

	report := &Report{
		Kernel:    h.label,
		Config:    cfg,
		Baseline:  base,
		Best:      m.Best,
		Trials:    m.Trials,
		Counts:    h.work.counts,
		Metrics:   ComputeMetrics(h.work.counts, base.Elapsed, m.Best.Elapsed, cfg.Threads),
		Verify:    Verify(m.Best.Output, base.Output, cfg.Tolerance),
		Timestamp: time.Now(),
	}
	if cfg.Counters {
		counters, cerr := h.countCall(cfg, teamOpts, prepare)
		if cerr != nil {
			logger.Warn("hardware counters unavailable", "err", cerr)
		} else {
			report.Counters = &counters
		}
	}

	if !report.Verify.Pass {
		logger.Warn("parallel result outside tolerance",
			"max_diff", report.Verify.MaxDiff,
			"mismatches", report.Verify.Mismatches,
			"first_mismatch", report.Verify.FirstMismatch)
	}
	logger.Debug("configuration measured",
		"elapsed_seconds", m.Best.Elapsed,
		"speedup", report.Metrics.Speedup,
		"efficiency", report.Metrics.Efficiency,
		"verify", report.Verify.Pass)

	if h.observer != nil {
		h.observer.ObserveReport(report)
	}
	return report, nil
}

// countCall runs the parallel kernel once more on a team that opens
// hardware counters in every worker. Opening, enabling and reading the
// counters costs several syscalls per worker, so this call is kept apart
// from the timed trials.
func (h *Harness) countCall(cfg RunConfig, teamOpts []TeamOption, prepare func() error) (HardwareCounters, error) {
	agg := NewCounterAggregate()
	team, err := NewTeam(cfg.Threads, append(slices.Clone(teamOpts), WithHardwareCounters(agg))...)
	if err != nil {
		return HardwareCounters{}, err
	}
	if err := prepare(); err != nil {
		return HardwareCounters{}, err
	}
	if _, err := h.work.parallel(team, cfg.Policy, cfg.Strategy()); err != nil {
		return HardwareCounters{}, err
	}
	return agg.Snapshot()
}

// SweepConfig spans the configurations of Harness.Sweep: every thread count
// with every schedule and every chunk size. Base supplies the remaining
// fields of each RunConfig.
type SweepConfig struct {
	Threads   []int
	Schedules []Schedule
	Chunks    []int
	Base      RunConfig
}

// Configs expands the sweep in thread-major order. An empty Schedules or
// Chunks list means the schedule of Base and the default chunk.
func (sc SweepConfig) Configs() []RunConfig {
	schedules := sc.Schedules
	if len(schedules) == 0 {
		schedules = []Schedule{sc.Base.Policy.Schedule}
	}
	chunks := sc.Chunks
	if len(chunks) == 0 {
		chunks = []int{0}
	}
	threads := sc.Threads
	if len(threads) == 0 {
		threads = []int{sc.Base.Threads}
	}

	configs := make([]RunConfig, 0, len(threads)*len(schedules)*len(chunks))
	for _, p := range threads {
		for _, s := range schedules {
			for _, c := range chunks {
				cfg := sc.Base
				cfg.Threads = p
				cfg.Policy = Policy{Schedule: s, Chunk: c}
				configs = append(configs, cfg)
			}
		}
	}
	return configs
}

// Sweep runs every configuration of sc in order, passing each report to
// emit as soon as it is ready. emit may be nil. Cancelling ctx stops the
// sweep between configurations; a running configuration always completes.
// A fatal error stops the sweep and is returned with the reports so far.
func (h *Harness) Sweep(ctx context.Context, sc SweepConfig, emit func(*Report) error) ([]*Report, error) {
	configs := sc.Configs()
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	reports := make([]*Report, 0, len(configs))
	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			h.logger.Info("sweep interrupted", "completed", i, "total", len(configs))
			return reports, err
		}
		r, err := h.Run(cfg)
		if err != nil {
			return reports, fmt.Errorf("sweep configuration %d of %d: %w", i+1, len(configs), err)
		}
		reports = append(reports, r)
		if emit != nil {
			if err := emit(r); err != nil {
				return reports, err
			}
		}
	}
	return reports, nil
}

// RunBenchmark builds a harness for spec, runs one configuration and
// releases the buffers.
func RunBenchmark(spec KernelSpec, cfg RunConfig, opts ...Option) (*Report, error) {
	h, err := NewHarness(spec, opts...)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.Run(cfg)
}
