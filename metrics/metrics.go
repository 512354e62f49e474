// Package metrics registers the Prometheus collectors for parbench runs.
// Attach a Recorder to a harness with parbench.WithObserver and serve the
// default registry with promhttp.Handler to scrape results while a sweep
// is in progress.
package metrics

import (
	"errors"
	"strconv"

	"github.com/LynnColeArt/parbench"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var configLabels = []string{"kernel", "threads", "policy", "strategy"}

var (
	// TrialDuration is a histogram of every measured trial. Buckets span
	// 1µs to ~134s, from a cached sum to a naive matmul on large N.
	TrialDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parbench_trial_duration_seconds",
			Help:    "Wall-clock duration of measured trials per configuration.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 2, 28),
		},
		configLabels,
	)

	// BestDuration is the retained minimum trial time of the last run of
	// each configuration.
	BestDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parbench_best_duration_seconds",
			Help: "Fastest trial of the last run per configuration.",
		},
		configLabels,
	)

	Speedup = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parbench_speedup",
			Help: "Sequential best time over parallel best time.",
		},
		configLabels,
	)

	Efficiency = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parbench_efficiency",
			Help: "Speedup divided by thread count.",
		},
		configLabels,
	)

	Bandwidth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parbench_bandwidth_gigabytes_per_second",
			Help: "Modelled bytes moved per second of the best trial.",
		},
		configLabels,
	)

	MFLOPS = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parbench_mflops",
			Help: "Millions of floating-point operations per second of the best trial.",
		},
		configLabels,
	)

	// ToleranceFailures counts runs whose parallel result disagreed with the
	// sequential reference. Expected for the unsync strategy.
	ToleranceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parbench_tolerance_failures_total",
			Help: "Runs whose result fell outside tolerance, by configuration.",
		},
		configLabels,
	)

	// RunErrors counts runs aborted by a fatal error, labelled by error type
	// (AllocationFailure, PartitionCoverageViolation, DegenerateInput, ...).
	RunErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parbench_run_errors_total",
			Help: "Runs aborted by an error, by kernel and error type.",
		},
		[]string{"kernel", "type"},
	)
)

// Recorder implements parbench.Observer on the collectors above
type Recorder struct{}

var _ parbench.Observer = Recorder{}

func labels(kernel string, cfg parbench.RunConfig) prometheus.Labels {
	return prometheus.Labels{
		"kernel":   kernel,
		"threads":  strconv.Itoa(cfg.Threads),
		"policy":   cfg.Policy.String(),
		"strategy": cfg.Strategy().String(),
	}
}

// ObserveTrial records one measured trial
func (Recorder) ObserveTrial(kernel string, cfg parbench.RunConfig, trial parbench.TrialResult) {
	TrialDuration.With(labels(kernel, cfg)).Observe(trial.Elapsed)
}

// ObserveReport publishes the derived metrics of a finished run
func (Recorder) ObserveReport(r *parbench.Report) {
	l := labels(r.Kernel, r.Config)
	BestDuration.With(l).Set(r.Best.Elapsed)
	Speedup.With(l).Set(r.Metrics.Speedup)
	Efficiency.With(l).Set(r.Metrics.Efficiency)
	Bandwidth.With(l).Set(r.Metrics.BandwidthGBs)
	MFLOPS.With(l).Set(r.Metrics.MFLOPS)
	if !r.Verify.Pass {
		ToleranceFailures.With(l).Inc()
	}
}

// ObserveError counts an aborted run
func (Recorder) ObserveError(kernel string, err error) {
	typ := "Unknown"
	var be *parbench.BenchError
	if errors.As(err, &be) {
		typ = be.Type.String()
	}
	RunErrors.WithLabelValues(kernel, typ).Inc()
}
