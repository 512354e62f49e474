package metrics

import (
	"testing"

	"github.com/LynnColeArt/parbench"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderPublishesReport(t *testing.T) {
	cfg := parbench.QuickRunConfig(2, parbench.Dynamic(16), parbench.LocalMerge, parbench.Barrier)
	r := &parbench.Report{
		Kernel: "metrics-test-report",
		Config: cfg,
		Best:   parbench.TrialResult{Elapsed: 0.5},
		Metrics: parbench.Metrics{
			Speedup:      1.8,
			Efficiency:   0.9,
			BandwidthGBs: 12,
			MFLOPS:       3000,
		},
		Verify: parbench.Outcome{Pass: false, MaxDiff: 1},
	}

	Recorder{}.ObserveReport(r)

	l := labels(r.Kernel, cfg)
	assert.Equal(t, 0.5, testutil.ToFloat64(BestDuration.With(l)))
	assert.Equal(t, 1.8, testutil.ToFloat64(Speedup.With(l)))
	assert.Equal(t, 0.9, testutil.ToFloat64(Efficiency.With(l)))
	assert.Equal(t, 12.0, testutil.ToFloat64(Bandwidth.With(l)))
	assert.Equal(t, 3000.0, testutil.ToFloat64(MFLOPS.With(l)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ToleranceFailures.With(l)))
}

func TestRecorderCountsErrorsByType(t *testing.T) {
	const kernel = "metrics-test-errors"
	rec := Recorder{}
	rec.ObserveError(kernel, parbench.ErrZeroThreads)
	rec.ObserveError(kernel, parbench.NewCoverageError("For", "gap [0,1)", nil))
	rec.ObserveError(kernel, parbench.NewCoverageError("For", "gap [3,4)", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(RunErrors.WithLabelValues(kernel, "DegenerateInput")))
	assert.Equal(t, 2.0, testutil.ToFloat64(RunErrors.WithLabelValues(kernel, "PartitionCoverageViolation")))
}

func TestRecorderAsHarnessObserver(t *testing.T) {
	const kernel = "metrics-test-harness"
	h, err := parbench.NewHarness(
		parbench.KernelSpec{Name: kernel, Kind: parbench.KernelSum, N: 4096},
		parbench.WithObserver(Recorder{}),
	)
	require.NoError(t, err)
	defer h.Close()

	cfg := parbench.QuickRunConfig(4, parbench.Static(0), parbench.SharedReduction, parbench.Barrier)
	_, err = h.Run(cfg)
	require.NoError(t, err)

	l := labels(kernel, cfg)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(TrialDuration, "parbench_trial_duration_seconds"), 1)
	assert.Greater(t, testutil.ToFloat64(BestDuration.With(l)), 0.0)
	assert.Greater(t, testutil.ToFloat64(Speedup.With(l)), 0.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(ToleranceFailures.With(l)))
}
