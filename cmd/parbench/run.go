package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/LynnColeArt/parbench"
	"github.com/LynnColeArt/parbench/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// kernelFlags describe the problem shared by every measuring command
type kernelFlags struct {
	kind    string
	variant string
	elem    string
	n, m    int
	unroll  int
	tile    int

	fs *pflag.FlagSet
}

func (k *kernelFlags) register(fs *pflag.FlagSet, defaultKind string, defaultN int) {
	k.fs = fs
	fs.StringVar(&k.kind, "kernel", defaultKind, "kernel: sum, max, pi, stddev, tasks, dmvm or matmul")
	fs.StringVar(&k.variant, "variant", "naive", "matmul variant: naive, interchanged, blocked or recursive")
	fs.StringVar(&k.elem, "elem", "float64", "sum element type: float64, float32 or int32")
	fs.IntVarP(&k.n, "size", "n", defaultN, "problem size (elements, steps, tasks, dmvm columns or matmul inner dimension)")
	fs.IntVarP(&k.m, "rows", "m", 600, "dmvm rows; for matmul, rows of A and C (defaults to --size)")
	fs.IntVar(&k.unroll, "unroll", 0, "sum unroll factor (1, 2, 4, 8, 16 or 32)")
	fs.IntVar(&k.tile, "tile", 0, "blocked matmul tile edge, or recursive base size")
}

func (k *kernelFlags) spec() (parbench.KernelSpec, error) {
	kind, err := parbench.ParseKernelKind(k.kind)
	if err != nil {
		return parbench.KernelSpec{}, err
	}
	variant, err := parbench.ParseMatMulVariant(k.variant)
	if err != nil {
		return parbench.KernelSpec{}, err
	}
	elem, err := parseElem(k.elem)
	if err != nil {
		return parbench.KernelSpec{}, err
	}
	spec := parbench.KernelSpec{
		Kind:   kind,
		Elem:   elem,
		N:      k.n,
		Unroll: k.unroll,
		Tile:   k.tile,
	}
	switch kind {
	case parbench.KernelMatMul:
		spec.Variant = variant
		if k.fs != nil && k.fs.Changed("rows") {
			spec.M = k.m
		}
	case parbench.KernelDMVM:
		spec.M = k.m
	}
	return spec, spec.Validate()
}

func parseElem(s string) (parbench.ElemType, error) {
	for _, e := range []parbench.ElemType{parbench.Float64, parbench.Float32, parbench.Int32} {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// protocolFlags describe the timing protocol and tolerance
type protocolFlags struct {
	warmup int
	trials int
	tolAbs float64
	tolRel float64
	cold   bool
}

func (p *protocolFlags) register(fs *pflag.FlagSet) {
	def := parbench.DefaultRunConfig()
	fs.IntVar(&p.warmup, "warmup", def.Warmup, "untimed warmup calls ($"+parbench.EnvWarmup+")")
	fs.IntVar(&p.trials, "trials", def.Trials, "timed trials; the fastest is kept ($"+parbench.EnvTrials+")")
	fs.Float64Var(&p.tolAbs, "tol-abs", def.Tolerance.Abs, "absolute tolerance ($"+parbench.EnvTolAbs+")")
	fs.Float64Var(&p.tolRel, "tol-rel", def.Tolerance.Rel, "relative tolerance ($"+parbench.EnvTolRel+")")
	fs.BoolVar(&p.cold, "cold", false, "flush caches before every call")
}

func (p *protocolFlags) tolerance() parbench.Tolerance {
	return parbench.Tolerance{Abs: p.tolAbs, Rel: p.tolRel}
}

type runFlags struct {
	kernel    kernelFlags
	protocol  protocolFlags
	threads   []int
	schedules []string
	chunks    []int
	reduction string
	sync      string
	pin       bool
	counters  bool
	csvPath   string
	logDir    string
	session   string
	strict    bool
}

func newRunCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sweep thread counts, schedules and chunk sizes for one kernel",
		Long: `Run measures the sequential kernel once, then every combination of
--threads, --schedule and --chunk, and writes one CSV row per configuration.

The matrix-vector barrier study of the original exercises maps to:
  implicit barrier     --reduction unsync --sync barrier --schedule static
  dynamic + nowait     --reduction local  --sync nowait  --schedule dynamic --chunk 64
  static + nowait      --reduction local  --sync nowait  --schedule static`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	fs := cmd.Flags()
	f.kernel.register(fs, "sum", 10_000_000)
	f.protocol.register(fs)
	fs.IntSliceVarP(&f.threads, "threads", "p", []int{1, 2, 4, 8}, "thread counts to sweep")
	fs.StringSliceVar(&f.schedules, "schedule", []string{"static"}, "schedules to sweep: static, dynamic, guided")
	fs.IntSliceVar(&f.chunks, "chunk", []int{0}, "chunk sizes to sweep; 0 is the schedule default")
	fs.StringVar(&f.reduction, "reduction", "local", "reduction strategy: shared, local or unsync")
	fs.StringVar(&f.sync, "sync", "barrier", "merge synchronization: barrier or nowait")
	fs.BoolVar(&f.pin, "pin", false, "pin workers to CPUs")
	fs.BoolVar(&f.counters, "counters", false, "collect hardware counters (Linux perf events)")
	fs.StringVarP(&f.csvPath, "output", "o", "-", "CSV output file, - for stdout")
	fs.StringVar(&f.logDir, "log-dir", "", "also record a JSON session in this directory")
	fs.StringVar(&f.session, "session", "parbench", "session name for --log-dir")
	fs.BoolVar(&f.strict, "strict", false, "exit non-zero if any result is outside tolerance")
	return cmd
}

func runSweep(ctx context.Context, stdout io.Writer, f runFlags) error {
	spec, err := f.kernel.spec()
	if err != nil {
		return err
	}
	reduction, err := parbench.ParseReduction(f.reduction)
	if err != nil {
		return err
	}
	syncMode, err := parbench.ParseSync(f.sync)
	if err != nil {
		return err
	}
	schedules := make([]parbench.Schedule, 0, len(f.schedules))
	for _, s := range f.schedules {
		sched, err := parbench.ParseSchedule(s)
		if err != nil {
			return err
		}
		schedules = append(schedules, sched)
	}

	sc := parbench.SweepConfig{
		Threads:   f.threads,
		Schedules: schedules,
		Chunks:    f.chunks,
		Base: parbench.RunConfig{
			Reduction: reduction,
			Sync:      syncMode,
			Warmup:    f.protocol.warmup,
			Trials:    f.protocol.trials,
			Tolerance: f.protocol.tolerance(),
			Pin:       f.pin,
			ColdCache: f.protocol.cold,
			Counters:  f.counters,
		},
	}

	out := stdout
	if f.csvPath != "-" {
		file, err := os.Create(f.csvPath)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}
	csvOut := parbench.NewCSVWriter(out)

	var session *parbench.SessionLogger
	if f.logDir != "" {
		if session, err = parbench.NewSessionLogger(f.logDir, f.session); err != nil {
			return err
		}
		slog.Info("recording session", "path", session.Path())
	}

	h, err := parbench.NewHarness(spec, parbench.WithLogger(slog.Default()), parbench.WithObserver(metrics.Recorder{}))
	if err != nil {
		return err
	}
	defer h.Close()

	slog.Info("starting sweep",
		"kernel", spec.Label(),
		"configurations", len(sc.Configs()),
		"warmup", sc.Base.Warmup,
		"trials", sc.Base.Trials)

	failures := 0
	reports, err := h.Sweep(ctx, sc, func(r *parbench.Report) error {
		if !r.Verify.Pass {
			failures++
		}
		if r.Counters != nil {
			slog.Debug("hardware counters", "config", r.Key(), "ipc", r.Counters.IPC(), "llc_misses", r.Counters.LLCMisses)
		}
		if session != nil {
			if err := session.LogReport(r); err != nil {
				return err
			}
		}
		return csvOut.Write(r)
	})
	if err != nil {
		if session != nil && !errors.Is(err, context.Canceled) {
			_ = session.LogError(spec.Label(), err)
		}
		if errors.Is(err, context.Canceled) {
			slog.Warn("sweep interrupted", "completed", len(reports))
			return nil
		}
		return err
	}

	slog.Info("sweep complete", "configurations", len(reports), "tolerance_failures", failures)
	if f.strict && failures > 0 {
		return fmt.Errorf("%d of %d configurations outside tolerance", failures, len(reports))
	}
	return nil
}
