package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/LynnColeArt/parbench"
	"github.com/spf13/cobra"
)

// sequentialRow is one line of an unroll or tiling table
type sequentialRow struct {
	label   string
	elapsed float64
	counts  parbench.Counts
	output  parbench.Output
	verify  parbench.Outcome
}

func newUnrollCommand() *cobra.Command {
	var (
		elem     string
		n        int
		protocol protocolFlags
	)

	cmd := &cobra.Command{
		Use:   "unroll",
		Short: "Time the sequential sum at every unroll factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := parseElem(elem)
			if err != nil {
				return err
			}
			rows := make([]sequentialRow, 0, len(parbench.UnrollFactors))
			for _, u := range parbench.UnrollFactors {
				spec := parbench.KernelSpec{Kind: parbench.KernelSum, Elem: e, N: n, Unroll: u}
				row, err := measureSequential(spec, fmt.Sprintf("unroll=%d", u), protocol)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			verifySequential(rows, protocol.tolerance())
			return writeSequentialTable(cmd.OutOrStdout(), "sum/"+e.String(), rows)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&elem, "elem", "float64", "element type: float64, float32 or int32")
	fs.IntVarP(&n, "size", "n", 10_000_000, "number of elements")
	protocol.register(fs)
	return cmd
}

func newTilesCommand() *cobra.Command {
	var (
		n         int
		recursive bool
		protocol  protocolFlags
	)

	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Time the sequential matrix multiply at every tile size",
		Long: `Tiles times the naive and interchanged matrix multiplies once, then the
blocked multiply (or the recursive one with --recursive) at every tile size.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]sequentialRow, 0, len(parbench.TileSizes)+2)
			for _, v := range []parbench.MatMulVariant{parbench.MatMulNaive, parbench.MatMulInterchanged} {
				spec := parbench.KernelSpec{Kind: parbench.KernelMatMul, Variant: v, N: n}
				row, err := measureSequential(spec, v.String(), protocol)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}

			variant := parbench.MatMulBlocked
			if recursive {
				variant = parbench.MatMulRecursive
			}
			for _, tile := range parbench.TileSizes {
				spec := parbench.KernelSpec{Kind: parbench.KernelMatMul, Variant: variant, N: n, Tile: tile}
				row, err := measureSequential(spec, fmt.Sprintf("%s tile=%d", variant, tile), protocol)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
			verifySequential(rows, protocol.tolerance())
			return writeSequentialTable(cmd.OutOrStdout(), fmt.Sprintf("matmul n=%d", n), rows)
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&n, "size", "n", 512, "matrix edge")
	fs.BoolVar(&recursive, "recursive", false, "sweep the recursive base size instead of the blocked tile")
	protocol.register(fs)
	return cmd
}

func measureSequential(spec parbench.KernelSpec, label string, protocol protocolFlags) (sequentialRow, error) {
	h, err := parbench.NewHarness(spec, parbench.WithLogger(slog.Default()))
	if err != nil {
		return sequentialRow{}, err
	}
	defer h.Close()

	best, err := h.Baseline(protocol.warmup, protocol.trials, protocol.cold)
	if err != nil {
		return sequentialRow{}, err
	}
	slog.Debug("sequential variant measured", "variant", label, "elapsed_seconds", best.Elapsed)
	return sequentialRow{label: label, elapsed: best.Elapsed, counts: h.Counts(), output: best.Output}, nil
}

// verifySequential checks every row's output against the first row's.
// Disagreement is reported in the table, not returned as an error.
func verifySequential(rows []sequentialRow, tol parbench.Tolerance) {
	if len(rows) == 0 {
		return
	}
	ref := rows[0].output
	for i := range rows {
		rows[i].verify = parbench.Verify(rows[i].output, ref, tol)
		if !rows[i].verify.Pass {
			slog.Warn("variant disagrees with the reference",
				"variant", rows[i].label, "reference", rows[0].label, "max_diff", rows[i].verify.MaxDiff)
		}
	}
}

func writeSequentialTable(w io.Writer, title string, rows []sequentialRow) error {
	fmt.Fprintf(w, "%s\n\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "variant\tseconds\tGB/s\tMFLOP/s\trelative\tverify\tmax diff\t")
	if len(rows) == 0 {
		return tw.Flush()
	}
	ref := rows[0].elapsed
	for _, r := range rows {
		status := "pass"
		if !r.verify.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%.6f\t%.2f\t%.1f\t%.2fx\t%s\t%.3g\t\n",
			r.label,
			r.elapsed,
			parbench.Bandwidth(r.counts.Bytes, r.elapsed),
			parbench.MFLOPS(r.counts.Flops, r.elapsed),
			parbench.Speedup(ref, r.elapsed),
			status,
			r.verify.MaxDiff)
	}
	return tw.Flush()
}
