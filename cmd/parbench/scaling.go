package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/LynnColeArt/parbench"
	"github.com/spf13/cobra"
)

func newScalingCommand() *cobra.Command {
	var (
		fractions []float64
		procs     []int
	)

	cmd := &cobra.Command{
		Use:   "scaling",
		Short: "Print Amdahl and Gustafson speedup bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, fs := range fractions {
				if fs < 0 || fs > 1 {
					return parbench.NewInvalidArgError("scaling", fmt.Sprintf("serial fraction %g outside [0, 1]", fs))
				}
			}
			for _, p := range procs {
				if p <= 0 {
					return parbench.ErrZeroThreads
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "fs\tp\tamdahl\tgustafson\tamdahl eff\t")
			for _, fs := range fractions {
				for _, p := range procs {
					a := parbench.AmdahlSpeedup(fs, p)
					fmt.Fprintf(tw, "%.3f\t%d\t%.3f\t%.3f\t%.3f\t\n",
						fs, p, a, parbench.GustafsonSpeedup(fs, p), parbench.Efficiency(a, p))
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Float64SliceVar(&fractions, "fs", []float64{0.01, 0.05, 0.1, 0.25}, "serial fractions")
	cmd.Flags().IntSliceVarP(&procs, "procs", "p", []int{1, 2, 4, 8, 16, 32, 64}, "processor counts")
	return cmd
}
