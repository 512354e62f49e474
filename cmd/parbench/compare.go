package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/LynnColeArt/parbench"
	"github.com/spf13/cobra"
)

func newCompareCommand() *cobra.Command {
	var (
		logDir  string
		regress float64
	)

	cmd := &cobra.Command{
		Use:   "compare <baseline.json> [current.json]",
		Short: "Compare two recorded sessions",
		Long: `Compare matches configurations by name and flags performance regressions
and tolerance failures. Without a current session the newest file in
--log-dir is used.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			currentPath := ""
			if len(args) == 2 {
				currentPath = args[1]
			} else {
				latest, err := parbench.LatestSession(logDir)
				if err != nil {
					return err
				}
				currentPath = latest
			}

			baseline, err := parbench.LoadSession(args[0])
			if err != nil {
				return err
			}
			current, err := parbench.LoadSession(currentPath)
			if err != nil {
				return err
			}
			slog.Debug("comparing sessions", "baseline", args[0], "current", currentPath)

			comps := parbench.CompareSessions(baseline, current, regress)
			failed := writeComparison(cmd.OutOrStdout(), args[0], currentPath, comps)
			if failed > 0 {
				return fmt.Errorf("%d configurations failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logDir, "log-dir", "benchmark_logs", "directory searched for the current session")
	cmd.Flags().Float64Var(&regress, "threshold", 1.05, "time ratio beyond which a change is reported")
	return cmd
}

func writeComparison(w io.Writer, baselinePath, currentPath string, comps []parbench.Comparison) int {
	fmt.Fprintln(w, "Benchmark Comparison")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Baseline: %s\n", baselinePath)
	fmt.Fprintf(w, "Current:  %s\n\n", currentPath)

	counts := map[string]int{}
	for _, c := range comps {
		counts[c.Status]++
		fmt.Fprintf(w, "%-8s %-44s", c.Status, c.Name)
		if c.CurrentSeconds > 0 {
			fmt.Fprintf(w, " %10.6fs -> %10.6fs", c.BaselineSeconds, c.CurrentSeconds)
		}
		if c.Message != "" {
			fmt.Fprintf(w, "  %s", c.Message)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Total: %d | Pass: %d | Faster: %d | Slower: %d | Fail: %d | Missing: %d\n",
		len(comps),
		counts[parbench.ComparePass],
		counts[parbench.CompareFaster],
		counts[parbench.CompareSlower],
		counts[parbench.CompareFail],
		counts[parbench.CompareMissing])
	return counts[parbench.CompareFail]
}
