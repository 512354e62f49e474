package main

import (
	"encoding/json"
	"fmt"

	"github.com/LynnColeArt/parbench"
	"github.com/spf13/cobra"
)

func newCPUCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "cpu",
		Short: "Describe the host the benchmarks run on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := parbench.DetectHost()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(host)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), host.String())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version, sum := parbench.Version()
			if version == "" {
				version = "(devel)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "parbench %s", version)
			if sum != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " %s", sum)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		},
	}
}
