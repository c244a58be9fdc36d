package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newReportCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report SYMBOL",
		Short: "Print the composite seven-view report for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(args[0])
			st, err := buildStack(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprint(out, st.agg.GetReport(cmd.Context(), symbol))
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st.agg.GetAnalyses(cmd.Context(), symbol))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured analyses instead of markdown")
	return cmd
}
