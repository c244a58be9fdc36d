package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trading-analyticsv1/internal/views"
)

func newViewCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "view VIEW SYMBOL",
		Short: "Print a single view's section or analysis",
		Long:  "Views: " + strings.Join(views.Names(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, symbol := strings.ToLower(args[0]), strings.ToUpper(args[1])
			st, err := buildStack(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if !asJSON {
				section, err := st.views.Report(ctx, name, symbol)
				if err != nil {
					return err
				}
				fmt.Fprint(out, section)
				return nil
			}
			a, err := st.views.Analysis(ctx, name, symbol)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(a)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}
