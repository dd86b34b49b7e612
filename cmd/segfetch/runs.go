package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent fetch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			appCtx, cleanup, err := bootstrap(cfg)
			if err != nil {
				cmd.PrintErrf("Startup error: %v\n", err)
				return err
			}
			defer cleanup()

			runs, err := appCtx.History.ListRuns(cmd.Context(), limit)
			if err != nil {
				appCtx.Logger.Error("List runs: %v", err)
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tRANGE\tFETCHED\tSKIPPED\tFAILED\tSTARTED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t[%d:%d)\t%d\t%d\t%d\t%s\n",
					r.ID, r.Status, r.Start, r.Stop, r.Fetched, r.Skipped, len(r.FailedIndices),
					r.StartedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
