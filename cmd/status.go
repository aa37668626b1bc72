package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hacost/leads/internal/model"
	"github.com/hacost/leads/internal/store"
)

var statusRunLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		total, pending, err := st.CountLeads(ctx)
		if err != nil {
			return err
		}
		runs, err := st.ListRuns(ctx, statusRunLimit)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "leads: %d total, %d without phone\n\n", total, pending)
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs, start one with 'leads crawl'")
			return nil
		}
		formatRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRunLimit, "limit", 10, "max number of runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatRuns writes a tabular view of run summaries to w, newest first.
func formatRuns(out io.Writer, runs []model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tDURATION\tFRESH\tCACHED\tDUP\tMICRO\tCORP\tPENDING\tNEW\tFAILED")
	_, _ = fmt.Fprintln(w, "-------\t--------\t-----\t------\t---\t-----\t----\t-------\t---\t------")

	for _, r := range runs {
		dur := r.FinishedAt.Sub(r.StartedAt).Round(time.Second)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), dur,
			r.Fresh, r.Cached, r.Duplicates, r.Micro, r.Corporate,
			r.Pending, r.NewRows, r.FailedPairs)
	}
	_ = w.Flush()
}
