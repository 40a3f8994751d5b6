package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vulnclassifier/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past training runs",
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded training runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "history list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- history show --

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the comparison table of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openHistory(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}

		formatRun(os.Stdout, run)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "max number of runs to display")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(ctx context.Context) (*store.SQLiteStore, error) {
	if cfg.History.Path == "" {
		return nil, eris.New("history is disabled (history.path is empty)")
	}
	if _, err := os.Stat(cfg.History.Path); err != nil {
		return nil, eris.Wrapf(err, "history: %s", cfg.History.Path)
	}

	st, err := store.NewSQLite(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTARTED\tDATASET\tSAMPLES\tBEST\tACCURACY\tFASTEST\tSECONDS")
	_, _ = fmt.Fprintln(w, "--\t-------\t-------\t-------\t----\t--------\t-------\t-------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Dataset,
			r.Samples,
			r.Best,
			fixed(r.BestAccuracy, 4),
			r.Fastest,
			fixed(r.FastestSeconds, 2),
		)
	}
	_ = w.Flush()
}

// formatRun writes one run and its ranked model rows to w.
func formatRun(out io.Writer, run *store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	_, _ = fmt.Fprintf(w, "Started:\t%s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", run.FinishedAt.Sub(run.StartedAt).Round(100*time.Millisecond))
	_, _ = fmt.Fprintf(w, "Dataset:\t%s (%d samples, %d features)\n", run.Dataset, run.Samples, run.Features)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "RANK\tMODEL\tACCURACY\tPRECISION\tRECALL\tF1\tSECONDS\tARTIFACT")
	for _, m := range run.Models {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Rank, m.Name,
			fixed(m.Accuracy, 4), fixed(m.Precision, 4), fixed(m.Recall, 4), fixed(m.F1, 4),
			fixed(m.TrainingSeconds, 2), m.Artifact,
		)
	}
	_ = w.Flush()
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
