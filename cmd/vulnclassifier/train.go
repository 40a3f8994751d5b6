package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vulnclassifier/internal/experiment"
	"vulnclassifier/internal/store"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and compare every model on the labeled dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if data, _ := cmd.Flags().GetString("data"); data != "" {
			cfg.Data.Path = data
		}
		if folds, _ := cmd.Flags().GetInt("cv-folds"); folds > 0 {
			cfg.Split.CVFolds = folds
		}
		noHistory, _ := cmd.Flags().GetBool("no-history")

		summary, err := experiment.NewRunner(trainOptions(), os.Stdout).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "train")
		}

		if noHistory || cfg.History.Path == "" {
			return nil
		}
		if err := recordRun(ctx, cfg.History.Path, summary); err != nil {
			zap.L().Warn("could not record run history", zap.Error(err))
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().String("data", "", "dataset path (overrides data.path)")
	trainCmd.Flags().Int("cv-folds", 0, "stratified k-fold cross-validation on the training split (overrides split.cv_folds)")
	trainCmd.Flags().Bool("no-history", false, "do not record the run in the history database")
	rootCmd.AddCommand(trainCmd)
}

func trainOptions() experiment.Options {
	return experiment.Options{
		DataPath:   cfg.Data.Path,
		Columns:    cfg.Data.Columns(),
		TestSize:   cfg.Split.TestSize,
		Seed:       cfg.Split.Seed,
		CVFolds:    cfg.Split.CVFolds,
		Vectorizer: cfg.Vectorizer.Params(),
		ModelsDir:  cfg.Output.ModelsDir,
		DocsDir:    cfg.Output.DocsDir,
	}
}

func recordRun(ctx context.Context, path string, summary *experiment.RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "history: create dir for %s", path)
	}

	st, err := store.NewSQLite(path)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	return st.SaveRun(ctx, historyRun(summary))
}

// historyRun flattens a run summary into the history row layout. Model rows
// keep the comparison order, so rank 1 is the most accurate model.
func historyRun(summary *experiment.RunSummary) *store.Run {
	artifacts := make(map[string]string, len(summary.Results))
	for _, res := range summary.Results {
		artifacts[res.Name] = res.ModelPath
	}

	run := &store.Run{
		ID:         summary.ID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Dataset:    summary.Dataset,
		Samples:    summary.TotalSamples,
		Features:   summary.NumFeatures,
	}
	if summary.Comparison == nil {
		return run
	}

	best, fastest := summary.Comparison.Best(), summary.Comparison.Fastest()
	run.Best, run.BestAccuracy = best.Model, best.Accuracy
	run.Fastest, run.FastestSeconds = fastest.Model, fastest.TrainingSeconds

	for i, row := range summary.Comparison.Rows {
		run.Models = append(run.Models, store.ModelRun{
			Rank:            i + 1,
			Name:            row.Model,
			Accuracy:        row.Accuracy,
			Precision:       row.Precision,
			Recall:          row.Recall,
			F1:              row.F1,
			TrainingSeconds: row.TrainingSeconds,
			Artifact:        artifacts[row.Model],
		})
	}
	return run
}
