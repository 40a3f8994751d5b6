package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vulnclassifier/internal/experiment"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Label new code snippets with a trained model",
	Long:  "Reads a CSV of snippets in batches and writes id, prediction, label and probability_vulnerable for each row. Without --model the most accurate model of the last run is used.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		model, _ := cmd.Flags().GetString("model")
		output, _ := cmd.Flags().GetString("output")
		modelsDir, _ := cmd.Flags().GetString("models-dir")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		if modelsDir == "" {
			modelsDir = cfg.Output.ModelsDir
		}
		if batchSize <= 0 {
			batchSize = cfg.Score.BatchSize
		}

		model, err := resolveModel(modelsDir, model)
		if err != nil {
			return err
		}

		scorer, err := experiment.LoadScorer(modelsDir, model)
		if err != nil {
			return err
		}
		scorer.Bundle.Describe(os.Stderr)

		var w io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrapf(err, "score: create %s", output)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}

		n, err := scorer.ScoreFile(input, cfg.Data.TextColumn, cfg.Score.IDColumn, batchSize, w)
		if err != nil {
			return err
		}

		zap.L().Info("scoring complete",
			zap.String("model.name", scorer.Bundle.Metadata.ModelName),
			zap.Int("rows", n),
		)
		if w != os.Stdout {
			fmt.Fprintf(os.Stderr, "Scored %d snippets into %s\n", n, output)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("input", "", "CSV file of snippets to score")
	scoreCmd.Flags().String("model", "", "model name or slug (default: best model of the last run)")
	scoreCmd.Flags().String("output", "-", "output CSV path, - for stdout")
	scoreCmd.Flags().String("models-dir", "", "directory holding the trained artifacts (overrides output.models_dir)")
	scoreCmd.Flags().Int("batch-size", 0, "rows per batch (overrides score.batch_size)")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}

// resolveModel returns the requested model, or the best model recorded in
// the run manifest when none was named.
func resolveModel(modelsDir, model string) (string, error) {
	if model != "" {
		return model, nil
	}

	manifest, err := experiment.ReadManifest(filepath.Join(modelsDir, experiment.ManifestFile))
	if err != nil {
		return "", eris.Wrap(err, "score: no --model given and no run manifest found")
	}
	if manifest.Comparison.Best == "" {
		return "", eris.New("score: run manifest names no best model")
	}
	return manifest.Comparison.Best, nil
}
