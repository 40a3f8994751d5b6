package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnclassifier/internal/config"
	"vulnclassifier/internal/experiment"
	"vulnclassifier/internal/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"train", "score", "history"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	sub := make(map[string]bool)
	for _, c := range historyCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["list"])
	assert.True(t, sub["show"])
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "vulnclassifier", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestTrainCommand_Flags(t *testing.T) {
	f := trainCmd.Flags().Lookup("data")
	require.NotNil(t, f)
	assert.Equal(t, "", f.DefValue)

	f = trainCmd.Flags().Lookup("no-history")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestScoreCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"input":      "",
		"model":      "",
		"output":     "-",
		"models-dir": "",
		"batch-size": "0",
	} {
		f := scoreCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, def, f.DefValue, name)
	}
}

func TestHistoryListCommand_Flags(t *testing.T) {
	f := historyListCmd.Flags().Lookup("limit")
	require.NotNil(t, f)
	assert.Equal(t, "20", f.DefValue)
}

func sampleSummary() *experiment.RunSummary {
	started := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	results := []experiment.Result{
		{Name: "Logistic Regression", Accuracy: 0.90, TrainingTime: 2 * time.Second, ModelPath: "models/model_logistic_regression.gob"},
		{Name: "Naive Bayes", Accuracy: 0.85, TrainingTime: 10 * time.Millisecond, ModelPath: "models/model_naive_bayes.gob"},
		{Name: "XGBoost", Accuracy: 0.95, TrainingTime: 5 * time.Second, ModelPath: "models/model_xgboost.gob"},
	}
	return &experiment.RunSummary{
		ID:           "0f3c2a9e-1111-2222-3333-444444444444",
		StartedAt:    started,
		FinishedAt:   started.Add(time.Minute),
		Dataset:      "data/balanced_merged_dataset.csv",
		TotalSamples: 1000,
		NumFeatures:  3000,
		Results:      results,
		Comparison:   experiment.NewComparison(results),
	}
}

func TestHistoryRun(t *testing.T) {
	run := historyRun(sampleSummary())

	assert.Equal(t, "XGBoost", run.Best)
	assert.InDelta(t, 0.95, run.BestAccuracy, 1e-12)
	assert.Equal(t, "Naive Bayes", run.Fastest)
	assert.InDelta(t, 0.01, run.FastestSeconds, 1e-12)
	require.Len(t, run.Models, 3)
	assert.Equal(t, 1, run.Models[0].Rank)
	assert.Equal(t, "XGBoost", run.Models[0].Name)
	assert.Equal(t, "models/model_xgboost.gob", run.Models[0].Artifact)
	assert.Equal(t, "Naive Bayes", run.Models[2].Name)
}

func TestRecordRunAndFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	require.NoError(t, recordRun(ctx, path, sampleSummary()))

	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()
	assert.Contains(t, out, "BEST")
	assert.Contains(t, out, "0f3c2a9e")
	assert.NotContains(t, out, "0f3c2a9e-1111")
	assert.Contains(t, out, "XGBoost")
	assert.Contains(t, out, "0.9500")
	assert.Contains(t, out, "0.01")

	run, err := st.GetRun(ctx, runs[0].ID)
	require.NoError(t, err)
	buf.Reset()
	formatRun(&buf, run)
	out = buf.String()
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "models/model_naive_bayes.gob")
	assert.Contains(t, out, "1m0s")
}

func TestResolveModel(t *testing.T) {
	dir := t.TempDir()

	got, err := resolveModel(dir, "XGBoost")
	require.NoError(t, err)
	assert.Equal(t, "XGBoost", got)

	_, err = resolveModel(dir, "")
	assert.Error(t, err)

	require.NoError(t, experiment.WriteManifest(filepath.Join(dir, experiment.ManifestFile), sampleSummary(), nil))
	got, err = resolveModel(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "XGBoost", got)
}

func TestTrainOptionsFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  models_dir: out/models\nsplit:\n  seed: 9\n"), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	cfg = c
	t.Cleanup(func() { cfg = nil })

	opts := trainOptions()
	assert.Equal(t, "out/models", opts.ModelsDir)
	assert.Equal(t, int64(9), opts.Seed)
	assert.Equal(t, "code", opts.Columns.Text)
	assert.Equal(t, 3000, opts.Vectorizer.MaxFeatures)
}
