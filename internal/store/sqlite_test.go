package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &Run{
		StartedAt:      started,
		FinishedAt:     started.Add(90 * time.Second),
		Dataset:        "data/balanced_merged_dataset.csv",
		Samples:        1000,
		Features:       3000,
		Best:           "XGBoost",
		BestAccuracy:   0.93,
		Fastest:        "Naive Bayes",
		FastestSeconds: 0.01,
		Models: []ModelRun{
			{Rank: 2, Name: "Naive Bayes", Accuracy: 0.88, TrainingSeconds: 0.01, Artifact: "models/model_naive_bayes.gob"},
			{Rank: 1, Name: "XGBoost", Accuracy: 0.93, TrainingSeconds: 4.2, Artifact: "models/model_xgboost.gob"},
		},
	}
	require.NoError(t, s.SaveRun(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Dataset, got.Dataset)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 90*time.Second, got.FinishedAt.Sub(got.StartedAt))
	assert.Equal(t, "XGBoost", got.Best)
	require.Len(t, got.Models, 2)
	assert.Equal(t, "XGBoost", got.Models[0].Name)
	assert.Equal(t, "models/model_naive_bayes.gob", got.Models[1].Artifact)
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveRun(ctx, &Run{
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Dataset:    "d.csv",
			Best:       "b",
			Fastest:    "f",
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.Empty(t, runs[0].Models)
}

func TestListRunsOrderWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, run := range []*Run{
		{ID: "whole", StartedAt: base, FinishedAt: base, Dataset: "d", Best: "b", Fastest: "f"},
		{ID: "later", StartedAt: base.Add(100 * time.Millisecond), FinishedAt: base, Dataset: "d", Best: "b", Fastest: "f"},
	} {
		require.NoError(t, s.SaveRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "later", runs[0].ID)
	assert.Equal(t, "whole", runs[1].ID)
	assert.True(t, base.Equal(runs[1].StartedAt))
}

func TestGetRunMissing(t *testing.T) {
	_, err := newTestStore(t).GetRun(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSaveRunDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	run := &Run{ID: "fixed", Dataset: "d", Best: "b", Fastest: "f"}
	require.NoError(t, s.SaveRun(ctx, run))
	assert.Error(t, s.SaveRun(ctx, run))
}
