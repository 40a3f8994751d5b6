package jobs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobsKeepCreationOrder(t *testing.T) {
	m := NewManager()
	a := m.CreateJob("train", "Logistic Regression")
	b := m.CreateJob("train", "Random Forest")

	jobs := m.ListJobs()
	require.Len(t, jobs, 2)
	assert.Same(t, a, jobs[0])
	assert.Same(t, b, jobs[1])
	assert.NotEqual(t, a.ID, b.ID)

	got, ok := m.GetJob(b.ID)
	assert.True(t, ok)
	assert.Same(t, b, got)
}

func TestJobLifecycle(t *testing.T) {
	m := NewManager()
	job := m.CreateJob("train", "Naive Bayes")
	assert.Equal(t, JobPending, job.GetStatus())

	require.NoError(t, job.Start())
	assert.Error(t, job.Start())
	job.AddLog("fit done")
	job.SetProgress(0.5)
	job.SetResult("models/model_naive_bayes.gob")
	job.SetStatus(JobCompleted)

	s := job.Summary()
	assert.Equal(t, JobCompleted, s.Status)
	assert.Equal(t, 1.0, s.Progress)
	assert.False(t, s.EndTime.Before(s.StartTime))
	assert.NotEmpty(t, s.Duration)
	require.Len(t, s.Logs, 1)
	assert.Contains(t, s.Logs[0], "fit done")
	assert.Equal(t, "models/model_naive_bayes.gob", job.GetResult())
}

func TestJobFailure(t *testing.T) {
	m := NewManager()
	ok := m.CreateJob("train", "a")
	failed := m.CreateJob("train", "b")
	m.CreateJob("train", "c")

	require.NoError(t, ok.Start())
	ok.SetStatus(JobCompleted)
	require.NoError(t, failed.Start())
	failed.SetError(errors.New("boom"))

	assert.Equal(t, "boom", failed.Summary().Error)
	assert.Equal(t, map[JobStatus]int{JobCompleted: 1, JobFailed: 1, JobPending: 1}, m.Counts())
	assert.Len(t, m.Summaries(), 3)
}
