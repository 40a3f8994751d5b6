package persistence

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnclassifier/internal/models"
	"vulnclassifier/internal/sparse"
)

func trainingData() (*sparse.Matrix, []int) {
	dense := [][]float64{
		{0.9, 0.1, 0, 0},
		{0.8, 0, 0.2, 0},
		{0.7, 0.3, 0, 0.1},
		{0.95, 0, 0, 0.3},
		{0, 0.1, 0.9, 0},
		{0, 0, 0.8, 0.4},
		{0.1, 0, 0.7, 0.2},
		{0, 0.2, 0.95, 0},
	}
	y := []int{1, 1, 1, 1, 0, 0, 0, 0}
	return sparse.FromDense(dense), y
}

func TestBundleRoundTripReproducesPredictions(t *testing.T) {
	X, y := trainingData()

	bank, err := models.ModelBank()
	require.NoError(t, err)

	dir := t.TempDir()
	for _, spec := range bank {
		t.Run(spec.Name, func(t *testing.T) {
			require.NoError(t, spec.Model.Fit(X, y))

			bundle := NewModelBundle(spec.Model, spec.Name)
			bundle.Metadata.Accuracy = 0.875
			bundle.Metadata.TrainingTime = 1500 * time.Millisecond

			path := filepath.Join(dir, spec.Key+".gob")
			require.NoError(t, bundle.Save(path))

			loaded, err := LoadModelBundle(path)
			require.NoError(t, err)

			assert.Equal(t, spec.Name, loaded.Metadata.ModelName)
			assert.Equal(t, spec.Model.GetType(), loaded.Model.GetType())
			assert.Equal(t, []string{"Safe", "Vulnerable"}, loaded.Metadata.Classes)
			assert.Equal(t, 0.875, loaded.Metadata.Accuracy)
			assert.Equal(t, spec.Model.Predict(X), loaded.Model.Predict(X))
			assert.Equal(t, spec.Model.PredictProba(X), loaded.Model.PredictProba(X))
		})
	}
}

func TestLoadModelBundleMissingFile(t *testing.T) {
	_, err := LoadModelBundle(filepath.Join(t.TempDir(), "absent.gob"))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	bundle := NewModelBundle(models.NewNaiveBayes(1, true), "Naive Bayes")
	bundle.Metadata.Dataset = "data.csv"

	var buf bytes.Buffer
	bundle.Describe(&buf)
	assert.Contains(t, buf.String(), "Model: Naive Bayes (MultinomialNB)")
	assert.Contains(t, buf.String(), "Dataset: data.csv")
}
