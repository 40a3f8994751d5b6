package experiment

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnclassifier/internal/models"
)

func bayesOnly() ([]models.ModelSpec, error) {
	bayes, err := models.CreateModel(models.DefaultConfig("bayes"))
	if err != nil {
		return nil, err
	}
	return []models.ModelSpec{{Key: "bayes", Name: "Naive Bayes", Description: "nb", Model: bayes}}, nil
}

func TestScorerRoundTrip(t *testing.T) {
	opts := testOptions(t, writeDataset(t, 200))
	_, err := NewRunner(opts, &bytes.Buffer{}).WithBank(bayesOnly).Run(context.Background())
	require.NoError(t, err)

	input := filepath.Join(t.TempDir(), "new.csv")
	content := "id,code\n" +
		"a1,\"char buf[16]; strcpy(buf, input); printf(payload);\"\n" +
		"a2,\"size_t n = strlen(name); if (n < sizeof(buf)) memcpy(buf, name, n);\"\n" +
		"a3,\"os.system(\"\"rm \"\" + path); eval(arg)\"\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	scorer, err := LoadScorer(opts.ModelsDir, "naive_bayes")
	require.NoError(t, err)
	assert.Equal(t, "Naive Bayes", scorer.Bundle.Metadata.ModelName)

	var out bytes.Buffer
	n, err := scorer.ScoreFile(input, "code", "id", 2, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, scoreHeader, records[0])
	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{records[1][0], records[2][0], records[3][0]})

	for _, rec := range records[1:] {
		pred, err := strconv.Atoi(rec[1])
		require.NoError(t, err)
		prob, err := strconv.ParseFloat(rec[3], 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, prob, 0.0)
		assert.LessOrEqual(t, prob, 1.0)
		if pred == 1 {
			assert.Equal(t, "Vulnerable", rec[2])
		} else {
			assert.Equal(t, "Safe", rec[2])
		}
	}
}

func TestLoadScorerMissingModel(t *testing.T) {
	opts := testOptions(t, writeDataset(t, 100))
	_, err := NewRunner(opts, &bytes.Buffer{}).WithBank(bayesOnly).Run(context.Background())
	require.NoError(t, err)

	_, err = LoadScorer(opts.ModelsDir, "XGBoost")
	assert.Error(t, err)

	_, err = LoadScorer(t.TempDir(), "Naive Bayes")
	assert.Error(t, err)
}

func TestRunWithCrossValidation(t *testing.T) {
	opts := testOptions(t, writeDataset(t, 200))
	opts.CVFolds = 3
	var out bytes.Buffer

	summary, err := NewRunner(opts, &out).WithBank(bayesOnly).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	cv := summary.Results[0].CV
	require.NotNil(t, cv)
	assert.Len(t, cv.Scores, 3)
	assert.GreaterOrEqual(t, cv.Mean, 0.0)
	assert.LessOrEqual(t, cv.Mean, 1.0)
	assert.Contains(t, out.String(), "CV accuracy:")

	manifest, err := ReadManifest(filepath.Join(opts.ModelsDir, ManifestFile))
	require.NoError(t, err)
	assert.InDelta(t, cv.Mean, manifest.Models[0].CVMean, 1e-12)
}
