package evaluation

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnclassifier/internal/models"
	"vulnclassifier/internal/sparse"
)

func separable(n int) (*sparse.Matrix, []int) {
	dense := make([][]float64, n)
	y := balancedLabels(n)
	for i := range dense {
		if y[i] == 1 {
			dense[i] = []float64{0, 2, 1}
		} else {
			dense[i] = []float64{2, 0, 1}
		}
	}
	return sparse.FromDense(dense), y
}

func newBayes() (models.Model, error) {
	return models.CreateModel(models.DefaultConfig("bayes"))
}

func TestStratifiedKFold(t *testing.T) {
	y := append(balancedLabels(20), 0, 0, 0, 0, 0) // 15 safe, 10 vulnerable
	cv := NewCrossValidator(5, 42)

	folds, err := cv.StratifiedKFold(y)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]bool)
	for _, fold := range folds {
		assert.Equal(t, 5, len(fold))
		assert.Equal(t, 2, count(pick(y, fold), 1))
		for _, idx := range fold {
			assert.False(t, seen[idx], "row %d in two folds", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, len(y))

	again, err := NewCrossValidator(5, 42).StratifiedKFold(y)
	require.NoError(t, err)
	assert.Equal(t, folds, again)
}

func TestStratifiedKFoldErrors(t *testing.T) {
	_, err := NewCrossValidator(1, 42).StratifiedKFold(balancedLabels(10))
	assert.Error(t, err)

	_, err = NewCrossValidator(5, 42).StratifiedKFold([]int{0, 0, 0, 0, 0, 1, 1})
	assert.Error(t, err)
}

func TestCrossValidate(t *testing.T) {
	X, y := separable(40)
	res, err := NewCrossValidator(4, 7).CrossValidate(X, y, newBayes)
	require.NoError(t, err)

	require.Len(t, res.Scores, 4)
	for _, s := range res.Scores {
		assert.InDelta(t, 1.0, s, 1e-12)
	}
	assert.InDelta(t, 1.0, res.Mean, 1e-12)
	assert.InDelta(t, 0.0, res.Std, 1e-12)
}

func TestCrossValidateFactoryError(t *testing.T) {
	X, y := separable(20)
	_, err := NewCrossValidator(2, 7).CrossValidate(X, y, func() (models.Model, error) {
		return nil, eris.New("no model")
	})
	assert.Error(t, err)
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{0.8, 0.9, 1.0})
	assert.InDelta(t, 0.9, mean, 1e-12)
	assert.InDelta(t, 0.1, std, 1e-12)

	mean, std = meanStd(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}
