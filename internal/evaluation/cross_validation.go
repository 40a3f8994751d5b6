package evaluation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"vulnclassifier/internal/models"
	"vulnclassifier/internal/sparse"
)

// CrossValidator scores a model family with stratified k-fold accuracy.
type CrossValidator struct {
	NFolds     int
	Shuffle    bool
	RandomSeed int64
	MaxWorkers int
}

func NewCrossValidator(nFolds int, seed int64) *CrossValidator {
	return &CrossValidator{
		NFolds:     nFolds,
		Shuffle:    true,
		RandomSeed: seed,
		MaxWorkers: 4,
	}
}

// CVResult holds per-fold accuracy in fold order.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64
}

// CrossValidate fits a fresh model from newModel on each training fold and
// scores it on the held-out fold. Folds run concurrently.
func (cv *CrossValidator) CrossValidate(X *sparse.Matrix, y []int, newModel func() (models.Model, error)) (*CVResult, error) {
	if X.NumRows() != len(y) {
		return nil, eris.Errorf("cv: %d rows but %d labels", X.NumRows(), len(y))
	}

	folds, err := cv.StratifiedKFold(y)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(folds))
	g := new(errgroup.Group)
	workers := cv.MaxWorkers
	if workers <= 0 || workers > len(folds) {
		workers = len(folds)
	}
	g.SetLimit(workers)

	for i, testIdx := range folds {
		i, testIdx := i, testIdx
		g.Go(func() error {
			model, err := newModel()
			if err != nil {
				return eris.Wrapf(err, "cv: fold %d", i)
			}
			score, err := evaluateFold(X, y, model, testIdx)
			if err != nil {
				return eris.Wrapf(err, "cv: fold %d", i)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, std := meanStd(scores)
	return &CVResult{Scores: scores, Mean: mean, Std: std}, nil
}

func evaluateFold(X *sparse.Matrix, y []int, model models.Model, testIdx []int) (float64, error) {
	inTest := make([]bool, len(y))
	for _, idx := range testIdx {
		inTest[idx] = true
	}

	trainIdx := make([]int, 0, len(y)-len(testIdx))
	for i := range y {
		if !inTest[i] {
			trainIdx = append(trainIdx, i)
		}
	}

	if err := model.Fit(X.Subset(trainIdx), pick(y, trainIdx)); err != nil {
		return 0, err
	}

	predictions := model.Predict(X.Subset(testIdx))
	correct := 0
	for i, pred := range predictions {
		if pred == y[testIdx[i]] {
			correct++
		}
	}
	return float64(correct) / float64(len(testIdx)), nil
}

// StratifiedKFold deals each class's rows round-robin over the folds so every
// fold keeps the class proportions. Fold indices are sorted.
func (cv *CrossValidator) StratifiedKFold(y []int) ([][]int, error) {
	if cv.NFolds < 2 {
		return nil, eris.Errorf("cv: invalid number of folds: %d", cv.NFolds)
	}

	classIndices := make(map[int][]int)
	for i, label := range y {
		classIndices[label] = append(classIndices[label], i)
	}
	classes := make([]int, 0, len(classIndices))
	for class, indices := range classIndices {
		if len(indices) < cv.NFolds {
			return nil, eris.Errorf("cv: class %d has %d member(s), fewer than %d folds", class, len(indices), cv.NFolds)
		}
		classes = append(classes, class)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(cv.RandomSeed))
	folds := make([][]int, cv.NFolds)
	next := 0
	for _, class := range classes {
		indices := append([]int(nil), classIndices[class]...)
		if cv.Shuffle {
			rng.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		}
		for _, idx := range indices {
			folds[next] = append(folds[next], idx)
			next = (next + 1) % cv.NFolds
		}
	}

	for _, fold := range folds {
		sort.Ints(fold)
	}
	return folds, nil
}

func meanStd(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean = sum / float64(len(scores))

	if len(scores) > 1 {
		variance := 0.0
		for _, s := range scores {
			diff := s - mean
			variance += diff * diff
		}
		variance /= float64(len(scores) - 1)
		std = math.Sqrt(variance)
	}

	return mean, std
}

func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
