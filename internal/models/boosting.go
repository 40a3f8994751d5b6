package models

import (
	"math"
	"math/rand"

	"vulnclassifier/internal/sparse"
)

// GradientBoosting fits shallow Friedman-MSE regression trees to log-loss
// residuals; each leaf takes a single Newton step.
type GradientBoosting struct {
	BaseModel
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	Subsample       float64
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
	InitScore       float64
	Trees           []*TreeNode
}

func NewGradientBoosting(nEstimators int, learningRate float64, maxDepth int, subsample float64, minSamplesSplit, minSamplesLeaf int, seed int64) *GradientBoosting {
	return &GradientBoosting{
		NEstimators:     nEstimators,
		LearningRate:    learningRate,
		MaxDepth:        maxDepth,
		Subsample:       subsample,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
		Seed:            seed,
		BaseModel: BaseModel{
			Name: "GradientBoosting",
			Params: map[string]any{
				"n_estimators":      nEstimators,
				"learning_rate":     learningRate,
				"max_depth":         maxDepth,
				"subsample":         subsample,
				"min_samples_split": minSamplesSplit,
				"min_samples_leaf":  minSamplesLeaf,
				"random_state":      seed,
			},
		},
	}
}

func (gb *GradientBoosting) Fit(X *sparse.Matrix, y []int) error {
	encoded, err := gb.prepareBinary(X, y, true)
	if err != nil {
		return err
	}

	n := len(encoded)
	gb.InitScore = priorLogOdds(encoded)
	gb.Trees = make([]*TreeNode, 0, gb.NEstimators)

	r := rand.New(rand.NewSource(gb.Seed))
	data := newBinnedData(X, 256)
	residual := make([]float64, n)
	hess := make([]float64, n)
	score := constantScores(n, gb.InitScore)

	grower := newTreeGrower(growerConfig{
		criterion:       friedmanMSE{},
		maxDepth:        gb.MaxDepth,
		minSamplesSplit: gb.MinSamplesSplit,
		minSamplesLeaf:  gb.MinSamplesLeaf,
	}, data, residual, hess, nil, r)

	for stage := 0; stage < gb.NEstimators; stage++ {
		for i, label := range encoded {
			p := sigmoid(score[i])
			residual[i] = float64(label) - p
			hess[i] = p * (1 - p)
		}

		tree := grower.grow(sampleRows(n, gb.Subsample, false, r))
		gb.Trees = append(gb.Trees, tree)

		for i, row := range X.Rows {
			score[i] += gb.LearningRate * tree.predict(row)
		}
	}

	return nil
}

func (gb *GradientBoosting) positiveProba(X *sparse.Matrix) []float64 {
	return boostedProba(X, gb.Trees, gb.InitScore, gb.LearningRate)
}

func (gb *GradientBoosting) Predict(X *sparse.Matrix) []int {
	labels, _ := gb.decode(gb.positiveProba(X))
	return labels
}

func (gb *GradientBoosting) PredictProba(X *sparse.Matrix) [][]float64 {
	_, proba := gb.decode(gb.positiveProba(X))
	return proba
}

func (gb *GradientBoosting) Reset() {
	gb.Trees = nil
	gb.InitScore = 0
	gb.Classes = nil
	gb.NumFeatures = 0
}

// priorLogOdds is the log-odds of the positive class in 0/1 labels.
func priorLogOdds(y []int) float64 {
	pos := 0
	for _, label := range y {
		pos += label
	}
	p := float64(pos) / float64(len(y))
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return logit(p)
}

func constantScores(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// newtonGradients fills log-loss gradients (p - y) and hessians p(1-p).
func newtonGradients(y []int, score, grad, hess []float64) {
	for i, label := range y {
		p := sigmoid(score[i])
		grad[i] = p - float64(label)
		hess[i] = math.Max(p*(1-p), 1e-16)
	}
}

// boostedProba sums shrunken tree outputs onto the initial score.
func boostedProba(X *sparse.Matrix, trees []*TreeNode, init, shrinkage float64) []float64 {
	p := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		s := init
		for _, tree := range trees {
			s += shrinkage * tree.predict(row)
		}
		p[i] = sigmoid(s)
	}
	return p
}
