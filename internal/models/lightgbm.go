package models

import (
	"math/rand"

	"vulnclassifier/internal/sparse"
)

// LightGBM grows leaf-wise trees, always splitting the leaf with the highest
// gain until NumLeaves is reached or MaxDepth stops it.
type LightGBM struct {
	BaseModel
	NRounds         int
	MaxDepth        int
	LearningRate    float64
	NumLeaves       int
	Subsample       float64
	SubsampleFreq   int
	ColsampleByTree float64
	MinChildSamples int
	MinSumHessian   float64
	Lambda          float64
	MaxBin          int
	Seed            int64
	InitScore       float64
	Trees           []*TreeNode
}

func NewLightGBM(nRounds, maxDepth int, learningRate float64, numLeaves int, subsample, colsample float64, seed int64) *LightGBM {
	return &LightGBM{
		NRounds:         nRounds,
		MaxDepth:        maxDepth,
		LearningRate:    learningRate,
		NumLeaves:       numLeaves,
		Subsample:       subsample,
		SubsampleFreq:   0,
		ColsampleByTree: colsample,
		MinChildSamples: 20,
		MinSumHessian:   1e-3,
		Lambda:          0,
		MaxBin:          255,
		Seed:            seed,
		BaseModel: BaseModel{
			Name: "LightGBM",
			Params: map[string]any{
				"n_estimators":      nRounds,
				"max_depth":         maxDepth,
				"learning_rate":     learningRate,
				"num_leaves":        numLeaves,
				"subsample":         subsample,
				"subsample_freq":    0,
				"colsample_bytree":  colsample,
				"min_child_samples": 20,
				"min_child_weight":  1e-3,
				"max_bin":           255,
				"random_state":      seed,
			},
		},
	}
}

func (lgb *LightGBM) Fit(X *sparse.Matrix, y []int) error {
	encoded, err := lgb.prepareBinary(X, y, true)
	if err != nil {
		return err
	}

	n := len(encoded)
	lgb.InitScore = priorLogOdds(encoded)
	lgb.Trees = make([]*TreeNode, 0, lgb.NRounds)

	r := rand.New(rand.NewSource(lgb.Seed))
	data := newBinnedData(X, lgb.MaxBin)
	grad := make([]float64, n)
	hess := make([]float64, n)
	score := constantScores(n, lgb.InitScore)

	grower := newTreeGrower(growerConfig{
		criterion:      secondOrderGain{Lambda: lgb.Lambda},
		maxDepth:       lgb.MaxDepth,
		maxLeaves:      lgb.NumLeaves,
		minSamplesLeaf: lgb.MinChildSamples,
		minChildWeight: lgb.MinSumHessian,
	}, data, grad, hess, nil, r)

	allRows := sampleRows(n, 1, false, r)

	for round := 0; round < lgb.NRounds; round++ {
		newtonGradients(encoded, score, grad, hess)

		// bagging only runs when SubsampleFreq > 0
		rows := allRows
		if lgb.SubsampleFreq > 0 && round%lgb.SubsampleFreq == 0 {
			rows = sampleRows(n, lgb.Subsample, false, r)
		}
		grower.useFeatures(sampleColumns(data.usable, lgb.ColsampleByTree, r))
		tree := grower.grow(rows)
		lgb.Trees = append(lgb.Trees, tree)

		for i, row := range X.Rows {
			score[i] += lgb.LearningRate * tree.predict(row)
		}
	}

	return nil
}

func (lgb *LightGBM) positiveProba(X *sparse.Matrix) []float64 {
	return boostedProba(X, lgb.Trees, lgb.InitScore, lgb.LearningRate)
}

func (lgb *LightGBM) Predict(X *sparse.Matrix) []int {
	labels, _ := lgb.decode(lgb.positiveProba(X))
	return labels
}

func (lgb *LightGBM) PredictProba(X *sparse.Matrix) [][]float64 {
	_, proba := lgb.decode(lgb.positiveProba(X))
	return proba
}

func (lgb *LightGBM) Reset() {
	lgb.Trees = nil
	lgb.InitScore = 0
	lgb.Classes = nil
	lgb.NumFeatures = 0
}
