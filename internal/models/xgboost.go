package models

import (
	"math/rand"

	"vulnclassifier/internal/sparse"
)

// XGBoost is depth-wise Newton boosting with an L2-regularised second-order
// gain. Zero entries are treated as missing and each split learns which side
// they default to.
type XGBoost struct {
	BaseModel
	NRounds         int
	MaxDepth        int
	Eta             float64
	Subsample       float64
	ColsampleByTree float64
	Gamma           float64
	MinChildWeight  float64
	Lambda          float64
	Seed            int64
	BaseScore       float64
	Trees           []*TreeNode
}

func NewXGBoost(nRounds, maxDepth int, eta, subsample, colsample float64, seed int64) *XGBoost {
	return &XGBoost{
		NRounds:         nRounds,
		MaxDepth:        maxDepth,
		Eta:             eta,
		Subsample:       subsample,
		ColsampleByTree: colsample,
		Gamma:           0,
		MinChildWeight:  1,
		Lambda:          1,
		Seed:            seed,
		BaseModel: BaseModel{
			Name: "XGBoost",
			Params: map[string]any{
				"n_estimators":     nRounds,
				"max_depth":        maxDepth,
				"learning_rate":    eta,
				"subsample":        subsample,
				"colsample_bytree": colsample,
				"gamma":            0.0,
				"min_child_weight": 1.0,
				"reg_lambda":       1.0,
				"random_state":     seed,
			},
		},
	}
}

func (xgb *XGBoost) Fit(X *sparse.Matrix, y []int) error {
	encoded, err := xgb.prepareBinary(X, y, true)
	if err != nil {
		return err
	}

	n := len(encoded)
	// base_score 0.5 is a zero margin
	xgb.BaseScore = 0
	xgb.Trees = make([]*TreeNode, 0, xgb.NRounds)

	r := rand.New(rand.NewSource(xgb.Seed))
	data := newBinnedData(X, 256)
	grad := make([]float64, n)
	hess := make([]float64, n)
	score := constantScores(n, xgb.BaseScore)

	grower := newTreeGrower(growerConfig{
		criterion:      secondOrderGain{Lambda: xgb.Lambda, Gamma: xgb.Gamma, Half: true},
		maxDepth:       xgb.MaxDepth,
		minChildWeight: xgb.MinChildWeight,
		minGain:        1e-6,
		missingAware:   true,
	}, data, grad, hess, nil, r)

	for round := 0; round < xgb.NRounds; round++ {
		newtonGradients(encoded, score, grad, hess)

		rows := sampleRows(n, xgb.Subsample, false, r)
		grower.useFeatures(sampleColumns(data.usable, xgb.ColsampleByTree, r))
		tree := grower.grow(rows)
		xgb.Trees = append(xgb.Trees, tree)

		for i, row := range X.Rows {
			score[i] += xgb.Eta * tree.predict(row)
		}
	}

	return nil
}

func (xgb *XGBoost) positiveProba(X *sparse.Matrix) []float64 {
	return boostedProba(X, xgb.Trees, xgb.BaseScore, xgb.Eta)
}

func (xgb *XGBoost) Predict(X *sparse.Matrix) []int {
	labels, _ := xgb.decode(xgb.positiveProba(X))
	return labels
}

func (xgb *XGBoost) PredictProba(X *sparse.Matrix) [][]float64 {
	_, proba := xgb.decode(xgb.positiveProba(X))
	return proba
}

func (xgb *XGBoost) Reset() {
	xgb.Trees = nil
	xgb.BaseScore = 0
	xgb.Classes = nil
	xgb.NumFeatures = 0
}
