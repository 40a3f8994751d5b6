package models

import (
	"math"

	"vulnclassifier/internal/sparse"
)

// NaiveBayes is a multinomial naive Bayes classifier over non-negative
// term weights with additive (Laplace) smoothing.
type NaiveBayes struct {
	BaseModel
	Alpha          float64
	FitPrior       bool
	ClassLogPriors []float64
	FeatureLogProb [][]float64
	ClassCounts    []float64
}

func NewNaiveBayes(alpha float64, fitPrior bool) *NaiveBayes {
	return &NaiveBayes{
		Alpha:    alpha,
		FitPrior: fitPrior,
		BaseModel: BaseModel{
			Name: "MultinomialNB",
			Params: map[string]any{
				"alpha":     alpha,
				"fit_prior": fitPrior,
			},
		},
	}
}

func (nb *NaiveBayes) Fit(X *sparse.Matrix, y []int) error {
	encoded, err := nb.prepareBinary(X, y, true)
	if err != nil {
		return err
	}

	nFeatures := X.NumCols
	featureCounts := [][]float64{make([]float64, nFeatures), make([]float64, nFeatures)}
	nb.ClassCounts = make([]float64, 2)

	for i, row := range X.Rows {
		c := encoded[i]
		nb.ClassCounts[c]++
		for k, j := range row.Indices {
			featureCounts[c][j] += row.Values[k]
		}
	}

	nb.ClassLogPriors = make([]float64, 2)
	nb.FeatureLogProb = make([][]float64, 2)
	n := float64(len(encoded))

	for c := 0; c < 2; c++ {
		if nb.FitPrior {
			nb.ClassLogPriors[c] = math.Log(nb.ClassCounts[c] / n)
		} else {
			nb.ClassLogPriors[c] = -math.Log(2)
		}

		total := 0.0
		for _, v := range featureCounts[c] {
			total += v
		}
		denom := math.Log(total + nb.Alpha*float64(nFeatures))

		nb.FeatureLogProb[c] = make([]float64, nFeatures)
		for j, v := range featureCounts[c] {
			nb.FeatureLogProb[c][j] = math.Log(v+nb.Alpha) - denom
		}
	}

	return nil
}

// jointLogLikelihood returns log P(c) + sum_j x_j log P(j|c) for both classes.
func (nb *NaiveBayes) jointLogLikelihood(row sparse.Vector) [2]float64 {
	var jll [2]float64
	for c := 0; c < 2; c++ {
		jll[c] = nb.ClassLogPriors[c] + row.Dot(nb.FeatureLogProb[c])
	}
	return jll
}

func (nb *NaiveBayes) positiveProba(X *sparse.Matrix) []float64 {
	p := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		jll := nb.jointLogLikelihood(row)
		maxLogProb := math.Max(jll[0], jll[1])
		e0 := math.Exp(jll[0] - maxLogProb)
		e1 := math.Exp(jll[1] - maxLogProb)
		p[i] = e1 / (e0 + e1)
	}
	return p
}

func (nb *NaiveBayes) Predict(X *sparse.Matrix) []int {
	labels, _ := nb.decode(nb.positiveProba(X))
	return labels
}

func (nb *NaiveBayes) PredictProba(X *sparse.Matrix) [][]float64 {
	_, proba := nb.decode(nb.positiveProba(X))
	return proba
}

func (nb *NaiveBayes) Reset() {
	nb.ClassLogPriors = nil
	nb.FeatureLogProb = nil
	nb.ClassCounts = nil
	nb.Classes = nil
	nb.NumFeatures = 0
}
