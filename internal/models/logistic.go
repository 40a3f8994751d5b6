package models

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"vulnclassifier/internal/sparse"
)

// LogisticRegression minimises 0.5*||w||^2 + C * sum(logloss) with L-BFGS.
// The intercept is not penalised.
type LogisticRegression struct {
	BaseModel
	C         float64
	MaxIter   int
	Tolerance float64
	Seed      int64
	Weights   []float64
	Intercept float64
	NIter     int
}

func NewLogisticRegression(c float64, maxIter int, seed int64) *LogisticRegression {
	return &LogisticRegression{
		C:         c,
		MaxIter:   maxIter,
		Tolerance: 1e-4,
		Seed:      seed,
		BaseModel: BaseModel{
			Name: "LogisticRegression",
			Params: map[string]any{
				"penalty":      "l2",
				"C":            c,
				"max_iter":     maxIter,
				"solver":       "lbfgs",
				"random_state": seed,
			},
		},
	}
}

// softplus is log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func (lr *LogisticRegression) Fit(X *sparse.Matrix, y []int) error {
	encoded, err := lr.prepareBinary(X, y, false)
	if err != nil {
		return err
	}

	d := X.NumCols
	margins := func(x []float64) []float64 {
		w, b := x[:d], x[d]
		z := make([]float64, len(X.Rows))
		for i, row := range X.Rows {
			z[i] = row.Dot(w) + b
		}
		return z
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			f := 0.0
			for _, wj := range x[:d] {
				f += 0.5 * wj * wj
			}
			loss := 0.0
			for i, z := range margins(x) {
				if encoded[i] == 1 {
					loss += softplus(-z)
				} else {
					loss += softplus(z)
				}
			}
			return f + lr.C*loss
		},
		Grad: func(grad, x []float64) {
			copy(grad[:d], x[:d])
			grad[d] = 0
			for i, z := range margins(x) {
				r := lr.C * (sigmoid(z) - float64(encoded[i]))
				row := X.Rows[i]
				for k, j := range row.Indices {
					grad[j] += r * row.Values[k]
				}
				grad[d] += r
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   lr.MaxIter,
		GradientThreshold: lr.Tolerance,
	}

	result, err := optimize.Minimize(problem, make([]float64, d+1), settings, &optimize.LBFGS{})
	if result == nil {
		return eris.Wrap(err, "logistic regression: optimize")
	}
	if err != nil {
		zap.L().Warn("logistic regression did not converge",
			zap.String("status", result.Status.String()),
			zap.Error(err),
		)
	}

	lr.Weights = append([]float64(nil), result.X[:d]...)
	lr.Intercept = result.X[d]
	lr.NIter = result.Stats.MajorIterations

	return nil
}

func (lr *LogisticRegression) DecisionFunction(X *sparse.Matrix) []float64 {
	z := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		z[i] = row.Dot(lr.Weights) + lr.Intercept
	}
	return z
}

func (lr *LogisticRegression) positiveProba(X *sparse.Matrix) []float64 {
	p := lr.DecisionFunction(X)
	for i, z := range p {
		p[i] = sigmoid(z)
	}
	return p
}

func (lr *LogisticRegression) Predict(X *sparse.Matrix) []int {
	labels, _ := lr.decode(lr.positiveProba(X))
	return labels
}

func (lr *LogisticRegression) PredictProba(X *sparse.Matrix) [][]float64 {
	_, proba := lr.decode(lr.positiveProba(X))
	return proba
}

func (lr *LogisticRegression) Reset() {
	lr.Weights = nil
	lr.Intercept = 0
	lr.NIter = 0
	lr.Classes = nil
	lr.NumFeatures = 0
}
