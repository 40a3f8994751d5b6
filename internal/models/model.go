package models

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"vulnclassifier/internal/sparse"
)

var (
	ErrNotBinary       = eris.New("binary classifier requires exactly two classes")
	ErrNegativeFeature = eris.New("features must be non-negative")
	ErrEmptyTraining   = eris.New("training set is empty")
)

// Model is a binary classifier over sparse feature rows. PredictProba
// columns follow GetClasses.
type Model interface {
	Fit(X *sparse.Matrix, y []int) error
	Predict(X *sparse.Matrix) []int
	PredictProba(X *sparse.Matrix) [][]float64
	GetType() string
	GetName() string
	GetParams() map[string]any
	GetClasses() []int
	Reset()
}

type BaseModel struct {
	Name        string
	Params      map[string]any
	Classes     []int
	NumFeatures int
}

func (bm *BaseModel) GetType() string {
	return bm.Name
}

func (bm *BaseModel) GetName() string {
	return bm.Name
}

func (bm *BaseModel) GetParams() map[string]any {
	return bm.Params
}

func (bm *BaseModel) GetClasses() []int {
	return bm.Classes
}

// prepareBinary validates the training input, records the classes and
// returns y recoded as 0 (first class) / 1 (second class).
func (bm *BaseModel) prepareBinary(X *sparse.Matrix, y []int, nonNegative bool) ([]int, error) {
	if X.NumRows() == 0 {
		return nil, ErrEmptyTraining
	}
	if X.NumRows() != len(y) {
		return nil, eris.Errorf("%s: %d rows but %d labels", bm.Name, X.NumRows(), len(y))
	}
	if nonNegative && X.MinValue() < 0 {
		return nil, eris.Wrap(ErrNegativeFeature, bm.Name)
	}

	classes := ExtractClasses(y)
	if len(classes) != 2 {
		return nil, eris.Wrapf(ErrNotBinary, "%s: found %d class(es)", bm.Name, len(classes))
	}

	bm.Classes = classes
	bm.NumFeatures = X.NumCols

	encoded := make([]int, len(y))
	for i, label := range y {
		if label == classes[1] {
			encoded[i] = 1
		}
	}
	return encoded, nil
}

// decode maps the positive-class probability to class labels and a
// probability table.
func (bm *BaseModel) decode(p []float64) ([]int, [][]float64) {
	labels := make([]int, len(p))
	proba := make([][]float64, len(p))
	for i, pi := range p {
		proba[i] = []float64{1 - pi, pi}
		if pi > 0.5 {
			labels[i] = bm.Classes[1]
		} else {
			labels[i] = bm.Classes[0]
		}
	}
	return labels, proba
}

// ExtractClasses returns the distinct labels in ascending order.
func ExtractClasses(y []int) []int {
	classMap := make(map[int]bool)
	for _, label := range y {
		classMap[label] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	return classes
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
