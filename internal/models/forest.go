package models

import (
	"math"
	"math/rand"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"vulnclassifier/internal/sparse"
)

// RandomForest averages the positive-class fractions of bootstrapped Gini
// trees that each consider sqrt(n_features) candidates per split.
type RandomForest struct {
	BaseModel
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Seed            int64
	MaxWorkers      int
	Trees           []*TreeNode
}

func NewRandomForest(nTrees, maxDepth, minSamplesSplit, minSamplesLeaf int, seed int64) *RandomForest {
	return &RandomForest{
		NTrees:          nTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
		Seed:            seed,
		MaxWorkers:      runtime.NumCPU(),
		BaseModel: BaseModel{
			Name: "RandomForest",
			Params: map[string]any{
				"n_estimators":      nTrees,
				"max_depth":         maxDepth,
				"min_samples_split": minSamplesSplit,
				"min_samples_leaf":  minSamplesLeaf,
				"max_features":      "sqrt",
				"random_state":      seed,
				"n_jobs":            -1,
			},
		},
	}
}

func (rf *RandomForest) Fit(X *sparse.Matrix, y []int) error {
	encoded, err := rf.prepareBinary(X, y, true)
	if err != nil {
		return err
	}

	rf.MaxFeatures = int(math.Sqrt(float64(X.NumCols)))
	if rf.MaxFeatures < 1 {
		rf.MaxFeatures = 1
	}

	data := newBinnedData(X, 256)
	target := make([]float64, len(encoded))
	weight := make([]float64, len(encoded))
	for i, label := range encoded {
		target[i] = float64(label)
		weight[i] = 1
	}

	rf.Trees = make([]*TreeNode, rf.NTrees)

	workers := rf.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < rf.NTrees; i++ {
		i := i
		g.Go(func() error {
			tree, err := rf.trainSingleTree(data, target, weight, rf.Seed+int64(i))
			if err != nil {
				return eris.Wrapf(err, "random forest: tree %d", i)
			}
			rf.Trees[i] = tree
			return nil
		})
	}

	return g.Wait()
}

func (rf *RandomForest) trainSingleTree(data *binnedData, target, weight []float64, seed int64) (*TreeNode, error) {
	r := rand.New(rand.NewSource(seed))

	grower := newTreeGrower(growerConfig{
		criterion:       giniCriterion{},
		maxDepth:        rf.MaxDepth,
		minSamplesSplit: rf.MinSamplesSplit,
		minSamplesLeaf:  rf.MinSamplesLeaf,
		minGain:         1e-12,
		nodeFeatures:    rf.MaxFeatures,
	}, data, target, weight, nil, r)

	rows := sampleRows(len(target), 1, true, r)
	tree := grower.grow(rows)
	if tree == nil {
		return nil, eris.New("grower returned no tree")
	}
	return tree, nil
}

func (rf *RandomForest) positiveProba(X *sparse.Matrix) []float64 {
	p := make([]float64, X.NumRows())
	if len(rf.Trees) == 0 {
		return p
	}
	for i, row := range X.Rows {
		sum := 0.0
		for _, tree := range rf.Trees {
			sum += tree.predict(row)
		}
		p[i] = sum / float64(len(rf.Trees))
	}
	return p
}

func (rf *RandomForest) Predict(X *sparse.Matrix) []int {
	labels, _ := rf.decode(rf.positiveProba(X))
	return labels
}

func (rf *RandomForest) PredictProba(X *sparse.Matrix) [][]float64 {
	_, proba := rf.decode(rf.positiveProba(X))
	return proba
}

func (rf *RandomForest) Reset() {
	rf.Trees = nil
	rf.Classes = nil
	rf.NumFeatures = 0
}
