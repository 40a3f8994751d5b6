package models

import (
	"github.com/rotisserie/eris"
)

type ModelConfig struct {
	Algorithm       string
	C               float64
	MaxIter         int
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	LearningRate    float64
	Subsample       float64
	ColsampleByTree float64
	NumLeaves       int
	Alpha           float64
	FitPrior        bool
	Seed            int64
}

func CreateModel(config ModelConfig) (Model, error) {
	defaults := DefaultConfig(config.Algorithm)

	switch config.Algorithm {
	case "logistic":
		if config.C <= 0 {
			config.C = defaults.C
		}
		if config.MaxIter <= 0 {
			config.MaxIter = defaults.MaxIter
		}
		return NewLogisticRegression(config.C, config.MaxIter, config.Seed), nil

	case "forest":
		if config.NEstimators <= 0 {
			config.NEstimators = defaults.NEstimators
		}
		if config.MaxDepth <= 0 {
			config.MaxDepth = defaults.MaxDepth
		}
		if config.MinSamplesSplit <= 0 {
			config.MinSamplesSplit = defaults.MinSamplesSplit
		}
		if config.MinSamplesLeaf <= 0 {
			config.MinSamplesLeaf = defaults.MinSamplesLeaf
		}
		return NewRandomForest(config.NEstimators, config.MaxDepth, config.MinSamplesSplit, config.MinSamplesLeaf, config.Seed), nil

	case "gboost":
		fillBoosting(&config, defaults)
		if config.MinSamplesSplit <= 0 {
			config.MinSamplesSplit = defaults.MinSamplesSplit
		}
		if config.MinSamplesLeaf <= 0 {
			config.MinSamplesLeaf = defaults.MinSamplesLeaf
		}
		return NewGradientBoosting(config.NEstimators, config.LearningRate, config.MaxDepth,
			config.Subsample, config.MinSamplesSplit, config.MinSamplesLeaf, config.Seed), nil

	case "xgboost":
		fillBoosting(&config, defaults)
		return NewXGBoost(config.NEstimators, config.MaxDepth, config.LearningRate,
			config.Subsample, config.ColsampleByTree, config.Seed), nil

	case "lightgbm":
		fillBoosting(&config, defaults)
		if config.NumLeaves <= 1 {
			config.NumLeaves = defaults.NumLeaves
		}
		return NewLightGBM(config.NEstimators, config.MaxDepth, config.LearningRate,
			config.NumLeaves, config.Subsample, config.ColsampleByTree, config.Seed), nil

	case "bayes":
		if config.Alpha <= 0 {
			config.Alpha = defaults.Alpha
		}
		return NewNaiveBayes(config.Alpha, config.FitPrior), nil

	default:
		return nil, eris.Errorf("models: unknown algorithm %q", config.Algorithm)
	}
}

func fillBoosting(config *ModelConfig, defaults ModelConfig) {
	if config.NEstimators <= 0 {
		config.NEstimators = defaults.NEstimators
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaults.MaxDepth
	}
	if config.LearningRate <= 0 {
		config.LearningRate = defaults.LearningRate
	}
	if config.Subsample <= 0 || config.Subsample > 1 {
		config.Subsample = defaults.Subsample
	}
	if config.ColsampleByTree <= 0 || config.ColsampleByTree > 1 {
		config.ColsampleByTree = defaults.ColsampleByTree
	}
}

func DefaultConfig(algorithm string) ModelConfig {
	config := ModelConfig{Algorithm: algorithm, Seed: 42}

	switch algorithm {
	case "logistic":
		config.C = 1.0
		config.MaxIter = 1000
	case "forest":
		config.NEstimators = 100
		config.MaxDepth = 20
		config.MinSamplesSplit = 5
		config.MinSamplesLeaf = 2
	case "gboost":
		config.NEstimators = 100
		config.LearningRate = 0.1
		config.MaxDepth = 5
		config.Subsample = 0.8
		config.MinSamplesSplit = 5
		config.MinSamplesLeaf = 2
	case "xgboost":
		config.NEstimators = 100
		config.MaxDepth = 6
		config.LearningRate = 0.1
		config.Subsample = 0.8
		config.ColsampleByTree = 0.8
	case "lightgbm":
		config.NEstimators = 100
		config.MaxDepth = 6
		config.LearningRate = 0.1
		config.NumLeaves = 31
		config.Subsample = 0.8
		config.ColsampleByTree = 0.8
	case "bayes":
		config.Alpha = 1.0
		config.FitPrior = true
	}

	return config
}

// ModelSpec is one entry of the comparison bank.
type ModelSpec struct {
	Key         string
	Name        string
	Description string
	Model       Model
}

var bank = []struct {
	key, name, description string
}{
	{"logistic", "Logistic Regression", "Linear classifier with L2 regularization"},
	{"forest", "Random Forest", "Ensemble of 100 decision trees"},
	{"gboost", "Gradient Boosting", "Sequential boosting with decision trees"},
	{"xgboost", "XGBoost", "Optimized gradient boosting (XGBoost)"},
	{"lightgbm", "LightGBM", "Fast gradient boosting (LightGBM)"},
	{"bayes", "Naive Bayes", "Probabilistic classifier with Laplace smoothing"},
}

// ModelBank returns freshly constructed, unfitted models in comparison order.
func ModelBank() ([]ModelSpec, error) {
	specs := make([]ModelSpec, 0, len(bank))
	for _, entry := range bank {
		model, err := CreateModel(DefaultConfig(entry.key))
		if err != nil {
			return nil, err
		}
		specs = append(specs, ModelSpec{
			Key:         entry.key,
			Name:        entry.name,
			Description: entry.description,
			Model:       model,
		})
	}
	return specs, nil
}
