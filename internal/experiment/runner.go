package experiment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vulnclassifier/internal/data"
	"vulnclassifier/internal/evaluation"
	"vulnclassifier/internal/jobs"
	"vulnclassifier/internal/models"
	"vulnclassifier/internal/persistence"
	"vulnclassifier/internal/plot"
	"vulnclassifier/internal/preprocessing"
	"vulnclassifier/internal/sparse"
)

const (
	VectorizerFile = "vectorizer.gob"
	ManifestFile   = "manifest.yaml"
	ComparisonCSV  = "model_comparison.csv"
	ComparisonXLSX = "model_comparison.xlsx"
)

type Options struct {
	DataPath   string
	Columns    data.Columns
	TestSize   float64
	Seed       int64
	CVFolds    int // 0 disables cross-validation on the training split
	Vectorizer preprocessing.VectorizerConfig
	ModelsDir  string
	DocsDir    string
}

func DefaultOptions() Options {
	return Options{
		DataPath:   "data/balanced_merged_dataset.csv",
		Columns:    data.DefaultColumns(),
		TestSize:   0.2,
		Seed:       42,
		Vectorizer: preprocessing.DefaultVectorizerConfig(),
		ModelsDir:  "models",
		DocsDir:    "docs",
	}
}

// Result is the evaluation of one bank entry on the test set.
type Result struct {
	Name          string
	Description   string
	Accuracy      float64
	Precision     float64
	Recall        float64
	F1            float64
	TrainingTime  time.Duration
	Predictions   []int
	Probabilities [][]float64
	Metrics       *evaluation.ClassificationMetrics
	CV            *evaluation.CVResult
	ModelPath     string
	PlotPath      string
}

// RunSummary describes a completed run.
type RunSummary struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Dataset        string
	TotalSamples   int
	TrainSamples   int
	TestSamples    int
	NumFeatures    int
	VectorizerPath string
	ComparisonCSV  string
	ComparisonXLSX string
	ManifestPath   string
	Results        []Result
	Comparison     *Comparison
}

// Runner trains and evaluates every bank model on one stratified split.
type Runner struct {
	opts    Options
	console *Console
	jobs    *jobs.Manager
	bank    func() ([]models.ModelSpec, error)
	logger  *zap.Logger
}

func NewRunner(opts Options, out io.Writer) *Runner {
	return &Runner{
		opts:    opts,
		console: NewConsole(out),
		jobs:    jobs.NewManager(),
		bank:    models.ModelBank,
		logger:  zap.L().With(zap.String("component", "experiment")),
	}
}

// WithBank replaces the model bank, mainly for tests.
func (r *Runner) WithBank(bank func() ([]models.ModelSpec, error)) *Runner {
	r.bank = bank
	return r
}

func (r *Runner) Jobs() *jobs.Manager {
	return r.jobs
}

// Slug lower-cases a model name and replaces spaces with underscores.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Dataset:   r.opts.DataPath,
	}
	logger := r.logger.With(zap.String("run.id", summary.ID))

	for _, dir := range []string{r.opts.ModelsDir, r.opts.DocsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "experiment: create %s", dir)
		}
	}

	r.console.Section("VULNERABILITY CLASSIFIER - MODEL TRAINING")

	ds, err := r.loadDataset()
	if err != nil {
		return nil, err
	}
	summary.TotalSamples = ds.Len()
	logger.Info("dataset loaded", zap.String("data.path", r.opts.DataPath), zap.Int("data.samples", ds.Len()))

	XTrainText, XTestText, yTrain, yTest, err := r.split(ds)
	if err != nil {
		return nil, err
	}
	summary.TrainSamples = len(yTrain)
	summary.TestSamples = len(yTest)

	XTrain, XTest, err := r.vectorize(XTrainText, XTestText, summary)
	if err != nil {
		return nil, err
	}
	if err := data.NewDataValidator().ValidateTrainTestSplit(XTrain, XTest, yTrain, yTest); err != nil {
		return nil, eris.Wrap(err, "experiment: validate split")
	}
	summary.NumFeatures = XTrain.NumCols
	logger.Info("features extracted", zap.Int("data.features", XTrain.NumCols), zap.Int("data.nnz", XTrain.NNZ()))

	bank, err := r.bank()
	if err != nil {
		return nil, eris.Wrap(err, "experiment: build model bank")
	}
	r.printBank(bank)

	specJobs := make([]*jobs.Job, len(bank))
	for i, spec := range bank {
		specJobs[i] = r.jobs.CreateJob("train", spec.Name)
	}

	r.console.Section("TRAINING MODELS")
	for i, spec := range bank {
		if err := ctx.Err(); err != nil {
			specJobs[i].SetError(err)
			return nil, eris.Wrap(err, "experiment: run cancelled")
		}

		result, err := r.trainAndEvaluate(spec, specJobs[i], XTrain, yTrain, XTest, yTest, summary)
		if err != nil {
			specJobs[i].SetError(err)
			logger.Error("model failed", zap.String("model.name", spec.Name), zap.Error(err))
			return nil, err
		}
		summary.Results = append(summary.Results, *result)
	}

	summary.Comparison = NewComparison(summary.Results)
	if err := r.writeComparison(summary); err != nil {
		return nil, err
	}
	summary.FinishedAt = time.Now()

	summary.ManifestPath = filepath.Join(r.opts.ModelsDir, ManifestFile)
	if err := WriteManifest(summary.ManifestPath, summary, r.jobs.Summaries()); err != nil {
		return nil, err
	}

	r.printArtifacts(summary)
	logger.Info("run complete",
		zap.String("best", summary.Comparison.Best().Model),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return summary, nil
}

func (r *Runner) loadDataset() (*data.Dataset, error) {
	r.console.Step("📂 Loading dataset...")

	ds, err := data.LoadDataset(r.opts.DataPath, r.opts.Columns)
	if err != nil {
		return nil, eris.Wrap(err, "experiment: load dataset")
	}
	if err := data.NewDataValidator().ValidateDataset(ds); err != nil {
		return nil, eris.Wrap(err, "experiment: validate dataset")
	}

	stats := ds.Stats()
	r.console.Done("Total samples: %s", Thousands(stats.Total))
	r.console.Printf("  Vulnerable: %s\n", Thousands(stats.Vulnerable))
	r.console.Printf("  Safe: %s\n", Thousands(stats.Safe))

	if len(stats.Groups) > 0 {
		r.console.Step("📊 Dataset sources:")
		for _, g := range stats.Groups {
			r.console.Printf("  %s: %s samples (%s vuln, %s safe)\n", g.Name,
				Thousands(g.Count), Thousands(g.Vulnerable), Thousands(g.Safe))
		}
	}

	return ds, nil
}

func (r *Runner) split(ds *data.Dataset) ([]string, []string, []int, []int, error) {
	r.console.Step("✂️  Splitting data...")

	splitter := evaluation.NewTrainTestSplitter(r.opts.TestSize, r.opts.Seed, true)
	XTrain, XTest, yTrain, yTest, err := splitter.StratifiedSplitTexts(ds.Texts, ds.Labels)
	if err != nil {
		return nil, nil, nil, nil, eris.Wrap(err, "experiment: split")
	}

	r.console.Printf("  Training samples: %s\n", Thousands(len(XTrain)))
	r.console.Printf("  Testing samples: %s\n", Thousands(len(XTest)))
	return XTrain, XTest, yTrain, yTest, nil
}

func (r *Runner) vectorize(trainDocs, testDocs []string, summary *RunSummary) (*sparse.Matrix, *sparse.Matrix, error) {
	r.console.Step("🔤 Vectorizing code samples...")

	vectorizer := preprocessing.NewTfidfVectorizer(r.opts.Vectorizer)
	XTrain, err := vectorizer.FitTransform(trainDocs)
	if err != nil {
		return nil, nil, eris.Wrap(err, "experiment: fit vectorizer")
	}
	XTest, err := vectorizer.Transform(testDocs)
	if err != nil {
		return nil, nil, eris.Wrap(err, "experiment: transform test set")
	}

	r.console.Done("Vectorization complete")
	r.console.Printf("  Feature dimensions: %s\n", Thousands(vectorizer.NumFeatures()))

	summary.VectorizerPath = filepath.Join(r.opts.ModelsDir, VectorizerFile)
	if err := vectorizer.Save(summary.VectorizerPath); err != nil {
		return nil, nil, eris.Wrap(err, "experiment: save vectorizer")
	}
	r.console.Done("Vectorizer saved to %s", summary.VectorizerPath)

	return XTrain, XTest, nil
}

func (r *Runner) printBank(bank []models.ModelSpec) {
	r.console.Section("DEFINING MODELS")
	r.console.Printf("\n")
	r.console.Done("%d models defined:", len(bank))
	for _, spec := range bank {
		r.console.Printf("  • %s: %s\n", spec.Name, spec.Description)
	}
}

func (r *Runner) trainAndEvaluate(spec models.ModelSpec, job *jobs.Job, XTrain *sparse.Matrix, yTrain []int,
	XTest *sparse.Matrix, yTest []int, summary *RunSummary) (*Result, error) {
	logger := r.logger.With(zap.String("model.name", spec.Name))
	slug := Slug(spec.Name)

	if err := job.Start(); err != nil {
		return nil, err
	}

	rule := strings.Repeat("=", ruleWidth)
	r.console.Printf("\n%s\n🤖 Training: %s\n%s\n", rule, spec.Name, rule)
	r.console.Printf("Description: %s\n", spec.Description)

	r.console.Printf("\n⏱️  Training started...\n")
	start := time.Now()
	if err := spec.Model.Fit(XTrain, yTrain); err != nil {
		return nil, eris.Wrapf(err, "experiment: fit %s", spec.Name)
	}
	trainingTime := time.Since(start)
	r.console.Done("Training completed in %.2f seconds", trainingTime.Seconds())
	job.AddLog("fit completed in " + trainingTime.String())
	job.SetProgress(0.5)
	logger.Debug("model fitted", zap.Duration("training_time", trainingTime))

	r.console.Printf("🔍 Evaluating on test set...\n")
	yPred := spec.Model.Predict(XTest)
	proba := spec.Model.PredictProba(XTest)

	classes := []int{preprocessing.LabelSafe, preprocessing.LabelVulnerable}
	metrics, err := evaluation.CalculateMetrics(yTest, yPred, classes)
	if err != nil {
		return nil, eris.Wrapf(err, "experiment: score %s", spec.Name)
	}
	job.AddLog("evaluated on test set")
	job.SetProgress(0.75)

	var cvResult *evaluation.CVResult
	if r.opts.CVFolds >= 2 && spec.Key != "" {
		cvResult, err = r.crossValidate(spec, XTrain, yTrain)
		if err != nil {
			return nil, err
		}
		job.AddLog(fmt.Sprintf("%d-fold cv accuracy %.4f", r.opts.CVFolds, cvResult.Mean))
	}

	targetNames := preprocessing.NewBinaryLabelEncoder().ClassNames()
	r.console.Printf("\n📊 Results:\n%s", metrics.FormatMetrics())
	r.console.SubSection("Classification Report:")
	r.console.Printf("%s", metrics.FormatReport(targetNames, 4))
	r.console.SubSection("Confusion Matrix:")
	r.console.Printf("%s", metrics.FormatConfusionMatrix())

	plotPath := filepath.Join(r.opts.DocsDir, "confusion_matrix_"+slug+".png")
	if err := plot.ConfusionMatrix(metrics.ConfusionMatrix, targetNames, "Confusion Matrix - "+spec.Name, plotPath); err != nil {
		return nil, eris.Wrapf(err, "experiment: plot %s", spec.Name)
	}
	r.console.Done("Confusion matrix saved to %s", plotPath)

	modelPath := filepath.Join(r.opts.ModelsDir, "model_"+slug+".gob")
	bundle := persistence.NewModelBundle(spec.Model, spec.Name)
	bundle.Metadata.Description = spec.Description
	bundle.Metadata.RunID = summary.ID
	bundle.Metadata.Dataset = summary.Dataset
	bundle.Metadata.Vectorizer = summary.VectorizerPath
	bundle.Metadata.NumFeatures = XTrain.NumCols
	bundle.Metadata.Accuracy = metrics.Accuracy
	bundle.Metadata.Precision = metrics.Precision
	bundle.Metadata.Recall = metrics.Recall
	bundle.Metadata.F1Score = metrics.F1Score
	bundle.Metadata.TrainingTime = trainingTime
	if err := bundle.Save(modelPath); err != nil {
		return nil, eris.Wrapf(err, "experiment: save %s", spec.Name)
	}
	r.console.Done("Model saved to %s", modelPath)

	job.SetResult(modelPath)
	job.SetStatus(jobs.JobCompleted)
	logger.Info("model evaluated",
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1Score),
		zap.Duration("training_time", trainingTime),
	)

	return &Result{
		Name:          spec.Name,
		Description:   spec.Description,
		Accuracy:      metrics.Accuracy,
		Precision:     metrics.Precision,
		Recall:        metrics.Recall,
		F1:            metrics.F1Score,
		TrainingTime:  trainingTime,
		Predictions:   yPred,
		Probabilities: proba,
		Metrics:       metrics,
		CV:            cvResult,
		ModelPath:     modelPath,
		PlotPath:      plotPath,
	}, nil
}

// crossValidate scores fresh copies of the bank entry on folds of the
// training split. The test split is never touched.
func (r *Runner) crossValidate(spec models.ModelSpec, XTrain *sparse.Matrix, yTrain []int) (*evaluation.CVResult, error) {
	r.console.Printf("🔁 Cross-validating (%d folds)...\n", r.opts.CVFolds)

	cv := evaluation.NewCrossValidator(r.opts.CVFolds, r.opts.Seed)
	res, err := cv.CrossValidate(XTrain, yTrain, func() (models.Model, error) {
		return models.CreateModel(models.DefaultConfig(spec.Key))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "experiment: cross-validate %s", spec.Name)
	}

	r.console.Printf("  CV accuracy: %.4f (+/- %.4f)\n", res.Mean, res.Std)
	return res, nil
}

func (r *Runner) writeComparison(summary *RunSummary) error {
	summary.Comparison.Print(r.console)

	summary.ComparisonCSV = filepath.Join(r.opts.DocsDir, ComparisonCSV)
	if err := summary.Comparison.WriteCSV(summary.ComparisonCSV); err != nil {
		return err
	}
	summary.ComparisonXLSX = filepath.Join(r.opts.DocsDir, ComparisonXLSX)
	if err := summary.Comparison.WriteXLSX(summary.ComparisonXLSX); err != nil {
		return err
	}
	r.console.Printf("\n")
	r.console.Done("Comparison results saved to %s", summary.ComparisonCSV)
	return nil
}

func (r *Runner) printArtifacts(summary *RunSummary) {
	r.console.Section("✅ TRAINING COMPLETE!")

	r.console.Printf("\n📁 Models saved in '%s' directory:\n", r.opts.ModelsDir)
	for _, res := range summary.Results {
		r.console.Printf("  ✓ %s\n", filepath.Base(res.ModelPath))
	}
	r.console.Printf("  ✓ %s\n", VectorizerFile)
	r.console.Printf("  ✓ %s\n", ManifestFile)

	r.console.Printf("\nComparison results saved in '%s' directory:\n", r.opts.DocsDir)
	r.console.Printf("  ✓ %s\n", ComparisonCSV)
	r.console.Printf("  ✓ %s\n", ComparisonXLSX)
}
