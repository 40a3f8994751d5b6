package experiment

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"vulnclassifier/internal/jobs"
)

// Manifest is the YAML record of a run written next to the model artifacts.
type Manifest struct {
	RunID      string          `yaml:"run_id"`
	StartedAt  time.Time       `yaml:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at"`
	Dataset    DatasetInfo     `yaml:"dataset"`
	Vectorizer string          `yaml:"vectorizer"`
	Models     []ModelManifest `yaml:"models"`
	Comparison ComparisonInfo  `yaml:"comparison"`
	Jobs       []jobs.Summary  `yaml:"jobs"`
}

type DatasetInfo struct {
	Path     string `yaml:"path"`
	Samples  int    `yaml:"samples"`
	Train    int    `yaml:"train"`
	Test     int    `yaml:"test"`
	Features int    `yaml:"features"`
}

type ModelManifest struct {
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	Artifact        string  `yaml:"artifact"`
	ConfusionMatrix string  `yaml:"confusion_matrix"`
	Accuracy        float64 `yaml:"accuracy"`
	Precision       float64 `yaml:"precision"`
	Recall          float64 `yaml:"recall"`
	F1              float64 `yaml:"f1_score"`
	TrainingSeconds float64 `yaml:"training_seconds"`
	CVMean          float64 `yaml:"cv_mean,omitempty"`
	CVStd           float64 `yaml:"cv_std,omitempty"`
	Counts          [][]int `yaml:"counts,flow"`
}

type ComparisonInfo struct {
	CSV     string          `yaml:"csv"`
	XLSX    string          `yaml:"xlsx"`
	Best    string          `yaml:"best"`
	Fastest string          `yaml:"fastest"`
	Rows    []ComparisonRow `yaml:"rows"`
}

func NewManifest(summary *RunSummary, jobSummaries []jobs.Summary) *Manifest {
	m := &Manifest{
		RunID:      summary.ID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Dataset: DatasetInfo{
			Path:     summary.Dataset,
			Samples:  summary.TotalSamples,
			Train:    summary.TrainSamples,
			Test:     summary.TestSamples,
			Features: summary.NumFeatures,
		},
		Vectorizer: summary.VectorizerPath,
		Jobs:       jobSummaries,
	}

	for _, res := range summary.Results {
		mm := ModelManifest{
			Name:            res.Name,
			Description:     res.Description,
			Artifact:        res.ModelPath,
			ConfusionMatrix: res.PlotPath,
			Accuracy:        res.Accuracy,
			Precision:       res.Precision,
			Recall:          res.Recall,
			F1:              res.F1,
			TrainingSeconds: res.TrainingTime.Seconds(),
		}
		if res.Metrics != nil {
			mm.Counts = res.Metrics.ConfusionMatrix
		}
		if res.CV != nil {
			mm.CVMean, mm.CVStd = res.CV.Mean, res.CV.Std
		}
		m.Models = append(m.Models, mm)
	}

	if summary.Comparison != nil {
		m.Comparison = ComparisonInfo{
			CSV:     summary.ComparisonCSV,
			XLSX:    summary.ComparisonXLSX,
			Best:    summary.Comparison.Best().Model,
			Fastest: summary.Comparison.Fastest().Model,
			Rows:    summary.Comparison.Rows,
		}
	}

	return m
}

func WriteManifest(filename string, summary *RunSummary, jobSummaries []jobs.Summary) error {
	out, err := yaml.Marshal(NewManifest(summary, jobSummaries))
	if err != nil {
		return eris.Wrap(err, "manifest: marshal")
	}
	if err := os.WriteFile(filename, out, 0o644); err != nil {
		return eris.Wrapf(err, "manifest: write %s", filename)
	}
	return nil
}

func ReadManifest(filename string) (*Manifest, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", filename)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", filename)
	}
	return &m, nil
}
