package persistence

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"vulnclassifier/internal/models"
	"vulnclassifier/internal/preprocessing"
)

func init() {
	gob.Register(&models.LogisticRegression{})
	gob.Register(&models.RandomForest{})
	gob.Register(&models.GradientBoosting{})
	gob.Register(&models.XGBoost{})
	gob.Register(&models.LightGBM{})
	gob.Register(&models.NaiveBayes{})
}

// ModelBundle is the on-disk form of one fitted model. The vectorizer is
// stored once per run next to the bundles and referenced by path.
type ModelBundle struct {
	Model        models.Model
	LabelEncoder *preprocessing.LabelEncoder
	Metadata     BundleMetadata
	CreatedAt    time.Time
}

type BundleMetadata struct {
	ModelName    string
	ModelType    string
	Description  string
	RunID        string
	Dataset      string
	Vectorizer   string
	NumFeatures  int
	Accuracy     float64
	Precision    float64
	Recall       float64
	F1Score      float64
	TrainingTime time.Duration
	Classes      []string
	Parameters   map[string]any
}

func NewModelBundle(model models.Model, name string) *ModelBundle {
	return &ModelBundle{
		Model:        model,
		LabelEncoder: preprocessing.NewBinaryLabelEncoder(),
		CreatedAt:    time.Now(),
		Metadata: BundleMetadata{
			ModelName:  name,
			ModelType:  model.GetType(),
			Parameters: model.GetParams(),
			Classes:    preprocessing.NewBinaryLabelEncoder().ClassNames(),
		},
	}
}

func (mb *ModelBundle) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return eris.Wrapf(err, "persistence: create %s", filename)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(mb); err != nil {
		return eris.Wrapf(err, "persistence: encode bundle %s", mb.Metadata.ModelName)
	}

	return file.Sync()
}

func LoadModelBundle(filename string) (*ModelBundle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "persistence: open %s", filename)
	}
	defer file.Close()

	var bundle ModelBundle
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, eris.Wrapf(err, "persistence: decode %s", filename)
	}
	if bundle.Model == nil {
		return nil, eris.Errorf("persistence: %s holds no model", filename)
	}

	return &bundle, nil
}

// Describe writes a short human-readable summary of the bundle.
func (mb *ModelBundle) Describe(w io.Writer) {
	fmt.Fprintf(w, "Model: %s (%s)\n", mb.Metadata.ModelName, mb.Metadata.ModelType)
	if mb.Metadata.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", mb.Metadata.RunID)
	}
	fmt.Fprintf(w, "Dataset: %s\n", mb.Metadata.Dataset)
	fmt.Fprintf(w, "Created: %s\n", mb.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Features: %d\n", mb.Metadata.NumFeatures)
	fmt.Fprintf(w, "Accuracy: %.4f\n", mb.Metadata.Accuracy)
	fmt.Fprintf(w, "Precision: %.4f\n", mb.Metadata.Precision)
	fmt.Fprintf(w, "Recall: %.4f\n", mb.Metadata.Recall)
	fmt.Fprintf(w, "F1 Score: %.4f\n", mb.Metadata.F1Score)
	fmt.Fprintf(w, "Training Time: %v\n", mb.Metadata.TrainingTime)
}
