package experiment

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"vulnclassifier/internal/data"
	"vulnclassifier/internal/persistence"
	"vulnclassifier/internal/preprocessing"
)

var scoreHeader = []string{"id", "prediction", "label", "probability_vulnerable"}

// Scorer labels new snippets with a persisted vectorizer and model bundle.
type Scorer struct {
	Vectorizer *preprocessing.TfidfVectorizer
	Bundle     *persistence.ModelBundle
	logger     *zap.Logger
}

// LoadScorer reads vectorizer.gob and model_<slug>.gob from modelsDir.
// model may be a display name or a slug.
func LoadScorer(modelsDir, model string) (*Scorer, error) {
	vectorizer, err := preprocessing.LoadTfidfVectorizer(filepath.Join(modelsDir, VectorizerFile))
	if err != nil {
		return nil, eris.Wrap(err, "score: load vectorizer")
	}

	bundle, err := persistence.LoadModelBundle(filepath.Join(modelsDir, "model_"+Slug(model)+".gob"))
	if err != nil {
		return nil, eris.Wrapf(err, "score: load model %s", model)
	}
	if bundle.Metadata.NumFeatures != 0 && bundle.Metadata.NumFeatures != vectorizer.NumFeatures() {
		return nil, eris.Errorf("score: model expects %d features but vectorizer has %d",
			bundle.Metadata.NumFeatures, vectorizer.NumFeatures())
	}

	return &Scorer{
		Vectorizer: vectorizer,
		Bundle:     bundle,
		logger:     zap.L().With(zap.String("component", "score"), zap.String("model.name", bundle.Metadata.ModelName)),
	}, nil
}

// ScoreFile streams the input table in batches and writes one CSV row per
// snippet. It returns the number of rows scored.
func (s *Scorer) ScoreFile(input, textColumn, idColumn string, batchSize int, w io.Writer) (int, error) {
	reader, err := data.NewStreamingReader(input, textColumn, idColumn, batchSize)
	if err != nil {
		return 0, eris.Wrap(err, "score: open input")
	}
	defer reader.Close()

	out := csv.NewWriter(w)
	if err := out.Write(scoreHeader); err != nil {
		return 0, eris.Wrap(err, "score: write header")
	}

	names := s.Bundle.LabelEncoder
	if names == nil {
		names = preprocessing.NewBinaryLabelEncoder()
	}

	processor := data.NewBatchProcessor(reader)
	s.logger.Debug("scoring input", zap.String("input", input), zap.Int("batch.size", processor.GetBatchSize()))
	total, err := processor.ProcessBatches(func(batch *data.SnippetBatch) error {
		X, err := s.Vectorizer.Transform(batch.Texts)
		if err != nil {
			return err
		}
		pred := s.Bundle.Model.Predict(X)
		proba := s.Bundle.Model.PredictProba(X)
		labels, err := names.InverseTransform(pred)
		if err != nil {
			return err
		}

		for i := range pred {
			record := []string{
				batch.IDs[i],
				strconv.Itoa(pred[i]),
				labels[i],
				strconv.FormatFloat(proba[i][1], 'f', 6, 64),
			}
			if err := out.Write(record); err != nil {
				return err
			}
		}
		s.logger.Debug("batch scored", zap.Int("batch.rows", batch.Size))
		return nil
	})
	if err != nil {
		return total, eris.Wrap(err, "score: process batches")
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return total, eris.Wrap(err, "score: flush output")
	}
	return total, nil
}
