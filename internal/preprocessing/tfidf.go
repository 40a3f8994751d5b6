package preprocessing

import (
	"encoding/gob"
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"vulnclassifier/internal/sparse"
)

var (
	ErrNotFitted       = eris.New("vectorizer must be fitted before transform")
	ErrEmptyVocabulary = eris.New("after pruning, no terms remain; lower min_df or raise max_df")
)

type VectorizerConfig struct {
	MaxFeatures int
	NgramMin    int
	NgramMax    int
	MinDF       int
	MaxDF       float64
	SublinearTF bool
}

func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		MaxFeatures: 3000,
		NgramMin:    1,
		NgramMax:    2,
		MinDF:       2,
		MaxDF:       0.95,
		SublinearTF: true,
	}
}

// TfidfVectorizer learns an n-gram vocabulary with smoothed IDF weights and
// projects documents into L2-normalised TF-IDF rows.
type TfidfVectorizer struct {
	Config     VectorizerConfig
	Vocabulary map[string]int
	IDF        []float64
	IsFitted   bool
}

func NewTfidfVectorizer(config VectorizerConfig) *TfidfVectorizer {
	return &TfidfVectorizer{Config: config}
}

func (v *TfidfVectorizer) tokenizer() *Tokenizer {
	return NewTokenizer(v.Config.NgramMin, v.Config.NgramMax)
}

func (v *TfidfVectorizer) Fit(docs []string) error {
	if len(docs) == 0 {
		return eris.New("vectorizer: cannot fit on an empty corpus")
	}

	tok := v.tokenizer()
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)

	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, gram := range tok.Ngrams(doc) {
			totalFreq[gram]++
			if !seen[gram] {
				seen[gram] = true
				docFreq[gram]++
			}
		}
	}

	maxDocCount := len(docs)
	if v.Config.MaxDF > 0 && v.Config.MaxDF < 1 {
		maxDocCount = int(math.Floor(v.Config.MaxDF * float64(len(docs))))
	}
	minDocCount := v.Config.MinDF
	if minDocCount < 1 {
		minDocCount = 1
	}

	terms := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= minDocCount && df <= maxDocCount {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return ErrEmptyVocabulary
	}

	if v.Config.MaxFeatures > 0 && len(terms) > v.Config.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			ci, cj := totalFreq[terms[i]], totalFreq[terms[j]]
			if ci != cj {
				return ci > cj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.Config.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.Vocabulary = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	v.IsFitted = true

	return nil
}

func (v *TfidfVectorizer) Transform(docs []string) (*sparse.Matrix, error) {
	if !v.IsFitted {
		return nil, ErrNotFitted
	}

	tok := v.tokenizer()
	rows := make([]sparse.Vector, len(docs))

	for i, doc := range docs {
		counts := make(map[int]int)
		for _, gram := range tok.Ngrams(doc) {
			if col, ok := v.Vocabulary[gram]; ok {
				counts[col]++
			}
		}
		rows[i] = v.weigh(counts)
	}

	return sparse.NewMatrix(rows, len(v.IDF)), nil
}

func (v *TfidfVectorizer) weigh(counts map[int]int) sparse.Vector {
	indices := make([]int, 0, len(counts))
	for col := range counts {
		indices = append(indices, col)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	norm := 0.0
	for k, col := range indices {
		tf := float64(counts[col])
		if v.Config.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		values[k] = tf * v.IDF[col]
		norm += values[k] * values[k]
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range values {
			values[k] /= norm
		}
	}

	return sparse.Vector{Indices: indices, Values: values}
}

func (v *TfidfVectorizer) FitTransform(docs []string) (*sparse.Matrix, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

func (v *TfidfVectorizer) NumFeatures() int {
	return len(v.IDF)
}

// FeatureNames returns the vocabulary in column order.
func (v *TfidfVectorizer) FeatureNames() []string {
	names := make([]string, len(v.IDF))
	for term, col := range v.Vocabulary {
		names[col] = term
	}
	return names
}

func (v *TfidfVectorizer) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return eris.Wrapf(err, "vectorizer: create %s", filename)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return eris.Wrap(err, "vectorizer: encode")
	}
	return nil
}

func LoadTfidfVectorizer(filename string) (*TfidfVectorizer, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "vectorizer: open %s", filename)
	}
	defer file.Close()

	var v TfidfVectorizer
	if err := gob.NewDecoder(file).Decode(&v); err != nil {
		return nil, eris.Wrap(err, "vectorizer: decode")
	}
	return &v, nil
}
