package preprocessing

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trainDocs = []string{
	"strcpy(buf, input); return buf;",
	"strncpy(buf, input, sizeof(buf)); return buf;",
	"query = \"SELECT * FROM users WHERE id=\" + id",
	"stmt = db.prepare(\"SELECT * FROM users WHERE id=?\")",
	"eval(user_input)",
	"return buf;",
}

func TestTokenizerNgrams(t *testing.T) {
	tok := NewTokenizer(1, 2)

	assert.Equal(t, []string{"strcpy", "buf", "input"}, tok.Words("strcpy(BUF, input); x"))
	assert.Equal(t,
		[]string{"eval", "user_input", "eval user_input"},
		tok.Ngrams("Eval(user_input)"),
	)
	assert.Empty(t, tok.Ngrams("a b c"))
}

func TestFitVocabularyBounds(t *testing.T) {
	v := NewTfidfVectorizer(DefaultVectorizerConfig())
	require.NoError(t, v.Fit(trainDocs))

	// min_df=2 keeps only terms shared by at least two documents.
	assert.Contains(t, v.Vocabulary, "buf")
	assert.Contains(t, v.Vocabulary, "return buf")
	assert.Contains(t, v.Vocabulary, "select")
	assert.NotContains(t, v.Vocabulary, "eval")

	names := v.FeatureNames()
	require.Len(t, names, v.NumFeatures())
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i], "columns are ordered alphabetically")
	}
}

func TestFitMaxFeatures(t *testing.T) {
	cfg := DefaultVectorizerConfig()
	cfg.MaxFeatures = 2
	cfg.MinDF = 1
	cfg.MaxDF = 1
	v := NewTfidfVectorizer(cfg)
	require.NoError(t, v.Fit([]string{"aa aa aa bb bb cc", "aa bb dd"}))

	assert.Equal(t, []string{"aa", "bb"}, v.FeatureNames())
}

func TestFitEmptyVocabulary(t *testing.T) {
	v := NewTfidfVectorizer(DefaultVectorizerConfig())
	err := v.Fit([]string{"alpha", "beta"})
	assert.True(t, eris.Is(err, ErrEmptyVocabulary))
}

func TestTransformBeforeFit(t *testing.T) {
	_, err := NewTfidfVectorizer(DefaultVectorizerConfig()).Transform([]string{"x"})
	assert.True(t, eris.Is(err, ErrNotFitted))
}

func TestTransformWeights(t *testing.T) {
	v := NewTfidfVectorizer(DefaultVectorizerConfig())
	X, err := v.FitTransform(trainDocs)
	require.NoError(t, err)

	rows, cols := X.Dims()
	assert.Equal(t, len(trainDocs), rows)
	assert.Equal(t, v.NumFeatures(), cols)

	for i := 0; i < rows; i++ {
		row := X.Row(i)
		if row.Len() == 0 {
			continue
		}
		assert.InDelta(t, 1.0, row.Norm(), 1e-9)
		for _, x := range row.Values {
			assert.Greater(t, x, 0.0)
		}
	}

	n := float64(len(trainDocs))
	df := 3.0 // "buf" appears in three documents
	assert.InDelta(t, math.Log((1+n)/(1+df))+1, v.IDF[v.Vocabulary["buf"]], 1e-12)
}

func TestTransformDropsUnknownTerms(t *testing.T) {
	v := NewTfidfVectorizer(DefaultVectorizerConfig())
	require.NoError(t, v.Fit(trainDocs))

	X, err := v.Transform([]string{"completely novel tokens only", "return buf; novel"})
	require.NoError(t, err)

	assert.Equal(t, 0, X.Row(0).Len())
	assert.Equal(t, v.NumFeatures(), X.NumCols)
	for _, col := range X.Row(1).Indices {
		assert.Less(t, col, v.NumFeatures())
	}
}

func TestVectorizerPersistenceRoundTrip(t *testing.T) {
	v := NewTfidfVectorizer(DefaultVectorizerConfig())
	require.NoError(t, v.Fit(trainDocs))

	path := filepath.Join(t.TempDir(), "vectorizer.gob")
	require.NoError(t, v.Save(path))

	loaded, err := LoadTfidfVectorizer(path)
	require.NoError(t, err)

	test := []string{"strcpy(buf, input)", "SELECT * FROM users", "nothing here"}
	want, err := v.Transform(test)
	require.NoError(t, err)
	got, err := loaded.Transform(test)
	require.NoError(t, err)

	assert.True(t, want.Equal(got))
}

func TestLabelEncoder(t *testing.T) {
	le := NewBinaryLabelEncoder()

	y, err := le.Transform([]string{"0", "1", "1.0", "Vulnerable", "safe", "TRUE"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 1, 0, 1}, y)

	_, err = le.Encode("2")
	assert.Error(t, err)
	_, err = le.Encode("0.5")
	assert.Error(t, err)

	names, err := le.InverseTransform([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vulnerable", "Safe"}, names)
	assert.Equal(t, []string{"Safe", "Vulnerable"}, le.ClassNames())
}
