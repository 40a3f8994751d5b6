package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/balanced_merged_dataset.csv", cfg.Data.Path)
	assert.Equal(t, "code", cfg.Data.TextColumn)
	assert.Equal(t, "is_vulnerable", cfg.Data.LabelColumn)
	assert.Equal(t, "source", cfg.Data.GroupColumn)
	assert.InDelta(t, 0.2, cfg.Split.TestSize, 1e-12)
	assert.Equal(t, int64(42), cfg.Split.Seed)
	assert.Zero(t, cfg.Split.CVFolds)
	assert.Equal(t, 3000, cfg.Vectorizer.MaxFeatures)
	assert.Equal(t, 1, cfg.Vectorizer.NgramMin)
	assert.Equal(t, 2, cfg.Vectorizer.NgramMax)
	assert.Equal(t, 2, cfg.Vectorizer.MinDF)
	assert.InDelta(t, 0.95, cfg.Vectorizer.MaxDF, 1e-12)
	assert.True(t, cfg.Vectorizer.SublinearTF)
	assert.Equal(t, "models", cfg.Output.ModelsDir)
	assert.Equal(t, "docs", cfg.Output.DocsDir)
	assert.Equal(t, "models/history.db", cfg.History.Path)
	assert.Equal(t, 500, cfg.Score.BatchSize)
	assert.Equal(t, "id", cfg.Score.IDColumn)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
data:
  path: corpus.xlsx
split:
  test_size: 0.25
vectorizer:
  max_features: 500
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "corpus.xlsx", cfg.Data.Path)
	assert.InDelta(t, 0.25, cfg.Split.TestSize, 1e-12)
	assert.Equal(t, 500, cfg.Vectorizer.MaxFeatures)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Vectorizer.MinDF)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  docs_dir: reports\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.Output.DocsDir)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("VULNCLASSIFIER_SPLIT_SEED", "7")
	t.Setenv("VULNCLASSIFIER_DATA_PATH", "/tmp/other.csv")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Split.Seed)
	assert.Equal(t, "/tmp/other.csv", cfg.Data.Path)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"empty path":     func(c *Config) { c.Data.Path = " " },
		"test size zero": func(c *Config) { c.Split.TestSize = 0 },
		"test size one":  func(c *Config) { c.Split.TestSize = 1 },
		"ngram min":      func(c *Config) { c.Vectorizer.NgramMin = 0 },
		"ngram order":    func(c *Config) { c.Vectorizer.NgramMin, c.Vectorizer.NgramMax = 3, 2 },
		"max df":         func(c *Config) { c.Vectorizer.MaxDF = 1.5 },
		"batch size":     func(c *Config) { c.Score.BatchSize = 0 },
		"cv folds":       func(c *Config) { c.Split.CVFolds = 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := *base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConversions(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cols := cfg.Data.Columns()
	assert.Equal(t, "code", cols.Text)
	assert.Equal(t, "source", cols.Group)

	params := cfg.Vectorizer.Params()
	assert.Equal(t, 3000, params.MaxFeatures)
	assert.True(t, params.SublinearTF)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
