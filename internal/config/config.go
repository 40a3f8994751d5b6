package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"vulnclassifier/internal/data"
	"vulnclassifier/internal/preprocessing"
)

// Config holds the full application configuration.
type Config struct {
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Split      SplitConfig      `yaml:"split" mapstructure:"split"`
	Vectorizer VectorizerConfig `yaml:"vectorizer" mapstructure:"vectorizer"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
	Score      ScoreConfig      `yaml:"score" mapstructure:"score"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig names the training table and its columns.
type DataConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	TextColumn  string `yaml:"text_column" mapstructure:"text_column"`
	LabelColumn string `yaml:"label_column" mapstructure:"label_column"`
	GroupColumn string `yaml:"group_column" mapstructure:"group_column"`
}

type SplitConfig struct {
	TestSize float64 `yaml:"test_size" mapstructure:"test_size"`
	Seed     int64   `yaml:"seed" mapstructure:"seed"`
	CVFolds  int     `yaml:"cv_folds" mapstructure:"cv_folds"`
}

type VectorizerConfig struct {
	MaxFeatures int     `yaml:"max_features" mapstructure:"max_features"`
	NgramMin    int     `yaml:"ngram_min" mapstructure:"ngram_min"`
	NgramMax    int     `yaml:"ngram_max" mapstructure:"ngram_max"`
	MinDF       int     `yaml:"min_df" mapstructure:"min_df"`
	MaxDF       float64 `yaml:"max_df" mapstructure:"max_df"`
	SublinearTF bool    `yaml:"sublinear_tf" mapstructure:"sublinear_tf"`
}

// OutputConfig holds the artifact directories.
type OutputConfig struct {
	ModelsDir string `yaml:"models_dir" mapstructure:"models_dir"`
	DocsDir   string `yaml:"docs_dir" mapstructure:"docs_dir"`
}

// HistoryConfig locates the run history database. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type ScoreConfig struct {
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	IDColumn  string `yaml:"id_column" mapstructure:"id_column"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from path, or config.yaml in the working
// directory when path is empty, and applies VULNCLASSIFIER_* overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("VULNCLASSIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.path", "data/balanced_merged_dataset.csv")
	v.SetDefault("data.text_column", "code")
	v.SetDefault("data.label_column", "is_vulnerable")
	v.SetDefault("data.group_column", "source")
	v.SetDefault("split.test_size", 0.2)
	v.SetDefault("split.seed", 42)
	v.SetDefault("split.cv_folds", 0)
	v.SetDefault("vectorizer.max_features", 3000)
	v.SetDefault("vectorizer.ngram_min", 1)
	v.SetDefault("vectorizer.ngram_max", 2)
	v.SetDefault("vectorizer.min_df", 2)
	v.SetDefault("vectorizer.max_df", 0.95)
	v.SetDefault("vectorizer.sublinear_tf", true)
	v.SetDefault("output.models_dir", "models")
	v.SetDefault("output.docs_dir", "docs")
	v.SetDefault("history.path", "models/history.db")
	v.SetDefault("score.batch_size", 500)
	v.SetDefault("score.id_column", "id")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Path) == "" {
		return eris.New("config: data.path is required")
	}
	if c.Data.TextColumn == "" || c.Data.LabelColumn == "" {
		return eris.New("config: data.text_column and data.label_column are required")
	}
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		return eris.Errorf("config: split.test_size must be in (0,1), got %v", c.Split.TestSize)
	}
	if c.Split.CVFolds == 1 || c.Split.CVFolds < 0 {
		return eris.Errorf("config: split.cv_folds must be 0 or at least 2, got %d", c.Split.CVFolds)
	}
	if c.Vectorizer.NgramMin < 1 || c.Vectorizer.NgramMax < c.Vectorizer.NgramMin {
		return eris.Errorf("config: invalid ngram range (%d, %d)", c.Vectorizer.NgramMin, c.Vectorizer.NgramMax)
	}
	if c.Vectorizer.MaxDF <= 0 || c.Vectorizer.MaxDF > 1 {
		return eris.Errorf("config: vectorizer.max_df must be in (0,1], got %v", c.Vectorizer.MaxDF)
	}
	if c.Vectorizer.MinDF < 1 {
		return eris.Errorf("config: vectorizer.min_df must be >= 1, got %d", c.Vectorizer.MinDF)
	}
	if c.Vectorizer.MaxFeatures < 0 {
		return eris.Errorf("config: vectorizer.max_features must be >= 0, got %d", c.Vectorizer.MaxFeatures)
	}
	if c.Score.BatchSize <= 0 {
		return eris.Errorf("config: score.batch_size must be positive, got %d", c.Score.BatchSize)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Columns returns the dataset column names.
func (c DataConfig) Columns() data.Columns {
	return data.Columns{Text: c.TextColumn, Label: c.LabelColumn, Group: c.GroupColumn}
}

func (c VectorizerConfig) Params() preprocessing.VectorizerConfig {
	return preprocessing.VectorizerConfig{
		MaxFeatures: c.MaxFeatures,
		NgramMin:    c.NgramMin,
		NgramMax:    c.NgramMax,
		MinDF:       c.MinDF,
		MaxDF:       c.MaxDF,
		SublinearTF: c.SublinearTF,
	}
}
