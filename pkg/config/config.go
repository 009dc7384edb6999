package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds everything a training or scoring run needs.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Features  FeaturesConfig  `yaml:"features"`
	Fitted    FittedConfig    `yaml:"fitted"`
	Model     ModelConfig     `yaml:"model"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Log       LogConfig       `yaml:"log"`
}

// DataConfig describes the dataset and how to split it.
type DataConfig struct {
	Path       string   `yaml:"path"`        // CSV or Parquet file
	Target     string   `yaml:"target"`      // Binary label column
	Columns    []string `yaml:"columns"`     // Columns kept after loading, in order
	Numeric    []string `yaml:"numeric"`     // CSV columns parsed as numbers
	NullValues []string `yaml:"null_values"` // CSV tokens read as null
	TestSize   float64  `yaml:"test_size"`   // Fraction held out for testing
	Seed       int64    `yaml:"seed"`        // Shuffle seed for the split
}

// FeaturesConfig names the variable groups each transform works on.
type FeaturesConfig struct {
	Categorical   []string `yaml:"categorical"`
	Numerical     []string `yaml:"numerical"`      // Imputed with the median, flagged with <name>_NA
	FirstLetter   []string `yaml:"first_letter"`   // Reduced to their first character
	MissingLabel  string   `yaml:"missing_label"`  // Fill for null categorical cells
	RareLabel     string   `yaml:"rare_label"`     // Bucket for infrequent levels
	RareTolerance float64  `yaml:"rare_tolerance"` // Share a level must exceed to be kept
}

// FittedConfig holds parameters learned at training time.
type FittedConfig struct {
	Medians        map[string]float64  `yaml:"medians,omitempty"`
	FrequentLabels map[string][]string `yaml:"frequent_labels,omitempty"`
	DummyVariables map[string][]string `yaml:"dummy_variables,omitempty"`
	FeatureNames   []string            `yaml:"feature_names,omitempty"` // Model input order
}

// ModelConfig holds the classifier hyper-parameters.
type ModelConfig struct {
	C                 float64 `yaml:"c"`                  // Inverse L2 strength
	Threshold         float64 `yaml:"threshold"`          // p(y=1) cut-off
	MaxIterations     int     `yaml:"max_iterations"`     // Solver iteration cap
	GradientTolerance float64 `yaml:"gradient_tolerance"` // Solver stop when |grad|inf falls below
}

// ArtifactsConfig locates the persisted scaler and model.
type ArtifactsConfig struct {
	Scaler string `yaml:"scaler"`
	Model  string `yaml:"model"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Default returns the configuration of the reference Titanic run.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:       "titanic.csv",
			Target:     "survived",
			Columns:    []string{"pclass", "survived", "sex", "age", "sibsp", "parch", "fare", "cabin", "embarked", "title"},
			Numeric:    []string{"pclass", "survived", "age", "sibsp", "parch", "fare"},
			NullValues: []string{"", "?", "NA"},
			TestSize:   0.2,
			Seed:       0,
		},
		Features: FeaturesConfig{
			Categorical:   []string{"sex", "cabin", "embarked", "title"},
			Numerical:     []string{"age", "fare"},
			FirstLetter:   []string{"cabin"},
			MissingLabel:  "Missing",
			RareLabel:     "Rare",
			RareTolerance: 0.05,
		},
		Fitted: FittedConfig{
			FrequentLabels: map[string][]string{
				"sex":      {"female", "male"},
				"cabin":    {"C", "Missing"},
				"embarked": {"C", "Q", "S"},
				"title":    {"Miss", "Mr", "Mrs"},
			},
			DummyVariables: map[string][]string{
				"sex":      {"sex_male"},
				"cabin":    {"cabin_Missing", "cabin_Rare"},
				"embarked": {"embarked_Q", "embarked_Rare", "embarked_S"},
				"title":    {"title_Mr", "title_Mrs", "title_Rare"},
			},
		},
		Model: ModelConfig{
			C:                 0.0005,
			Threshold:         0.5,
			MaxIterations:     100,
			GradientTolerance: 1e-4,
		},
		Artifacts: ArtifactsConfig{
			Scaler: "scaler.bin",
			Model:  "logistic_regression.bin",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load overlays the YAML file at path on Default. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Data.Target == "" {
		return fmt.Errorf("%w: data.target is empty", ErrInvalid)
	}
	if c.Data.TestSize <= 0 || c.Data.TestSize >= 1 {
		return fmt.Errorf("%w: data.test_size must be in (0, 1) (got: %v)", ErrInvalid, c.Data.TestSize)
	}
	if c.Features.RareTolerance < 0 || c.Features.RareTolerance >= 1 {
		return fmt.Errorf("%w: features.rare_tolerance must be in [0, 1) (got: %v)", ErrInvalid, c.Features.RareTolerance)
	}
	for _, name := range c.Features.FirstLetter {
		if !slices.Contains(c.Features.Categorical, name) {
			return fmt.Errorf("%w: features.first_letter %q is not categorical", ErrInvalid, name)
		}
	}
	for _, name := range c.Features.Numerical {
		if slices.Contains(c.Features.Categorical, name) {
			return fmt.Errorf("%w: %q is both numerical and categorical", ErrInvalid, name)
		}
	}
	if c.Features.MissingLabel == "" || c.Features.RareLabel == "" {
		return fmt.Errorf("%w: features.missing_label and features.rare_label must be set", ErrInvalid)
	}
	if c.Model.C <= 0 {
		return fmt.Errorf("%w: model.c must be > 0 (got: %v)", ErrInvalid, c.Model.C)
	}
	if c.Model.Threshold <= 0 || c.Model.Threshold >= 1 {
		return fmt.Errorf("%w: model.threshold must be in (0, 1) (got: %v)", ErrInvalid, c.Model.Threshold)
	}
	if c.Model.MaxIterations < 0 {
		return fmt.Errorf("%w: model.max_iterations must be >= 0", ErrInvalid)
	}
	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("%w: log.level must be debug, info, warn, or error (got: %s)", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log.format must be json or text (got: %s)", ErrInvalid, c.Log.Format)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
