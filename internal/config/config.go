// Package config provides configuration management for the unicorns pipeline
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. UNICORNS_ANALYSIS_TOP_N.
// Multi-word fields use split_words so no override falls back to an
// unprefixed variable such as PATH.
const EnvPrefix = "UNICORNS"

// Default configuration values
const (
	DefaultOutputPath      = "unicorns_cleaned.csv"
	DefaultTopN            = 10
	DefaultTrendRows       = 20
	DefaultIndustriesLimit = 5
	DefaultHorizonYears    = 5
	MaxHorizonYears        = 50
)

// Config represents the configuration of a pipeline run
type Config struct {
	Input    InputConfig    `json:"input" yaml:"input"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// InputConfig describes the raw dataset
type InputConfig struct {
	Path       string   `json:"path" yaml:"path"`
	Delimiter  string   `json:"delimiter" yaml:"delimiter" validate:"len=1"`
	NullValues []string `json:"null_values" yaml:"null_values" split_words:"true"`
}

// OutputConfig describes where results are written
type OutputConfig struct {
	Path        string `json:"path" yaml:"path" validate:"required"`
	Format      string `json:"format" yaml:"format" validate:"omitempty,oneof=csv parquet json jsonl"`
	ChartsDir   string `json:"charts_dir" yaml:"charts_dir" split_words:"true"`
	Workbook    string `json:"workbook" yaml:"workbook"`
	MetricsFile string `json:"metrics_file" yaml:"metrics_file" split_words:"true"`
}

// AnalysisConfig holds the parameters of the aggregation and projection views
type AnalysisConfig struct {
	TopN            int `json:"top_n" yaml:"top_n" split_words:"true" validate:"gte=0"`
	TrendRows       int `json:"trend_rows" yaml:"trend_rows" split_words:"true" validate:"gte=0"`
	IndustriesLimit int `json:"industries_limit" yaml:"industries_limit" split_words:"true" validate:"gte=0"`
	HorizonYears    int `json:"horizon_years" yaml:"horizon_years" split_words:"true" validate:"gte=0,lte=50"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level   string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format  string `json:"format" yaml:"format" validate:"oneof=json text"`
	File    string `json:"file" yaml:"file"`
	Metrics bool   `json:"metrics" yaml:"metrics"`
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Input: InputConfig{
			Delimiter: ",",
		},
		Output: OutputConfig{
			Path: DefaultOutputPath,
		},
		Analysis: AnalysisConfig{
			TopN:            DefaultTopN,
			TrendRows:       DefaultTrendRows,
			IndustriesLimit: DefaultIndustriesLimit,
			HorizonYears:    DefaultHorizonYears,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "text",
			Metrics: true,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return fmt.Errorf("validating configuration: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fieldRule(fe), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

// LoadFromJSON loads configuration from JSON data over the defaults
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a JSON or YAML file over the defaults
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	config := NewConfig()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config, nil
}

// ApplyEnv overrides config with UNICORNS_* environment variables
func ApplyEnv(config *Config) error {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the file at path
// when one is given, then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	config := NewConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return Config{}, err
		}
		config = loaded
	}
	if err := ApplyEnv(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// DelimiterRune returns the input delimiter as a rune
func (c InputConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	return []rune(c.Delimiter)[0]
}
