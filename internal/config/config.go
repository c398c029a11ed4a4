// Package config loads tool settings from defaults, an optional YAML file,
// a .env file, the environment and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. STMT_GEMINI_MODEL.
	EnvPrefix = "STMT"

	defaultConfigName = "statement-tools"
	dotEnvFile        = ".env"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Prompts   PromptsConfig   `mapstructure:"prompts"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Statement StatementConfig `mapstructure:"statement"`
	GCP       GCPConfig       `mapstructure:"gcp"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type GeminiConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Temperature     float32 `mapstructure:"temperature"`
	TopK            float32 `mapstructure:"top_k"`
	TopP            float32 `mapstructure:"top_p"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
	TokenWarning    int32   `mapstructure:"token_warning"`
}

type PromptsConfig struct {
	ExtractionFile string `mapstructure:"extraction_file"`
	InsightsFile   string `mapstructure:"insights_file"`
}

type OCRConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Language  string `mapstructure:"language"`
	MinHeight int    `mapstructure:"min_height"`
}

type StatementConfig struct {
	BalanceTolerance float64 `mapstructure:"balance_tolerance"`
	Currency         string  `mapstructure:"currency"`
}

type GCPConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ArchiveConfig points at the BigQuery table that receives one row per run.
// An empty project disables archiving.
type ArchiveConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

// Enabled reports whether analysis runs should be archived.
func (a ArchiveConfig) Enabled() bool {
	return a.Project != ""
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"timeout":   "timeout",
	"model":     "gemini.model",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("timeout", 5*time.Minute)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.top_k", 40)
	v.SetDefault("gemini.top_p", 0.95)
	v.SetDefault("gemini.max_output_tokens", 8192)
	v.SetDefault("gemini.token_warning", 4000)

	v.SetDefault("prompts.extraction_file", "prompt_extraction.txt")
	v.SetDefault("prompts.insights_file", "prompt_insights.txt")

	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.min_height", 800)

	v.SetDefault("statement.balance_tolerance", 5.0)
	v.SetDefault("statement.currency", "INR")

	v.SetDefault("gcp.credentials_file", "")

	v.SetDefault("archive.project", "")
	v.SetDefault("archive.dataset", "statements")
	v.SetDefault("archive.table", "analysis_runs")
}

// Build assembles the configuration. cfgFile may be empty, in which case
// statement-tools.yaml is looked up in the working directory and $HOME and
// silently skipped when absent. flags may be nil.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Build: loading %s: %w", dotEnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Build: reading %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config.Build: reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, fmt.Errorf("config.Build: binding api key env: %w", err)
	}
	if err := v.BindEnv("gcp.credentials_file", EnvPrefix+"_GCP_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"); err != nil {
		return nil, fmt.Errorf("config.Build: binding credentials env: %w", err)
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Build: decoding: %w", err)
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("config.Build: binding flag %s: %w", name, err)
		}
	}

	// --no-ocr is inverted, so it cannot be bound directly.
	if f := flags.Lookup("no-ocr"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set("ocr.enabled", false)
	}
	return nil
}

// Validate checks value ranges. It does not require an API key, since
// offline commands never reach the model.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("gemini.model must not be empty"))
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		errs = append(errs, fmt.Errorf("gemini.temperature must be within [0, 2], got %g", c.Gemini.Temperature))
	}
	if c.Gemini.TopP < 0 || c.Gemini.TopP > 1 {
		errs = append(errs, fmt.Errorf("gemini.top_p must be within [0, 1], got %g", c.Gemini.TopP))
	}
	if c.Gemini.TopK <= 0 {
		errs = append(errs, fmt.Errorf("gemini.top_k must be positive, got %g", c.Gemini.TopK))
	}
	if c.Gemini.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("gemini.max_output_tokens must be positive, got %d", c.Gemini.MaxOutputTokens))
	}
	if c.Gemini.TokenWarning <= 0 {
		errs = append(errs, fmt.Errorf("gemini.token_warning must be positive, got %d", c.Gemini.TokenWarning))
	}
	if c.OCR.MinHeight < 0 {
		errs = append(errs, fmt.Errorf("ocr.min_height must not be negative, got %d", c.OCR.MinHeight))
	}
	if c.Statement.BalanceTolerance < 0 {
		errs = append(errs, fmt.Errorf("statement.balance_tolerance must not be negative, got %g", c.Statement.BalanceTolerance))
	}
	if c.Archive.Enabled() && (c.Archive.Dataset == "" || c.Archive.Table == "") {
		errs = append(errs, errors.New("archive.dataset and archive.table are required when archive.project is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config.Validate: %w", errors.Join(errs...))
	}
	return nil
}

// RequireAPIKey returns an error when no Gemini key was configured.
func (c *Config) RequireAPIKey() error {
	if c.Gemini.APIKey == "" {
		return errors.New("gemini api key missing: set GEMINI_API_KEY or gemini.api_key")
	}
	return nil
}
