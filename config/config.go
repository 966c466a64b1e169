// Package config loads the fsa configuration.
//
// Values come, by increasing precedence, from the defaults, a YAML file, a
// .env file in the working directory and the FSA_* environment variables.
// The Gemini API key is also read from GEMINI_API_KEY.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/etnz/fsa"
	"github.com/etnz/fsa/agent"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Prefix of the environment variables.
const Prefix = "FSA"

// DotEnv is the dotenv file loaded from the working directory, if present.
const DotEnv = ".env"

// Config is the complete application configuration.
type Config struct {
	Markers     Markers             `yaml:"markers" envconfig:"MARKERS"`
	OnDuplicate fsa.DuplicatePolicy `yaml:"on_duplicate" envconfig:"ON_DUPLICATE"`
	AI          AI                  `yaml:"ai" envconfig:"AI"`
	Server      Server              `yaml:"server" envconfig:"SERVER"`
}

// Markers are the labels, or parts of labels, identifying the rows the
// analysis relies on. Any of the markers of a row identifies it.
type Markers struct {
	TotalAssets        []string `yaml:"total_assets" envconfig:"TOTAL_ASSETS" validate:"min=1,dive,required"`
	CurrentAssets      []string `yaml:"current_assets" envconfig:"CURRENT_ASSETS" validate:"min=1,dive,required"`
	CurrentLiabilities []string `yaml:"current_liabilities" envconfig:"CURRENT_LIABILITIES" validate:"min=1,dive,required"`
}

// AI configures the Gemini model.
type AI struct {
	APIKey      string  `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model       string  `yaml:"model" envconfig:"MODEL" validate:"required"`
	Temperature float32 `yaml:"temperature" envconfig:"TEMPERATURE" validate:"gte=0,lte=2"`
	Language    string  `yaml:"language" envconfig:"LANGUAGE" validate:"required"`
}

// Server configures the HTTP dashboard.
type Server struct {
	Addr              string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	SessionTTL        time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL" validate:"gt=0"`
	MaxSessions       int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" validate:"gt=0"`
	RequestsPerMinute float64       `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE" validate:"gte=0"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Markers: Markers{
			TotalAssets:        append([]string(nil), fsa.DefaultTotalAssets...),
			CurrentAssets:      append([]string(nil), fsa.DefaultCurrentAssets...),
			CurrentLiabilities: append([]string(nil), fsa.DefaultCurrentLiabilities...),
		},
		OnDuplicate: fsa.OnDuplicateFirst,
		AI: AI{
			Model:    agent.DefaultModel,
			Language: agent.DefaultLanguage,
		},
		Server: Server{
			Addr:              ":8080",
			MaxUploadBytes:    10 << 20,
			SessionTTL:        30 * time.Minute,
			MaxSessions:       100,
			RequestsPerMinute: 30,
		},
	}
}

// Load returns the configuration. path is the YAML file to read, if not empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// Variables already set in the environment take precedence over the dotenv file.
	if err := godotenv.Load(DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnv, err)
	}

	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overrides c with the values present in the YAML file path.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Analyzer returns the analyzer configured by c.
func (c *Config) Analyzer() fsa.Analyzer {
	return fsa.Analyzer{
		TotalAssets:        fsa.NewMatcher(c.Markers.TotalAssets...),
		CurrentAssets:      fsa.NewMatcher(c.Markers.CurrentAssets...),
		CurrentLiabilities: fsa.NewMatcher(c.Markers.CurrentLiabilities...),
		OnDuplicate:        c.OnDuplicate,
	}
}

// AgentOptions returns the model options configured by c.
func (c *Config) AgentOptions() agent.Options {
	return agent.Options{
		Model:       c.AI.Model,
		Temperature: c.AI.Temperature,
		Language:    c.AI.Language,
	}
}
