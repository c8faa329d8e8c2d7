// Package config loads and validates the coderecap configuration from file,
// environment, and defaults.
package config

import (
	"errors"

	"github.com/coderecap/coderecap/internal/clients"
)

// Config is the top-level configuration struct for coderecap.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Root          string         `mapstructure:"root"`
	Author        string         `mapstructure:"author"`
	DefaultClient string         `mapstructure:"default_client"`
	GlobalContext string         `mapstructure:"global_context"`
	Clients       []clients.Rule `mapstructure:"clients"`
	Model         ModelConfig    `mapstructure:"model"`
	Cache         CacheConfig    `mapstructure:"cache"`
	Report        ReportConfig   `mapstructure:"report"`
}

// ModelConfig holds provider and budget knobs.
type ModelConfig struct {
	Name          string  `mapstructure:"name"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxCostUSD    float64 `mapstructure:"max_cost_usd"`
	CharsPerToken int     `mapstructure:"chars_per_token"`
	BaseURL       string  `mapstructure:"base_url"`
	APIKeyEnv     string  `mapstructure:"api_key_env"`
}

// CacheConfig holds the extraction cache settings.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ReportConfig holds output settings.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Title     string `mapstructure:"title"`
}

// Default configuration values.
const (
	DefaultRoot          = "."
	DefaultModelName     = "gpt-4o-mini"
	DefaultTemperature   = 0.7
	DefaultMaxCostUSD    = 5.0
	DefaultCharsPerToken = 4
	DefaultAPIKeyEnv     = "OPENAI_API_KEY"
	DefaultCacheEnabled  = true
	DefaultOutputDir     = "reports"
	DefaultReportTitle   = "Code Recap"

	temperatureMax = 2.0
)

// Sentinel errors for configuration validation.
var (
	// ErrMissingRoot indicates the repository root is empty.
	ErrMissingRoot = errors.New("root must not be empty")
	// ErrMissingModel indicates the model name is empty.
	ErrMissingModel = errors.New("model.name must not be empty")
	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("model.temperature must be between 0 and 2")
	// ErrInvalidMaxCost indicates the cost ceiling is negative.
	ErrInvalidMaxCost = errors.New("model.max_cost_usd must be non-negative")
	// ErrInvalidCharsPerToken indicates the estimation heuristic is not positive.
	ErrInvalidCharsPerToken = errors.New("model.chars_per_token must be positive")
)

// Validate checks Config invariants and returns the first error found. The
// clients section is additionally validated against its JSON schema.
func (c *Config) Validate() error {
	if c.Root == "" {
		return ErrMissingRoot
	}

	if c.Model.Name == "" {
		return ErrMissingModel
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > temperatureMax {
		return ErrInvalidTemperature
	}

	if c.Model.MaxCostUSD < 0 {
		return ErrInvalidMaxCost
	}

	if c.Model.CharsPerToken < 1 {
		return ErrInvalidCharsPerToken
	}

	return validateClients(c.Clients)
}

// Router builds the client router from the configured rules.
func (c *Config) Router() *clients.Router {
	return clients.NewRouter(c.Clients, c.DefaultClient, c.GlobalContext)
}
