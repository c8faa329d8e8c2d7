// Package llm defines the text-generation capability the summarizer consumes:
// model profiles, a provider-neutral client interface with classified errors,
// an OpenAI-compatible implementation, and a retrying decorator.
package llm

import (
	"errors"
	"fmt"

	"github.com/coderecap/coderecap/internal/costs"
)

// Profile describes one model's capabilities and published rates. Supplied by
// configuration, never fetched live.
type Profile struct {
	Model           string  `mapstructure:"model"`
	MaxInputTokens  int     `mapstructure:"max_input_tokens"`
	InputCostPer1K  float64 `mapstructure:"input_cost_per_1k"`
	OutputCostPer1K float64 `mapstructure:"output_cost_per_1k"`
}

// Pricing returns the profile's per-token rates as a costs.Pricing.
func (p Profile) Pricing() costs.Pricing {
	return costs.Pricing{InputCostPer1K: p.InputCostPer1K, OutputCostPer1K: p.OutputCostPer1K}
}

// defaultMaxInput is the context window assumed for catalog models.
const defaultMaxInput = 128000

// catalog lists known model profiles with their published per-1K-token rates.
var catalog = map[string]Profile{
	"gpt-4o-mini": {
		Model:           "gpt-4o-mini",
		MaxInputTokens:  defaultMaxInput,
		InputCostPer1K:  0.00015,
		OutputCostPer1K: 0.0006,
	},
	"gpt-4o": {
		Model:           "gpt-4o",
		MaxInputTokens:  defaultMaxInput,
		InputCostPer1K:  0.0025,
		OutputCostPer1K: 0.01,
	},
	"gpt-4.1-mini": {
		Model:           "gpt-4.1-mini",
		MaxInputTokens:  defaultMaxInput,
		InputCostPer1K:  0.0004,
		OutputCostPer1K: 0.0016,
	},
	"o3-mini": {
		Model:           "o3-mini",
		MaxInputTokens:  defaultMaxInput,
		InputCostPer1K:  0.0011,
		OutputCostPer1K: 0.0044,
	},
}

// DefaultModel is used when configuration names no model.
const DefaultModel = "gpt-4o-mini"

// ErrUnknownModel is returned when a model has no catalog entry and no
// configured profile.
var ErrUnknownModel = errors.New("unknown model")

// LookupProfile returns the catalog profile for a model name.
func LookupProfile(model string) (Profile, error) {
	profile, ok := catalog[model]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (configure a profile with rates to use it)", ErrUnknownModel, model)
	}

	return profile, nil
}

// CatalogModels returns the known model names in no particular order.
func CatalogModels() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}

	return names
}
