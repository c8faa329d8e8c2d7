package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderecap/coderecap/internal/clients"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err) // Explicit paths must exist.

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRoot, cfg.Root)
	assert.Equal(t, DefaultModelName, cfg.Model.Name)
	assert.InDelta(t, DefaultTemperature, cfg.Model.Temperature, 1e-9)
	assert.InDelta(t, DefaultMaxCostUSD, cfg.Model.MaxCostUSD, 1e-9)
	assert.Equal(t, DefaultCharsPerToken, cfg.Model.CharsPerToken)
	assert.Equal(t, DefaultAPIKeyEnv, cfg.Model.APIKeyEnv)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultOutputDir, cfg.Report.OutputDir)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coderecap.yaml")
	content := `
root: /srv/repos
author: garcia
default_client: Acme
global_context: Acme ships a payments API.
model:
  name: gpt-4o
  temperature: 0.3
  max_cost_usd: 2.5
clients:
  - client: Acme
    patterns: ["acme-*"]
    exclude: ["acme-internal"]
    context: Payments work.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/repos", cfg.Root)
	assert.Equal(t, "garcia", cfg.Author)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.InDelta(t, 0.3, cfg.Model.Temperature, 1e-9)
	assert.InDelta(t, 2.5, cfg.Model.MaxCostUSD, 1e-9)

	// File values merge over defaults.
	assert.Equal(t, DefaultCharsPerToken, cfg.Model.CharsPerToken)

	router := cfg.Router()
	assert.Equal(t, "Acme", router.Assign("acme-billing"))
	assert.Equal(t, "Acme", cfg.DefaultClient)
	assert.Equal(t, "Payments work.", router.ClientContext("Acme"))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Root: ".",
			Model: ModelConfig{
				Name:          DefaultModelName,
				Temperature:   DefaultTemperature,
				MaxCostUSD:    DefaultMaxCostUSD,
				CharsPerToken: DefaultCharsPerToken,
			},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Root = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRoot)

	cfg = valid()
	cfg.Model.Name = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingModel)

	cfg = valid()
	cfg.Model.Temperature = 3
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTemperature)

	cfg = valid()
	cfg.Model.MaxCostUSD = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidMaxCost)

	cfg = valid()
	cfg.Model.CharsPerToken = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidCharsPerToken)
}

func TestValidateClientsSchema(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateClients(nil))

	assert.NoError(t, validateClients([]clients.Rule{
		{Client: "Acme", Patterns: []string{"acme-*"}},
	}))

	err := validateClients([]clients.Rule{
		{Client: "", Patterns: []string{"acme-*"}},
	})
	assert.ErrorIs(t, err, ErrInvalidClients)

	err = validateClients([]clients.Rule{
		{Client: "Acme", Patterns: nil},
	})
	assert.ErrorIs(t, err, ErrInvalidClients)
}
