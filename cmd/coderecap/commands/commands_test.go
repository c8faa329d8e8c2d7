package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coderecap/coderecap/internal/clients"
	"github.com/coderecap/coderecap/internal/config"
	"github.com/coderecap/coderecap/internal/recap"
)

func TestPeriodCoarsest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		spec string
		want recap.Granularity
	}{
		{"2025", recap.Year},
		{"2020:2025", recap.Year},
		{"2025-Q3", recap.Quarter},
		{"2025-06", recap.Month},
		{"2025-W23", recap.Week},
		{"2025-06-03", recap.Day},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, periodCoarsest(tc.spec), tc.spec)
	}
}

func TestLeafGranularity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value    string
		coarsest recap.Granularity
		want     recap.Granularity
	}{
		{"month", recap.Year, recap.Month},
		{"month", recap.Month, recap.Month},
		// Periods finer than the requested leaves narrow the leaves.
		{"month", recap.Week, recap.Week},
		{"month", recap.Day, recap.Day},
		{"day", recap.Week, recap.Day},
	}

	for _, tc := range cases {
		got, err := leafGranularity(tc.value, tc.coarsest)
		assert.NoError(t, err, tc.value)
		assert.Equal(t, tc.want, got, "%s in %s", tc.value, tc.coarsest)
	}

	_, err := leafGranularity("fortnight", recap.Year)
	assert.ErrorIs(t, err, recap.ErrUnknownGranularity)
}

func TestFilterRepos(t *testing.T) {
	t.Parallel()

	paths := []string{"/srv/api", "/srv/web-app", "/srv/API-gateway"}

	assert.Equal(t, paths, filterRepos(paths, ""))
	assert.Equal(t, []string{"/srv/api", "/srv/API-gateway"}, filterRepos(paths, "api"))
	assert.Empty(t, filterRepos(paths, "billing"))
}

func TestRouteRepos(t *testing.T) {
	t.Parallel()

	router := clients.NewRouter([]clients.Rule{
		{Client: "acme", Patterns: []string{"api*"}},
	}, "internal", "")

	paths := []string{"/srv/api", "/srv/api-gateway", "/srv/web"}

	assert.Equal(t, paths, routeRepos(paths, router, ""))
	assert.Equal(t, []string{"/srv/api", "/srv/api-gateway"}, routeRepos(paths, router, "acme"))
	assert.Equal(t, []string{"/srv/web"}, routeRepos(paths, router, "internal"))
}

func TestNewLedger(t *testing.T) {
	t.Parallel()

	limited := newLedger(2.5, 4)
	assert.False(t, limited.Unlimited())
	assert.InDelta(t, 2.5, limited.Ceiling(), 1e-9)

	unlimited := newLedger(-1, 4)
	assert.True(t, unlimited.Unlimited())

	zero := newLedger(0, 4)
	_, ok := zero.Reserve(0.01)
	assert.False(t, ok, "zero ceiling permits no spend")
}

func TestCacheDir(t *testing.T) {
	t.Parallel()

	disabled := &config.Config{}
	assert.Empty(t, cacheDir(disabled))

	explicit := &config.Config{Cache: config.CacheConfig{Enabled: true, Dir: "/tmp/recap-cache"}}
	assert.Equal(t, "/tmp/recap-cache", cacheDir(explicit))

	implicit := &config.Config{Cache: config.CacheConfig{Enabled: true}}
	assert.Contains(t, cacheDir(implicit), ".coderecap")
}

func TestCommandFlagRegistration(t *testing.T) {
	t.Parallel()

	cmd := NewSummarizeCommand()

	for _, name := range []string{
		"author", "client", "root", "granularity", "model", "filter",
		"output", "max-cost", "dry-run", "no-fetch", "stdout", "html",
		"csv", "metrics-listen",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestDailyFlagRegistration(t *testing.T) {
	t.Parallel()

	cmd := NewDailyCommand()

	for _, name := range []string{"date", "author", "output", "dry-run", "max-cost"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	// Daily fixes the tree to a single day and runs without a metrics
	// listener; neither flag applies.
	assert.Nil(t, cmd.Flags().Lookup("granularity"))
	assert.Nil(t, cmd.Flags().Lookup("metrics-listen"))
}
