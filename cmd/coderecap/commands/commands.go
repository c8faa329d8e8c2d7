// Package commands implements CLI command handlers for coderecap.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderecap/coderecap/internal/clients"
	"github.com/coderecap/coderecap/internal/config"
	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/discover"
	"github.com/coderecap/coderecap/internal/extract"
	"github.com/coderecap/coderecap/internal/llm"
	"github.com/coderecap/coderecap/internal/recap"
	"github.com/coderecap/coderecap/pkg/gitlib"
)

// maxRetries bounds provider retries for transient failures.
const maxRetries = 3

// loadConfig reads the config file named by the persistent --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	return config.Load(path)
}

// newLogger builds a stderr text logger honoring the persistent --verbose
// flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// periodCoarsest maps a period spec to the granularity of its top level.
func periodCoarsest(spec string) recap.Granularity {
	switch {
	case strings.Contains(spec, ":"):
		return recap.Year
	case strings.Contains(spec, "-Q"):
		return recap.Quarter
	case strings.Contains(spec, "-W"):
		return recap.Week
	case strings.Count(spec, "-") == 2:
		return recap.Day
	case strings.Count(spec, "-") == 1:
		return recap.Month
	default:
		return recap.Year
	}
}

// leafGranularity parses the requested leaf granularity and narrows it to the
// period's own level when the period is finer, so a week or day period gets
// leaves of its own size rather than a granularity ordering error.
func leafGranularity(value string, coarsest recap.Granularity) (recap.Granularity, error) {
	finest, err := recap.ParseGranularity(value)
	if err != nil {
		return 0, err
	}

	if finest > coarsest {
		finest = coarsest
	}

	return finest, nil
}

// collectRepoPaths lists every repository under root, submodules included.
func collectRepoPaths(root string) ([]string, error) {
	repos, err := discover.TopLevelRepos(root)
	if err != nil {
		return nil, err
	}

	var paths []string

	for _, repoPath := range repos {
		paths = append(paths, repoPath)

		subs, err := discover.Submodules(repoPath)
		if err != nil {
			continue
		}

		paths = append(paths, subs...)
	}

	return paths, nil
}

// filterRepos keeps paths whose base name contains the filter substring.
func filterRepos(paths []string, filter string) []string {
	if filter == "" {
		return paths
	}

	filter = strings.ToLower(filter)

	var kept []string
	for _, path := range paths {
		if strings.Contains(strings.ToLower(filepath.Base(path)), filter) {
			kept = append(kept, path)
		}
	}

	return kept
}

// routeRepos keeps paths the router assigns to the named client. An empty
// client keeps everything.
func routeRepos(paths []string, router *clients.Router, client string) []string {
	if client == "" {
		return paths
	}

	var kept []string
	for _, path := range paths {
		if router.Assign(filepath.Base(path)) == client {
			kept = append(kept, path)
		}
	}

	return kept
}

// fetchRepos fetches origin for every repository. Fetch failures are logged
// and skipped; local history still gets summarized.
func fetchRepos(paths []string, logger *slog.Logger) {
	for _, path := range paths {
		repo, err := gitlib.OpenRepository(path)
		if err != nil {
			logger.Warn("open for fetch failed", "repo", path, "error", err)

			continue
		}

		if err := repo.FetchOrigin(); err != nil {
			logger.Warn("fetch failed", "repo", path, "error", err)
		}

		repo.Free()
	}
}

// extractAll extracts the period's commits from every repository and merges
// them chronologically.
func extractAll(ctx context.Context, paths []string, opts extract.Options, since, until time.Time) ([]recap.Commit, error) {
	extractor, err := extract.New(opts)
	if err != nil {
		return nil, err
	}

	var commits []recap.Commit

	for _, path := range paths {
		repoCommits, err := extractor.Extract(ctx, path, since, until)
		if err != nil {
			return nil, err
		}

		commits = append(commits, repoCommits...)
	}

	sort.Slice(commits, func(i, j int) bool {
		if commits[i].When.Equal(commits[j].When) {
			return commits[i].Hash < commits[j].Hash
		}

		return commits[i].When.Before(commits[j].When)
	})

	return commits, nil
}

// buildClient constructs the retrying provider client for the model.
func buildClient(cfg *config.Config, model string, logger *slog.Logger) (llm.Client, llm.Profile, error) {
	profile, err := llm.LookupProfile(model)
	if err != nil {
		return nil, llm.Profile{}, err
	}

	apiKey := os.Getenv(cfg.Model.APIKeyEnv)

	inner, err := llm.NewOpenAIClient(apiKey, cfg.Model.BaseURL)
	if err != nil {
		return nil, llm.Profile{}, fmt.Errorf("build %s client: %w", model, err)
	}

	return llm.NewRetryingClient(inner, maxRetries, logger), profile, nil
}

// newLedger builds the run ledger. A negative ceiling disables limiting.
func newLedger(maxCostUSD float64, charsPerToken int) *costs.Ledger {
	ledger := costs.NewLedger(maxCostUSD)
	if maxCostUSD < 0 {
		ledger = costs.NewUnlimitedLedger()
	}

	ledger.SetCharsPerToken(charsPerToken)

	return ledger
}

// cacheDir resolves the extraction cache directory, empty when disabled.
func cacheDir(cfg *config.Config) string {
	if !cfg.Cache.Enabled {
		return ""
	}

	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".coderecap", "cache")
}
