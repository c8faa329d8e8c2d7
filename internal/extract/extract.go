// Package extract walks repository histories and turns matching commits into
// immutable records for aggregation. Records may be served from an
// lz4-compressed disk cache keyed by the repository head.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/coderecap/coderecap/internal/recap"
	"github.com/coderecap/coderecap/pkg/gitlib"
)

// Options configures an Extractor.
type Options struct {
	// Author filters commits; see NewAuthorMatcher for the pattern forms.
	Author string
	// CacheDir enables the disk cache when non-empty.
	CacheDir string
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Extractor turns a repository's history into commit records.
type Extractor struct {
	matcher AuthorMatcher
	cache   *Cache
	logger  *slog.Logger
}

// New builds an Extractor. The cache directory is created eagerly so a
// misconfigured path fails the run up front, not mid-extraction.
func New(opts Options) (*Extractor, error) {
	extractor := &Extractor{
		matcher: NewAuthorMatcher(opts.Author),
		logger:  opts.Logger,
	}

	if extractor.logger == nil {
		extractor.logger = slog.New(slog.DiscardHandler)
	}

	if opts.CacheDir != "" {
		cache, err := NewCache(opts.CacheDir)
		if err != nil {
			return nil, err
		}

		extractor.cache = cache
	}

	return extractor, nil
}

// Extract walks commits of the repository at repoPath within [since, until),
// filters them by author, and returns records in chronological order. Merge
// commits are kept for the record but contribute no line stats.
func (e *Extractor) Extract(ctx context.Context, repoPath string, since, until time.Time) ([]recap.Commit, error) {
	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", repoPath, err)
	}
	defer repo.Free()

	key, cacheable := e.cacheKey(repo, since, until)
	if cacheable {
		if commits, ok := e.cache.Load(key); ok {
			e.logger.Debug("extraction served from cache",
				"repo", repo.Name(), "commits", len(commits))

			return commits, nil
		}
	}

	iter, err := repo.Log(&gitlib.LogOptions{Since: &since, Until: &until})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", repoPath, err)
	}
	defer iter.Close()

	var commits []recap.Commit

	err = iter.ForEach(func(commit *gitlib.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		author := commit.Author()
		if !e.matcher.Matches(author.Name, author.Email) {
			return nil
		}

		record, err := e.record(repo, commit)
		if err != nil {
			return err
		}

		commits = append(commits, record)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", repoPath, err)
	}

	sortCommits(commits)

	if cacheable {
		if err := e.cache.Store(key, commits); err != nil {
			e.logger.Warn("cache write failed", "repo", repo.Name(), "error", err)
		}
	}

	e.logger.Debug("extraction complete", "repo", repo.Name(), "commits", len(commits))

	return commits, nil
}

// record builds one immutable commit record.
func (e *Extractor) record(repo *gitlib.Repository, commit *gitlib.Commit) (recap.Commit, error) {
	author := commit.Author()
	subject, body := splitMessage(commit.Message())

	record := recap.Commit{
		Hash:    commit.Hash().String(),
		Author:  author.Name,
		Email:   author.Email,
		When:    author.When.UTC(),
		Subject: subject,
		Body:    body,
		Repo:    repo.Name(),
		Merge:   commit.NumParents() > 1,
	}

	if record.Merge {
		return record, nil
	}

	stats, err := commit.Stats()
	if err != nil {
		return recap.Commit{}, fmt.Errorf("stats for %s: %w", commit.Hash().Short(), err)
	}

	if len(stats) > 0 {
		record.Languages = make(map[string]recap.LineStats, len(stats))
	}

	record.FilesTouched = len(stats)

	for _, stat := range stats {
		lang := languageFor(stat.Path)
		record.Languages[lang] = record.Languages[lang].Add(recap.LineStats{
			Added:   stat.Added,
			Removed: stat.Removed,
		})
	}

	return record, nil
}

func (e *Extractor) cacheKey(repo *gitlib.Repository, since, until time.Time) (Key, bool) {
	if e.cache == nil {
		return Key{}, false
	}

	head, err := repo.Head()
	if err != nil {
		return Key{}, false
	}

	return Key{
		Repo:    repo.Name(),
		Head:    head.String(),
		Since:   since,
		Until:   until,
		Pattern: e.matcher.Pattern(),
	}, true
}

// splitMessage separates a commit message into its subject line and trimmed
// body.
func splitMessage(message string) (subject, body string) {
	message = strings.ReplaceAll(message, "\r\n", "\n")

	subject, body, _ = strings.Cut(message, "\n")

	return strings.TrimSpace(subject), strings.TrimSpace(body)
}

// sortCommits orders records chronologically, breaking timestamp ties by
// hash so reruns produce identical output.
func sortCommits(commits []recap.Commit) {
	sort.Slice(commits, func(i, j int) bool {
		if commits[i].When.Equal(commits[j].When) {
			return commits[i].Hash < commits[j].Hash
		}

		return commits[i].When.Before(commits[j].When)
	})
}
