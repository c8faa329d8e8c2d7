package extract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderecap/coderecap/internal/recap"
)

func TestAuthorMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		author  string
		email   string
		want    bool
	}{
		{"empty matches all", "", "Anyone", "anyone@example.com", true},
		{"name substring", "garcia", "Sam Garcia", "sam@example.com", true},
		{"name case-insensitive", "GARCIA", "sam garcia", "sam@example.com", true},
		{"email substring", "sam@", "Someone Else", "sam@example.com", true},
		{"domain form", "@example.com", "Sam Garcia", "sam@example.com", true},
		{"domain mismatch", "@example.com", "Sam Garcia", "sam@other.org", false},
		{"no match", "garcia", "Alex Chen", "alex@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			matcher := NewAuthorMatcher(tt.pattern)
			assert.Equal(t, tt.want, matcher.Matches(tt.author, tt.email))
		})
	}
}

func TestLanguageFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Go", languageFor("internal/extract/extract.go"))
	assert.Equal(t, "Python", languageFor("scripts/deploy.py"))
	assert.Equal(t, "Markdown", languageFor("README.md"))
	assert.Equal(t, otherLanguage, languageFor("assets/logo.bin"))
}

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	subject, body := splitMessage("add rate limiter\n\nToken bucket per client.\n")
	assert.Equal(t, "add rate limiter", subject)
	assert.Equal(t, "Token bucket per client.", body)

	subject, body = splitMessage("subject only")
	assert.Equal(t, "subject only", subject)
	assert.Empty(t, body)

	subject, body = splitMessage("crlf subject\r\n\r\ncrlf body")
	assert.Equal(t, "crlf subject", subject)
	assert.Equal(t, "crlf body", body)
}

func TestSortCommitsDeterministic(t *testing.T) {
	t.Parallel()

	when := time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)
	commits := []recap.Commit{
		{Hash: "bbbb", When: when},
		{Hash: "aaaa", When: when},
		{Hash: "cccc", When: when.Add(-time.Hour)},
	}

	sortCommits(commits)

	assert.Equal(t, []string{"cccc", "aaaa", "bbbb"},
		[]string{commits[0].Hash, commits[1].Hash, commits[2].Hash})
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	key := Key{
		Repo:    "api",
		Head:    "deadbeef",
		Since:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Pattern: "garcia",
	}

	commits := []recap.Commit{
		{
			Hash:      "aaaa",
			Author:    "Sam Garcia",
			When:      time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC),
			Subject:   "add rate limiter",
			Repo:      "api",
			Languages: map[string]recap.LineStats{"Go": {Added: 120, Removed: 40}},
		},
	}

	_, ok := cache.Load(key)
	assert.False(t, ok)

	require.NoError(t, cache.Store(key, commits))

	got, ok := cache.Load(key)
	require.True(t, ok)
	assert.Equal(t, commits, got)

	// A different head is a different entry.
	other := key
	other.Head = "cafebabe"

	_, ok = cache.Load(other)
	assert.False(t, ok)
}

func TestCacheIgnoresCorruptEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache, err := NewCache(dir)
	require.NoError(t, err)

	key := Key{Repo: "api", Head: "deadbeef"}

	require.NoError(t, cache.Store(key, []recap.Commit{{Hash: "aaaa"}}))

	// Truncate the entry in place.
	path := filepath.Join(dir, key.fileName())
	require.NoError(t, os.WriteFile(path, []byte("not lz4"), 0o644))

	_, ok := cache.Load(key)
	assert.False(t, ok)
}
