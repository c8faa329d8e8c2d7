package blog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/llm"
)

var testProfile = llm.Profile{
	Model:           "test-model",
	MaxInputTokens:  128000,
	InputCostPer1K:  1.0,
	OutputCostPer1K: 1.0,
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	meta := Metadata{
		Topic:  "Streaming rewrite",
		Period: "2025-Q1",
		Client: "acme",
		Author: "jane",
		Root:   "/srv/repos",
		Commits: []CommitRef{
			{SHA: "abc123de", Repo: "api"},
			{SHA: "deadbeef"},
		},
	}

	block, err := FormatMetadata(meta)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(block, "<!-- blog-research-meta\n"))
	assert.True(t, strings.HasSuffix(block, "-->"))

	parsed, ok := ParseMetadata("# Research: Streaming rewrite\n\n" + block + "\n\nbody text\n")
	require.True(t, ok)
	assert.Equal(t, meta, parsed)
}

func TestParseMetadataMissing(t *testing.T) {
	t.Parallel()

	_, ok := ParseMetadata("# Research: nothing here\n\njust prose\n")
	assert.False(t, ok)
}

func TestParseMetadataMalformedYAML(t *testing.T) {
	t.Parallel()

	content := "<!-- blog-research-meta\n{not yaml: [\n-->"

	_, ok := ParseMetadata(content)
	assert.False(t, ok)
}

func TestExtractCommitRefs(t *testing.T) {
	t.Parallel()

	content := "Changed in `abc123de` (api) and later `deadbeef`.\n" +
		"Mentioned `abc123de` again, plus `0123abc` (Billing-Service).\n" +
		"Not a ref: `notahash` or `ABC123DE`.\n"

	refs := ExtractCommitRefs(content)

	assert.Equal(t, []CommitRef{
		{SHA: "abc123de", Repo: "api"},
		{SHA: "deadbeef"},
		{SHA: "0123abc", Repo: "Billing-Service"},
	}, refs)
}

func TestFormatCommitsForPrompt(t *testing.T) {
	t.Parallel()

	when := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	commits := []DiffCommit{
		{
			Repo:    "api",
			Hash:    "abc123def4567890abc123def4567890abc123de",
			When:    when,
			Author:  "Jane Doe",
			Subject: "add rate limiting",
			Body:    "Token bucket per client key.",
			Diff:    "+func limit() {}\n-// old",
		},
		{
			Repo:    "web",
			Hash:    "1111111111111111111111111111111111111111",
			When:    when.Add(time.Hour),
			Author:  "Jane Doe",
			Subject: "bump api client",
		},
	}

	text := formatCommitsForPrompt(commits)

	assert.Contains(t, text, "# Git Commits (2 total)")
	assert.Contains(t, text, "## Commit: abc123de (api)")
	assert.Contains(t, text, "**Date**: 2025-03-14 09:30")
	assert.Contains(t, text, "**Author**: Jane Doe")
	assert.Contains(t, text, "**Subject**: add rate limiting")
	assert.Contains(t, text, "**Body**:\nToken bucket per client key.")
	assert.Contains(t, text, "**Diff**:\n```diff\n+func limit() {}\n-// old\n```")

	// The bodiless, diffless commit still gets its header block.
	assert.Contains(t, text, "## Commit: 11111111 (web)")
	assert.NotContains(t, strings.Split(text, "## Commit: 11111111")[1], "**Body**")
}

func TestFormatCommitsForPromptEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No commits found in the specified period.", formatCommitsForPrompt(nil))
}

func TestShortSHA(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc123de", shortSHA("abc123def4567890abc123def4567890abc123de"))
	assert.Equal(t, "abc", shortSHA("abc"))
}

func TestResearchNoCommits(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{}
	pipeline := &Pipeline{
		Client:  fake,
		Ledger:  costs.NewUnlimitedLedger(),
		Profile: testProfile,
	}

	research, err := pipeline.Research(context.Background(), ResearchRequest{
		Topic:  "nothing happened",
		Period: "2025-01",
		Since:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Root:   t.TempDir(),
	})
	require.NoError(t, err)

	assert.Contains(t, research, "No Commits Found")
	assert.Zero(t, fake.CallCount(), "no model call without commits")
}

func TestWriteUsesResearchAndFallbackNote(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{Reply: func(llm.Request) string {
		return "# A Post\n\nwords\n"
	}}
	ledger := costs.NewUnlimitedLedger()
	pipeline := &Pipeline{
		Client:        fake,
		Ledger:        ledger,
		Profile:       testProfile,
		GlobalContext: "We build developer tools.",
	}

	meta, err := FormatMetadata(Metadata{Topic: "Cache layer", Period: "2025-02"})
	require.NoError(t, err)

	research := "# Research: Cache layer\n\n" + meta + "\n\nFindings about `abc123de` (api).\n"

	post, err := pipeline.Write(context.Background(), research, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "# A Post\n\nwords\n", post)

	require.Equal(t, 1, fake.CallCount())
	call := fake.Calls()[0]
	assert.Contains(t, call.System, "expert technical writer")
	assert.Contains(t, call.System, "Company Background:\nWe build developer tools.")
	assert.Contains(t, call.Prompt, "# Research Summary")
	assert.Contains(t, call.Prompt, "Findings about `abc123de`")
	assert.Contains(t, call.Prompt, "(No referenced commits could be retrieved)")
	assert.Positive(t, ledger.Snapshot().USD)
}

func TestWriteWithoutMetadataStillWrites(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{}
	pipeline := &Pipeline{
		Client:  fake,
		Ledger:  costs.NewUnlimitedLedger(),
		Profile: testProfile,
	}

	_, err := pipeline.Write(context.Background(), "just notes, no block", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.CallCount())
}

func TestPipelineDryRun(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{}
	ledger := costs.NewUnlimitedLedger()
	pipeline := &Pipeline{
		Client:  fake,
		Ledger:  ledger,
		Profile: testProfile,
		DryRun:  true,
	}

	post, err := pipeline.Write(context.Background(), "notes", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, dryRunPlaceholder, post)
	assert.Zero(t, fake.CallCount())
	assert.Positive(t, ledger.Snapshot().USD, "dry run charges the estimate")
}

func TestPipelineBudgetExceeded(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{}
	pipeline := &Pipeline{
		Client:  fake,
		Ledger:  costs.NewLedger(0),
		Profile: testProfile,
	}

	_, err := pipeline.Write(context.Background(), "notes", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBudgetExceeded))
	assert.Zero(t, fake.CallCount())
}

func TestPipelineFatalError(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{Fatal: errors.New("invalid key")}
	ledger := costs.NewUnlimitedLedger()
	pipeline := &Pipeline{
		Client:  fake,
		Ledger:  ledger,
		Profile: testProfile,
	}

	_, err := pipeline.Write(context.Background(), "notes", t.TempDir())
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Zero(t, ledger.Snapshot().USD, "failed call releases its reservation")
}

func TestFullChainsStages(t *testing.T) {
	t.Parallel()

	fake := &llm.FakeClient{Reply: func(req llm.Request) string {
		if strings.Contains(req.Prompt, "# Research Summary") {
			return "the post"
		}

		return "the research"
	}}
	pipeline := &Pipeline{
		Client:  fake,
		Ledger:  costs.NewUnlimitedLedger(),
		Profile: testProfile,
	}

	// No commits in an empty root, so research short-circuits and only the
	// write stage reaches the model.
	research, post, err := pipeline.Full(context.Background(), ResearchRequest{
		Topic: "Quiet month",
		Since: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Root:  t.TempDir(),
	})
	require.NoError(t, err)

	assert.Contains(t, research, "No Commits Found")
	assert.Equal(t, "the post", post)
	assert.Equal(t, 1, fake.CallCount())
}
