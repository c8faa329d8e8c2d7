// Package blog generates blog posts from git activity in two stages:
// research identifies relevant changes and records commit references, write
// turns reviewed research into a post using the full diffs of those commits.
package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/extract"
	"github.com/coderecap/coderecap/internal/llm"
)

const researchSystemPrompt = `You are an expert software developer analyzing git commits to research material for a blog post.

Your task is to review the provided git activity and identify changes that are relevant to the blog post topic. For each relevant change:

1. Note the commit SHA (use the full SHA provided, it will be truncated for display)
2. List the files that were modified
3. Summarize what was changed and why it's relevant to the blog topic
4. Include key code snippets that would be useful for the blog post

Be thorough: the commits you reference will be retrieved in full during the writing stage, so make sure to identify all relevant work.

Structure your response with a "## Summary" overview followed by a "## Relevant Changes" section containing one subsection per change, each listing its commits, files, and repository.

If no relevant changes are found, clearly state that and explain what was searched.

IMPORTANT: Always include commit SHAs so they can be retrieved later. Use the format ` + "`abc123de`" + ` (8 characters).`

const writeSystemPrompt = `You are an expert technical writer creating a blog post from research notes.

You have been provided with:
1. A research summary identifying relevant code changes
2. The full diffs of the referenced commits

Write an engaging, informative blog post based on this material: a compelling introduction, the problem being solved, a walk through the implementation with code taken from the provided diffs (never fabricated), insights about design decisions, and a conclusion with key takeaways.

The tone should be professional but approachable, like explaining to a fellow developer.

Format the output as clean markdown suitable for publishing: a title heading, section headings, and code blocks with language tags. Do NOT include meta-commentary about writing the blog post; output only the post itself.`

// ErrBudgetExceeded is returned when a blog call would cross the ledger
// ceiling. Blog stages are single calls, so there is nothing to degrade to.
var ErrBudgetExceeded = errors.New("blog: cost ceiling would be exceeded")

// dryRunPlaceholder stands in for model output during dry runs.
const dryRunPlaceholder = "*(Dry run: no content was generated.)*"

// Pipeline drives both blog stages through one client and ledger.
type Pipeline struct {
	Client        llm.Client
	Ledger        *costs.Ledger
	Logger        *slog.Logger
	Profile       llm.Profile
	Temperature   float32
	GlobalContext string
	ClientContext string
	MaxDiffLines  int
	DryRun        bool
}

// ResearchRequest describes what to research.
type ResearchRequest struct {
	Topic      string
	Period     string
	Since      time.Time
	Until      time.Time
	Author     string
	ClientName string
	Root       string
	Repos      []string
}

// Research gathers the period's commits with diffs, asks the model to
// identify changes relevant to the topic, and returns research markdown with
// the metadata block embedded.
func (p *Pipeline) Research(ctx context.Context, req ResearchRequest) (string, error) {
	matcher := extract.NewAuthorMatcher(req.Author)

	commits, err := gatherPeriod(req.Repos, req.Since, req.Until, matcher, p.maxDiffLines())
	if err != nil {
		return "", err
	}

	p.logger().Info("research commits gathered", "commits", len(commits), "repos", len(req.Repos))

	if len(commits) == 0 {
		return "# Research: No Commits Found\n\nNo commits were found in the specified period.\n", nil
	}

	prompt := fmt.Sprintf(
		"# Blog Post Topic\n%s\n\n# Time Period\n%s to %s\n\n%s\nPlease analyze these commits and identify changes relevant to the blog post topic.",
		req.Topic,
		req.Since.Format("2006-01-02"),
		req.Until.Format("2006-01-02"),
		formatCommitsForPrompt(commits),
	)

	content, err := p.complete(ctx, researchSystemPrompt, prompt)
	if err != nil {
		return "", err
	}

	meta, err := FormatMetadata(Metadata{
		Topic:   req.Topic,
		Period:  req.Period,
		Client:  req.ClientName,
		Author:  req.Author,
		Root:    req.Root,
		Commits: ExtractCommitRefs(content),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("# Research: %s\n\n%s\n\n%s\n", req.Topic, meta, content), nil
}

// Write turns research markdown into a blog post. Referenced commits are
// re-retrieved by SHA so the write stage sees full diffs even when the
// research was trimmed by hand.
func (p *Pipeline) Write(ctx context.Context, research string, root string) (string, error) {
	meta, ok := ParseMetadata(research)
	if !ok {
		p.logger().Warn("research has no metadata block; using content references only")
	}

	if meta.Root != "" {
		root = meta.Root
	}

	refs := append(meta.Commits, ExtractCommitRefs(research)...)

	commits, err := retrieveRefs(root, refs, p.maxDiffLines())
	if err != nil {
		return "", err
	}

	p.logger().Info("referenced commits retrieved", "refs", len(refs), "found", len(commits))

	commitsText := "(No referenced commits could be retrieved)"
	if len(commits) > 0 {
		commitsText = formatCommitsForPrompt(commits)
	}

	prompt := fmt.Sprintf(
		"# Research Summary\n\n%s\n\n# Full Diffs for Referenced Commits\n\n%s\nPlease write a blog post based on this research. Use the actual code from the diffs for examples.",
		research,
		commitsText,
	)

	return p.complete(ctx, writeSystemPrompt, prompt)
}

// Full chains research and write in one run; the second stage spends whatever
// budget the first left on the shared ledger.
func (p *Pipeline) Full(ctx context.Context, req ResearchRequest) (research, post string, err error) {
	research, err = p.Research(ctx, req)
	if err != nil {
		return "", "", err
	}

	post, err = p.Write(ctx, research, req.Root)
	if err != nil {
		return research, "", err
	}

	return research, post, nil
}

// complete issues one budget-checked call.
func (p *Pipeline) complete(ctx context.Context, system, prompt string) (string, error) {
	system += contextSuffix(p.GlobalContext, p.ClientContext)

	estIn := p.Ledger.EstimateTokens(system) + p.Ledger.EstimateTokens(prompt)
	estimate := p.Profile.Pricing().Cost(estIn, estimatedPostTokens)

	reservation, ok := p.Ledger.Reserve(estimate)
	if !ok {
		return "", fmt.Errorf("%w: estimated $%.4f", ErrBudgetExceeded, estimate)
	}

	if p.DryRun {
		reservation.Commit(estIn, estimatedPostTokens, p.Profile.Pricing())
		p.logger().Info("dry run: call not issued", "estimated_usd", estimate)

		return dryRunPlaceholder, nil
	}

	resp, err := p.Client.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Profile:     p.Profile,
		Temperature: p.Temperature,
	})
	if err != nil {
		reservation.Cancel()

		return "", fmt.Errorf("blog call: %w", err)
	}

	reservation.Commit(resp.InputTokens, resp.OutputTokens, p.Profile.Pricing())

	return resp.Text, nil
}

// estimatedPostTokens is the assumed output size for cost estimation.
const estimatedPostTokens = 1500

func (p *Pipeline) maxDiffLines() int {
	if p.MaxDiffLines > 0 {
		return p.MaxDiffLines
	}

	return DefaultMaxDiffLines
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return p.Logger
}

// contextSuffix mirrors the summarizer's context block so blog prompts see
// the same company/client background.
func contextSuffix(global, client string) string {
	if global == "" && client == "" {
		return ""
	}

	suffix := "\n\n---\n\nContext:\n"

	if global != "" {
		suffix += "\nCompany Background:\n" + global + "\n"
	}

	if client != "" {
		suffix += "\nClient Context:\n" + client + "\n"
	}

	return suffix
}
