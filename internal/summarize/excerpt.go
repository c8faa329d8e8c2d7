package summarize

import (
	"fmt"
	"strings"

	"github.com/coderecap/coderecap/internal/recap"
)

// commitLine formats one commit for the excerpt.
func commitLine(commit recap.Commit) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "- %s %s [%s] %s (+%d/-%d)",
		commit.When.UTC().Format("2006-01-02"),
		shortHash(commit.Hash),
		commit.Repo,
		commit.Subject,
		commit.Added(),
		commit.Removed(),
	)

	if commit.Body != "" {
		fmt.Fprintf(&builder, "\n  %s", strings.ReplaceAll(strings.TrimSpace(commit.Body), "\n", "\n  "))
	}

	return builder.String()
}

const shortHashLen = 8

func shortHash(hash string) string {
	if len(hash) <= shortHashLen {
		return hash
	}

	return hash[:shortHashLen]
}

// buildExcerpt renders the period's commits as prompt text, bounded by an
// estimated token budget. When over budget, commits with the smallest line
// delta are dropped first; the survivors keep chronological order. The exact
// drop order is a tunable policy, not a contract.
func buildExcerpt(commits []recap.Commit, maxTokens int, estimate func(string) int) string {
	if len(commits) == 0 {
		return ""
	}

	keep := make([]recap.Commit, len(commits))
	copy(keep, commits)

	for len(keep) > 0 {
		text := renderExcerpt(keep, len(commits)-len(keep))
		if maxTokens <= 0 || estimate(text) <= maxTokens {
			return text
		}

		keep = dropLeastSignificant(keep)
	}

	return fmt.Sprintf("(%d commits omitted: excerpt exceeds the per-call input budget)", len(commits))
}

func renderExcerpt(commits []recap.Commit, omitted int) string {
	lines := make([]string, 0, len(commits)+1)

	for _, commit := range commits {
		lines = append(lines, commitLine(commit))
	}

	if omitted > 0 {
		lines = append(lines, fmt.Sprintf("(%d smaller commits omitted to fit the input budget)", omitted))
	}

	return strings.Join(lines, "\n")
}

// dropLeastSignificant removes the commit with the smallest line delta
// (ties: latest first drops last, i.e. earlier position wins on tie) while
// preserving the chronological order of the rest.
func dropLeastSignificant(commits []recap.Commit) []recap.Commit {
	if len(commits) == 0 {
		return commits
	}

	idx := 0
	for i, commit := range commits {
		if commit.LineDelta() < commits[idx].LineDelta() {
			idx = i
		}
	}

	out := make([]recap.Commit, 0, len(commits)-1)
	out = append(out, commits[:idx]...)
	out = append(out, commits[idx+1:]...)

	return out
}
