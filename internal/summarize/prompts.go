package summarize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/coderecap/coderecap/internal/aggregate"
)

// Placeholder narratives for nodes that never reach the provider.
const (
	// placeholderNoActivity is emitted for periods with zero commits.
	placeholderNoActivity = "No significant activity."
	// placeholderNotGenerated marks combine nodes above budget-skipped data.
	placeholderNotGenerated = "Not generated (budget exceeded)."
)

// omissionNote explains a gap to the model when a child narrative is missing,
// so combine calls are aware of gaps instead of silently dropping periods.
func omissionNote(node *Node) string {
	switch node.Status {
	case StatusSkippedBudget, StatusNotGenerated:
		return fmt.Sprintf("(Summary for %s was omitted for cost reasons; treat this period as a gap in the data.)", node.Period.Label())
	case StatusUnavailable:
		return fmt.Sprintf("(Summary for %s is unavailable after repeated provider failures.)", node.Period.Label())
	case StatusPending, StatusComputed, StatusPlanned, StatusEmpty:
		return ""
	default:
		return ""
	}
}

const leafSystemPrompt = `You are an expert software developer writing a concise narrative summary of git activity for a client-facing engineering report.

Summarize the work in the provided period: the themes, the notable features or fixes, and the overall direction. Group related commits; do not list every commit. Write 2-4 short paragraphs of plain prose. Do not invent work that is not supported by the commits.`

const combineSystemPrompt = `You are an expert software developer combining period summaries of git activity into one higher-level narrative for a client-facing engineering report.

Synthesize the child summaries into 2-4 short paragraphs: the arc of the work across the whole span, major themes, and how effort shifted over time. Some children may note omitted or unavailable data; acknowledge gaps briefly rather than guessing. Do not repeat the child summaries verbatim.`

// contextSuffix appends company/client context paragraphs to a system prompt.
func contextSuffix(global, client string) string {
	if global == "" && client == "" {
		return ""
	}

	var builder strings.Builder

	builder.WriteString("\n\n---\n\nContext:\n")

	if global != "" {
		fmt.Fprintf(&builder, "\nCompany Background:\n%s\n", global)
	}

	if client != "" {
		fmt.Fprintf(&builder, "\nClient Context:\n%s\n", client)
	}

	return builder.String()
}

// leafPrompt builds the user prompt for a leaf call from the period's
// aggregate and its bounded commit excerpt.
func leafPrompt(node *Node, excerpt string) string {
	agg := node.Source.Aggregate

	var builder strings.Builder

	fmt.Fprintf(&builder, "# Period: %s\n\n", node.Period.Label())
	builder.WriteString(statsBlock(agg))
	builder.WriteString("\n## Commits\n\n")
	builder.WriteString(excerpt)
	builder.WriteString("\n\nSummarize this period's engineering activity.")

	return builder.String()
}

// combinePrompt builds the user prompt for an internal node from its
// children's narratives only, never from raw commit data.
func combinePrompt(node *Node) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "# Combined period: %s\n\n", node.Period.Label())

	for _, child := range node.Children {
		fmt.Fprintf(&builder, "## %s\n\n", child.Period.Label())

		if note := omissionNote(child); note != "" {
			builder.WriteString(note)
		} else {
			builder.WriteString(child.Text)
		}

		builder.WriteString("\n\n")
	}

	builder.WriteString("Combine these period summaries into one narrative.")

	return builder.String()
}

// statsBlock renders an aggregate as a compact markdown stats list.
func statsBlock(agg aggregate.Aggregate) string {
	var builder strings.Builder

	builder.WriteString("## Statistics\n\n")
	fmt.Fprintf(&builder, "- Commits: %s\n", humanize.Comma(int64(agg.Commits)))
	fmt.Fprintf(&builder, "- Lines added: %s, removed: %s\n",
		humanize.Comma(int64(agg.LinesAdded)), humanize.Comma(int64(agg.LinesRemoved)))
	fmt.Fprintf(&builder, "- Active days: %d\n", agg.ActiveDays)

	if len(agg.ByLanguage) > 0 {
		fmt.Fprintf(&builder, "- Languages: %s\n", topEntries(languageChurn(agg), maxStatEntries))
	}

	if len(agg.ByProject) > 0 {
		fmt.Fprintf(&builder, "- Projects: %s\n", topEntries(agg.ByProject, maxStatEntries))
	}

	return builder.String()
}

// maxStatEntries caps how many languages/projects the stats block lists.
const maxStatEntries = 8

func languageChurn(agg aggregate.Aggregate) map[string]int {
	churn := make(map[string]int, len(agg.ByLanguage))
	for lang, stats := range agg.ByLanguage {
		churn[lang] = stats.Added + stats.Removed
	}

	return churn
}

// topEntries formats a count map as "name (n), name (n)" sorted by count
// descending, names ascending on ties.
func topEntries(counts map[string]int, limit int) string {
	type entry struct {
		name  string
		count int
	}

	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].name < entries[j].name
		}

		return entries[i].count > entries[j].count
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%s)", e.name, humanize.Comma(int64(e.count)))
	}

	return strings.Join(parts, ", ")
}
