package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/summarize"
)

// maxHeadingDepth caps markdown heading nesting.
const maxHeadingDepth = 6

// Markdown renders the report as a markdown document: narrative sections from
// the root down, a statistics table, the skipped-period list, and the run
// cost footer.
func Markdown(report Report) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "# %s: %s\n\n", report.Title, report.Tree.Root.Period.Label())

	if report.Tree.Incomplete() {
		builder.WriteString("> Generation incomplete: some periods were skipped to stay under the cost ceiling.\n\n")
	}

	writeNarrative(&builder, report.Tree.Root, 2)

	builder.WriteString("## Statistics\n\n")
	builder.WriteString(StatsTable(report.Aggregates))

	if skipped := report.Tree.SkippedNodes(); len(skipped) > 0 {
		builder.WriteString("\n## Skipped periods\n\n")

		for _, node := range skipped {
			fmt.Fprintf(&builder, "- %s: %s\n", node.Period.Label(), node.Status)
		}
	}

	fmt.Fprintf(&builder, "\n---\n\n%s\n", report.Totals.Summary())

	return builder.String()
}

// writeNarrative emits the node's text and recurses into children with
// deeper headings. The root's text appears under the document title; every
// other node gets its period label as a heading.
func writeNarrative(builder *strings.Builder, node *summarize.Node, depth int) {
	if node.Text != "" {
		builder.WriteString(strings.TrimSpace(node.Text))
		builder.WriteString("\n\n")
	}

	if node.IsLeaf() {
		return
	}

	childDepth := depth
	if childDepth > maxHeadingDepth {
		childDepth = maxHeadingDepth
	}

	for _, child := range node.Children {
		fmt.Fprintf(builder, "%s %s\n\n", strings.Repeat("#", childDepth), child.Period.Label())
		writeNarrative(builder, child, depth+1)
	}
}

// StatsTable renders aggregates as a markdown table.
func StatsTable(aggregates []aggregate.Aggregate) string {
	var builder strings.Builder

	builder.WriteString("| Period | Commits | Added | Removed | Active days | Top language | Top project |\n")
	builder.WriteString("|---|---:|---:|---:|---:|---|---|\n")

	for _, agg := range aggregates {
		fmt.Fprintf(&builder, "| %s | %s | %s | %s | %d | %s | %s |\n",
			agg.Period.Label(),
			humanize.Comma(int64(agg.Commits)),
			humanize.Comma(int64(agg.LinesAdded)),
			humanize.Comma(int64(agg.LinesRemoved)),
			agg.ActiveDays,
			agg.TopLanguage(),
			agg.TopProject(),
		)
	}

	return builder.String()
}
