package render

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/recap"
)

// Text renders aggregates as a terminal table with a totals footer.
func Text(title string, aggregates []aggregate.Aggregate) string {
	var builder strings.Builder

	builder.WriteString(color.New(color.Bold).Sprint(title))
	builder.WriteString("\n")

	writer := table.NewWriter()
	writer.SetStyle(table.StyleLight)
	writer.AppendHeader(table.Row{"Period", "Commits", "Added", "Removed", "Active days", "Top language", "Top project"})

	total := aggregate.Aggregate{Period: recap.Period{}}

	for _, agg := range aggregates {
		writer.AppendRow(table.Row{
			agg.Period.Label(),
			humanize.Comma(int64(agg.Commits)),
			humanize.Comma(int64(agg.LinesAdded)),
			humanize.Comma(int64(agg.LinesRemoved)),
			agg.ActiveDays,
			agg.TopLanguage(),
			agg.TopProject(),
		})

		total = aggregate.Merge(total, agg)
	}

	writer.AppendFooter(table.Row{
		"Total",
		humanize.Comma(int64(total.Commits)),
		humanize.Comma(int64(total.LinesAdded)),
		humanize.Comma(int64(total.LinesRemoved)),
		"", "", "",
	})

	builder.WriteString(writer.Render())
	builder.WriteString("\n")

	return builder.String()
}

// CommitTable renders a flat commit listing, used by the commits subcommand.
func CommitTable(commits []recap.Commit) string {
	writer := table.NewWriter()
	writer.SetStyle(table.StyleLight)
	writer.AppendHeader(table.Row{"Time", "Hash", "Repo", "Subject", "Added", "Removed"})

	for _, commit := range commits {
		hash := commit.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}

		writer.AppendRow(table.Row{
			commit.When.UTC().Format("2006-01-02 15:04"),
			hash,
			commit.Repo,
			commit.Subject,
			commit.Added(),
			commit.Removed(),
		})
	}

	return writer.Render() + "\n"
}
