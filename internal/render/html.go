package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/coderecap/coderecap/internal/aggregate"
)

const (
	chartWidth  = "100%"
	chartHeight = "420px"

	// maxPieSlices caps the language pie; smaller languages fold into one
	// remainder slice.
	maxPieSlices = 9
)

// HTML renders the report as a standalone page: the narrative converted from
// markdown, followed by activity charts built from the aggregates.
func HTML(report Report) (string, error) {
	narrative := markdownToHTML(Markdown(report))

	chartsHTML, err := chartFragments(report.Aggregates)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	err = pageTemplate.Execute(&buf, pageData{
		Title:     report.Title,
		Narrative: narrative,
		Charts:    chartsHTML,
	})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	return buf.String(), nil
}

// HTMLFromMarkdown wraps an existing markdown document in the report page,
// without charts. The first heading becomes the page title.
func HTMLFromMarkdown(markdown string) (string, error) {
	title := "Report"
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))

			break
		}
	}

	var buf bytes.Buffer

	err := pageTemplate.Execute(&buf, pageData{
		Title:     title,
		Narrative: markdownToHTML(markdown),
	})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	return buf.String(), nil
}

type pageData struct {
	Title     string
	Narrative template.HTML
	Charts    []template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script src="https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"></script>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; }
h1, h2, h3, h4 { line-height: 1.25; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; }
blockquote { border-left: 4px solid #e0a030; margin: 0; padding: 0.2rem 1rem; background: #fdf6e3; }
.chart-box { margin: 2rem 0; }
</style>
</head>
<body>
{{.Narrative}}
{{range .Charts}}<div class="chart-box">{{.}}</div>
{{end}}
</body>
</html>
`))

// chartFragments builds the three activity charts and strips each down to an
// embeddable div+script fragment.
func chartFragments(aggregates []aggregate.Aggregate) ([]template.HTML, error) {
	if len(aggregates) == 0 {
		return nil, nil
	}

	fragments := make([]template.HTML, 0, 3)

	for _, chart := range []interface{ Render(w io.Writer) error }{
		commitsChart(aggregates),
		linesChart(aggregates),
		languagePie(aggregates),
	} {
		var buf bytes.Buffer
		if err := chart.Render(&buf); err != nil {
			return nil, fmt.Errorf("render chart: %w", err)
		}

		fragments = append(fragments, template.HTML(extractChartFragment(buf.String())))
	}

	return fragments, nil
}

func commitsChart(aggregates []aggregate.Aggregate) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Commits per period"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	labels := make([]string, len(aggregates))
	data := make([]opts.BarData, len(aggregates))

	for i, agg := range aggregates {
		labels[i] = agg.Period.Label()
		data[i] = opts.BarData{Value: agg.Commits}
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Commits", data)

	return bar
}

func linesChart(aggregates []aggregate.Aggregate) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Lines added and removed"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	labels := make([]string, len(aggregates))
	added := make([]opts.BarData, len(aggregates))
	removed := make([]opts.BarData, len(aggregates))

	for i, agg := range aggregates {
		labels[i] = agg.Period.Label()
		added[i] = opts.BarData{Value: agg.LinesAdded}
		removed[i] = opts.BarData{Value: agg.LinesRemoved}
	}

	bar.SetXAxis(labels)
	bar.AddSeries("Added", added, charts.WithBarChartOpts(opts.BarChart{Stack: "lines"}))
	bar.AddSeries("Removed", removed, charts.WithBarChartOpts(opts.BarChart{Stack: "lines"}))

	return bar
}

func languagePie(aggregates []aggregate.Aggregate) *charts.Pie {
	churn := make(map[string]int)

	for _, agg := range aggregates {
		for lang, stats := range agg.ByLanguage {
			churn[lang] += stats.Added + stats.Removed
		}
	}

	type slice struct {
		name  string
		value int
	}

	slices := make([]slice, 0, len(churn))
	for lang, value := range churn {
		slices = append(slices, slice{lang, value})
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].value == slices[j].value {
			return slices[i].name < slices[j].name
		}

		return slices[i].value > slices[j].value
	})

	if len(slices) > maxPieSlices {
		rest := 0
		for _, s := range slices[maxPieSlices:] {
			rest += s.value
		}

		slices = append(slices[:maxPieSlices], slice{"Other", rest})
	}

	data := make([]opts.PieData, len(slices))
	for i, s := range slices {
		data[i] = opts.PieData{Name: s.name, Value: s.value}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Language churn"}),
	)
	pie.AddSeries("Languages", data)

	return pie
}

// extractChartFragment strips the echarts full-page output down to the chart
// container and its script. Non-page fragments pass through unchanged.
func extractChartFragment(html string) string {
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)

	return content
}

// markdownToHTML converts the limited markdown this tool emits (headings,
// paragraphs, blockquotes, bullet lists, tables, rules) to HTML. It is not a
// general markdown parser.
func markdownToHTML(markdown string) template.HTML {
	var (
		builder strings.Builder
		para    []string
		inList  bool
		inTable bool
	)

	flushPara := func() {
		if len(para) == 0 {
			return
		}

		builder.WriteString("<p>")
		builder.WriteString(template.HTMLEscapeString(strings.Join(para, " ")))
		builder.WriteString("</p>\n")

		para = nil
	}

	closeList := func() {
		if inList {
			builder.WriteString("</ul>\n")

			inList = false
		}
	}

	closeTable := func() {
		if inTable {
			builder.WriteString("</table>\n")

			inTable = false
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flushPara()
			closeList()
			closeTable()
		case strings.HasPrefix(trimmed, "#"):
			flushPara()
			closeList()
			closeTable()

			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}

			if level > maxHeadingDepth {
				level = maxHeadingDepth
			}

			text := strings.TrimSpace(trimmed[level:])
			fmt.Fprintf(&builder, "<h%d>%s</h%d>\n", level, template.HTMLEscapeString(text), level)
		case trimmed == "---":
			flushPara()
			closeList()
			closeTable()
			builder.WriteString("<hr>\n")
		case strings.HasPrefix(trimmed, "> "):
			flushPara()
			closeList()
			closeTable()
			fmt.Fprintf(&builder, "<blockquote>%s</blockquote>\n",
				template.HTMLEscapeString(strings.TrimPrefix(trimmed, "> ")))
		case strings.HasPrefix(trimmed, "- "):
			flushPara()
			closeTable()

			if !inList {
				builder.WriteString("<ul>\n")

				inList = true
			}

			fmt.Fprintf(&builder, "<li>%s</li>\n",
				template.HTMLEscapeString(strings.TrimPrefix(trimmed, "- ")))
		case strings.HasPrefix(trimmed, "|"):
			flushPara()
			closeList()

			if isTableRule(trimmed) {
				continue
			}

			if !inTable {
				builder.WriteString("<table>\n")

				inTable = true
			}

			builder.WriteString("<tr>")

			for _, cell := range splitTableRow(trimmed) {
				fmt.Fprintf(&builder, "<td>%s</td>", template.HTMLEscapeString(cell))
			}

			builder.WriteString("</tr>\n")
		default:
			closeList()
			closeTable()

			para = append(para, trimmed)
		}
	}

	flushPara()
	closeList()
	closeTable()

	return template.HTML(builder.String())
}

// isTableRule matches the |---|---:| separator row.
func isTableRule(line string) bool {
	return strings.Trim(line, "|-: ") == ""
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")

	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}

	return cells
}
