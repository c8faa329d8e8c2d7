// Package render turns a resolved summary tree and its aggregates into
// markdown, CSV, terminal, and HTML reports.
package render

import (
	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/summarize"
)

// Report bundles everything a renderer needs for one run.
type Report struct {
	Title      string
	Tree       *summarize.Tree
	Aggregates []aggregate.Aggregate
	Totals     costs.Totals
}
