// Package recap defines the data model shared across the pipeline:
// immutable commit records, calendar periods, and period granularities.
package recap

import "time"

// LineStats holds added/removed line counts.
type LineStats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Add returns the element-wise sum of two LineStats.
func (s LineStats) Add(other LineStats) LineStats {
	return LineStats{
		Added:   s.Added + other.Added,
		Removed: s.Removed + other.Removed,
	}
}

// Commit is an immutable record of a single commit. Created once by the
// extractor and never mutated afterwards.
type Commit struct {
	Hash         string               `json:"hash"`
	Author       string               `json:"author"`
	Email        string               `json:"email"`
	When         time.Time            `json:"when"`
	Subject      string               `json:"subject"`
	Body         string               `json:"body,omitempty"`
	Repo         string               `json:"repo"`
	Languages    map[string]LineStats `json:"languages,omitempty"`
	FilesTouched int                  `json:"files_touched"`
	Merge        bool                 `json:"merge,omitempty"`
}

// Added returns the total lines added across all languages.
func (c Commit) Added() int {
	total := 0
	for _, stats := range c.Languages {
		total += stats.Added
	}

	return total
}

// Removed returns the total lines removed across all languages.
func (c Commit) Removed() int {
	total := 0
	for _, stats := range c.Languages {
		total += stats.Removed
	}

	return total
}

// LineDelta returns the total line churn (added + removed), used to rank
// commit significance when excerpts must be truncated.
func (c Commit) LineDelta() int {
	return c.Added() + c.Removed()
}
