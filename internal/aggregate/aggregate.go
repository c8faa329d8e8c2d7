// Package aggregate buckets commit records into calendar periods and reduces
// them to per-period statistics.
package aggregate

import (
	"sort"
	"time"

	"github.com/coderecap/coderecap/internal/recap"
)

// Aggregate is the pure reduction of one period's commits. Recomputing an
// Aggregate from the same commit set is idempotent and order-independent.
type Aggregate struct {
	Period       recap.Period
	Commits      int
	LinesAdded   int
	LinesRemoved int
	ActiveDays   int
	ByLanguage   map[string]recap.LineStats
	ByProject    map[string]int

	// CommitList keeps the period's commits in chronological order for
	// excerpt building. Ties on timestamp break by hash.
	CommitList []recap.Commit
}

// IsEmpty reports whether the period saw no commits.
func (a Aggregate) IsEmpty() bool {
	return a.Commits == 0
}

// NetLines returns added minus removed lines.
func (a Aggregate) NetLines() int {
	return a.LinesAdded - a.LinesRemoved
}

// TopLanguage returns the language with the largest churn, or "".
func (a Aggregate) TopLanguage() string {
	best, bestChurn := "", -1

	for lang, stats := range a.ByLanguage {
		churn := stats.Added + stats.Removed
		if churn > bestChurn || (churn == bestChurn && lang < best) {
			best, bestChurn = lang, churn
		}
	}

	return best
}

// TopProject returns the project with the most commits, or "".
func (a Aggregate) TopProject() string {
	best, bestCount := "", -1

	for project, count := range a.ByProject {
		if count > bestCount || (count == bestCount && project < best) {
			best, bestCount = project, count
		}
	}

	return best
}

// Bucket assigns each commit to the single period containing its timestamp
// and reduces every period to an Aggregate. Periods without commits yield
// zero-valued aggregates so downstream stages see the gaps. Commits outside
// every period are dropped.
func Bucket(commits []recap.Commit, periods []recap.Period) []Aggregate {
	aggregates := make([]Aggregate, len(periods))
	for i, period := range periods {
		aggregates[i] = newAggregate(period)
	}

	for _, commit := range commits {
		idx := findPeriod(periods, commit.When)
		if idx < 0 {
			continue
		}

		aggregates[idx].add(commit)
	}

	for i := range aggregates {
		aggregates[i].finalize()
	}

	return aggregates
}

// Merge combines two aggregates covering adjacent spans into one covering
// both. Active days are summed, which is exact when the inputs are disjoint.
func Merge(a, b Aggregate) Aggregate {
	merged := Aggregate{
		Period: recap.Period{
			Granularity: a.Period.Granularity,
			Start:       minTime(a.Period.Start, b.Period.Start),
			End:         maxTime(a.Period.End, b.Period.End),
		},
		Commits:      a.Commits + b.Commits,
		LinesAdded:   a.LinesAdded + b.LinesAdded,
		LinesRemoved: a.LinesRemoved + b.LinesRemoved,
		ActiveDays:   a.ActiveDays + b.ActiveDays,
		ByLanguage:   make(map[string]recap.LineStats, len(a.ByLanguage)+len(b.ByLanguage)),
		ByProject:    make(map[string]int, len(a.ByProject)+len(b.ByProject)),
	}

	for _, src := range []Aggregate{a, b} {
		for lang, stats := range src.ByLanguage {
			merged.ByLanguage[lang] = merged.ByLanguage[lang].Add(stats)
		}

		for project, count := range src.ByProject {
			merged.ByProject[project] += count
		}

		merged.CommitList = append(merged.CommitList, src.CommitList...)
	}

	sortCommits(merged.CommitList)

	return merged
}

func newAggregate(period recap.Period) Aggregate {
	return Aggregate{
		Period:     period,
		ByLanguage: make(map[string]recap.LineStats),
		ByProject:  make(map[string]int),
	}
}

func (a *Aggregate) add(commit recap.Commit) {
	a.Commits++
	a.LinesAdded += commit.Added()
	a.LinesRemoved += commit.Removed()
	a.ByProject[commit.Repo]++

	for lang, stats := range commit.Languages {
		a.ByLanguage[lang] = a.ByLanguage[lang].Add(stats)
	}

	a.CommitList = append(a.CommitList, commit)
}

func (a *Aggregate) finalize() {
	sortCommits(a.CommitList)

	days := make(map[string]struct{})
	for _, commit := range a.CommitList {
		days[commit.When.UTC().Format("2006-01-02")] = struct{}{}
	}

	a.ActiveDays = len(days)
}

func sortCommits(commits []recap.Commit) {
	sort.SliceStable(commits, func(i, j int) bool {
		if commits[i].When.Equal(commits[j].When) {
			return commits[i].Hash < commits[j].Hash
		}

		return commits[i].When.Before(commits[j].When)
	})
}

func findPeriod(periods []recap.Period, t time.Time) int {
	for i, period := range periods {
		if period.Contains(t) {
			return i
		}
	}

	return -1
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}

	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}
