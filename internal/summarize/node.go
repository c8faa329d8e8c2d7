// Package summarize implements the cost-bounded hierarchical summarization
// pipeline: period aggregates become leaf narratives, leaves combine into
// coarser calendar levels, and every call is checked against a shared cost
// ledger before it is issued.
package summarize

import (
	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/recap"
)

// Status is the terminal state of one summary node.
type Status int

const (
	// StatusPending means the node has not been resolved yet.
	StatusPending Status = iota
	// StatusComputed means the narrative was generated.
	StatusComputed
	// StatusPlanned means a dry run determined the call would be issued.
	StatusPlanned
	// StatusEmpty means the period had no activity; a placeholder narrative
	// was emitted without spending anything.
	StatusEmpty
	// StatusSkippedBudget means the call was not issued because it would
	// exceed the cost ceiling. Not an error: a degraded-but-complete result.
	StatusSkippedBudget
	// StatusUnavailable means transient failures exhausted the retry budget.
	StatusUnavailable
	// StatusNotGenerated means a combine node was not attempted because data
	// below it was budget-skipped.
	StatusNotGenerated
)

// statusNames maps statuses to report spellings.
var statusNames = map[Status]string{
	StatusPending:       "pending",
	StatusComputed:      "computed",
	StatusPlanned:       "planned",
	StatusEmpty:         "empty",
	StatusSkippedBudget: "budget-skipped",
	StatusUnavailable:   "unavailable",
	StatusNotGenerated:  "not generated (budget exceeded)",
}

// String returns the report spelling of the status.
func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "unknown"
	}

	return name
}

// Resolved reports whether the node reached a terminal state.
func (s Status) Resolved() bool {
	return s != StatusPending
}

// Source is one leaf input: a period's aggregate plus its chronological
// commit list for excerpt building.
type Source struct {
	Period    recap.Period
	Aggregate aggregate.Aggregate
}

// Node is one vertex of the summary tree. Leaves consume a Source; internal
// nodes consume only their children's narrative text, never raw commits.
type Node struct {
	Period   recap.Period
	Status   Status
	Text     string
	Children []*Node
	Source   *Source // Leaves only.

	// Estimates computed by the planner (identical in dry and real runs).
	EstInputTokens  int
	EstOutputTokens int
	EstCostUSD      float64

	// Actuals from the provider for computed nodes.
	InputTokens  int
	OutputTokens int
	CostUSD      float64

	Err error // Populated for unavailable nodes.
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is the planned (and, after Run, resolved) summary node hierarchy.
// Levels are ordered finest first; the last level contains only the root.
type Tree struct {
	Root   *Node
	Levels [][]*Node
	Config Config
}

// Walk visits every node depth-first, children before parents.
func (t *Tree) Walk(fn func(*Node)) {
	var walk func(*Node)

	walk = func(node *Node) {
		for _, child := range node.Children {
			walk(child)
		}

		fn(node)
	}

	walk(t.Root)
}

// Leaves returns the finest-granularity nodes in chronological order.
func (t *Tree) Leaves() []*Node {
	if len(t.Levels) == 0 {
		return nil
	}

	return t.Levels[0]
}

// SkippedNodes returns every node that was budget-skipped or left
// ungenerated, in level order, for the run report.
func (t *Tree) SkippedNodes() []*Node {
	var skipped []*Node

	for _, level := range t.Levels {
		for _, node := range level {
			if node.Status == StatusSkippedBudget || node.Status == StatusNotGenerated {
				skipped = append(skipped, node)
			}
		}
	}

	return skipped
}

// Incomplete reports whether any node was skipped for budget reasons, i.e.
// the run produced a smaller-than-requested tree.
func (t *Tree) Incomplete() bool {
	return len(t.SkippedNodes()) > 0
}

// CallCount returns how many nodes would issue (or issued) a provider call:
// every node that is not empty, skipped, or ungenerated.
func (t *Tree) CallCount() int {
	count := 0

	t.Walk(func(node *Node) {
		switch node.Status {
		case StatusComputed, StatusPlanned, StatusPending:
			count++
		case StatusEmpty, StatusSkippedBudget, StatusUnavailable, StatusNotGenerated:
		}
	})

	return count
}

// EstimatedCost returns the summed planner estimate over nodes that would
// issue calls.
func (t *Tree) EstimatedCost() float64 {
	total := 0.0

	t.Walk(func(node *Node) {
		if node.Status == StatusPlanned || node.Status == StatusComputed || node.Status == StatusPending {
			total += node.EstCostUSD
		}
	})

	return total
}
