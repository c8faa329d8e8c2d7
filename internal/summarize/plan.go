package summarize

import (
	"errors"
	"sort"
	"time"

	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/llm"
	"github.com/coderecap/coderecap/internal/recap"
)

// Planning errors.
var (
	// ErrNoSources is returned when there is nothing to summarize.
	ErrNoSources = errors.New("summarize: no source periods")
	// ErrMixedGranularity is returned when sources disagree on granularity.
	ErrMixedGranularity = errors.New("summarize: sources have mixed granularities")
	// ErrGranularityOrder is returned when the coarsest level is not
	// reachable from the sources' granularity.
	ErrGranularityOrder = errors.New("summarize: coarsest granularity is finer than the sources")
)

// Config holds the knobs shared by planning and execution. The same Config
// drives dry and real runs so both produce the same tree shape.
type Config struct {
	// Finest is the leaf granularity. Derived from the sources by Plan.
	Finest recap.Granularity
	// Coarsest is the granularity of the top calendar level.
	Coarsest recap.Granularity

	// Profile selects the model and its pricing.
	Profile llm.Profile
	// Temperature is passed through to the provider.
	Temperature float32

	// GlobalContext and ClientContext are appended to every system prompt.
	GlobalContext string
	ClientContext string

	// DryRun plans and prices calls without issuing any.
	DryRun bool

	// MaxExcerptTokens bounds the commit excerpt of one leaf call.
	// Zero picks a default from the profile's input window.
	MaxExcerptTokens int
	// EstimatedOutputTokens is the assumed narrative length used for cost
	// estimation before a call is issued.
	EstimatedOutputTokens int
	// Concurrency bounds how many calls within one level run at once.
	Concurrency int
}

const (
	defaultEstimatedOutputTokens = 700
	defaultMaxExcerptTokens      = 8000

	// perChildOverheadTokens approximates the heading and spacing that a
	// combine prompt adds around each child narrative.
	perChildOverheadTokens = 16
)

// withDefaults fills zero-valued knobs.
func (c Config) withDefaults() Config {
	if c.EstimatedOutputTokens <= 0 {
		c.EstimatedOutputTokens = defaultEstimatedOutputTokens
	}

	if c.MaxExcerptTokens <= 0 {
		c.MaxExcerptTokens = defaultMaxExcerptTokens

		if c.Profile.MaxInputTokens > 0 {
			c.MaxExcerptTokens = c.Profile.MaxInputTokens / 2
		}
	}

	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}

	return c
}

// Plan builds the deterministic summary tree for the given sources: one leaf
// per source period in chronological order, grouped into every calendar level
// up to cfg.Coarsest, topped by a synthetic whole-range root when the top
// level still holds more than one node. Every node carries a cost estimate;
// nothing is spent. Planning the same sources with the same Config always
// yields the same shape.
func Plan(sources []Source, cfg Config, ledger *costs.Ledger) (*Tree, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	cfg = cfg.withDefaults()
	cfg.Finest = sources[0].Period.Granularity

	for _, source := range sources {
		if source.Period.Granularity != cfg.Finest {
			return nil, ErrMixedGranularity
		}
	}

	if !reachable(cfg.Finest, cfg.Coarsest) {
		return nil, ErrGranularityOrder
	}

	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Period.Start.Before(ordered[j].Period.Start)
	})

	rangeStart := ordered[0].Period.Start
	rangeEnd := ordered[len(ordered)-1].Period.End

	leaves := make([]*Node, len(ordered))
	for i := range ordered {
		leaves[i] = planLeaf(&ordered[i], cfg, ledger)
	}

	tree := &Tree{Levels: [][]*Node{leaves}, Config: cfg}

	level := leaves
	for granularity := cfg.Finest; granularity != cfg.Coarsest; {
		coarser, ok := granularity.NextCoarser()
		if !ok {
			break
		}

		granularity = coarser
		level = groupLevel(level, granularity, rangeStart, rangeEnd, cfg, ledger)
		tree.Levels = append(tree.Levels, level)
	}

	if len(level) > 1 {
		root := planCombine(recap.Period{
			Granularity: recap.Year,
			Start:       rangeStart,
			End:         rangeEnd,
		}, level, cfg, ledger)
		tree.Levels = append(tree.Levels, []*Node{root})
		level = []*Node{root}
	}

	tree.Root = level[0]

	return tree, nil
}

// planLeaf resolves empty periods immediately and estimates the call for the
// rest.
func planLeaf(source *Source, cfg Config, ledger *costs.Ledger) *Node {
	node := &Node{Period: source.Period, Source: source}

	if source.Aggregate.IsEmpty() {
		node.Status = StatusEmpty
		node.Text = placeholderNoActivity

		return node
	}

	excerpt := buildExcerpt(source.Aggregate.CommitList, cfg.MaxExcerptTokens, ledger.EstimateTokens)
	system := leafSystemPrompt + contextSuffix(cfg.GlobalContext, cfg.ClientContext)

	node.EstInputTokens = ledger.EstimateTokens(system) + ledger.EstimateTokens(leafPrompt(node, excerpt))
	node.EstOutputTokens = cfg.EstimatedOutputTokens
	node.EstCostUSD = cfg.Profile.Pricing().Cost(node.EstInputTokens, node.EstOutputTokens)

	return node
}

// planCombine builds an internal node over children. A parent whose children
// are all empty is itself empty and will never reach the provider.
func planCombine(period recap.Period, children []*Node, cfg Config, ledger *costs.Ledger) *Node {
	node := &Node{Period: period, Children: children}

	if allEmpty(children) {
		node.Status = StatusEmpty
		node.Text = placeholderNoActivity

		return node
	}

	system := combineSystemPrompt + contextSuffix(cfg.GlobalContext, cfg.ClientContext)

	input := ledger.EstimateTokens(system) + len(children)*perChildOverheadTokens
	for _, child := range children {
		if child.EstOutputTokens > 0 {
			input += child.EstOutputTokens
		} else {
			input += ledger.EstimateTokens(child.Text)
		}
	}

	node.EstInputTokens = input
	node.EstOutputTokens = cfg.EstimatedOutputTokens
	node.EstCostUSD = cfg.Profile.Pricing().Cost(node.EstInputTokens, node.EstOutputTokens)

	return node
}

// groupLevel buckets the nodes of one level into the calendar periods of the
// next coarser granularity. Parent periods with no children are not
// materialized.
func groupLevel(children []*Node, granularity recap.Granularity, start, end time.Time, cfg Config, ledger *costs.Ledger) []*Node {
	parents := make([]*Node, 0)

	for _, period := range recap.Split(start, end, granularity) {
		var grouped []*Node

		for _, child := range children {
			if period.ContainsPeriod(child.Period) {
				grouped = append(grouped, child)
			}
		}

		if len(grouped) == 0 {
			continue
		}

		parents = append(parents, planCombine(period, grouped, cfg, ledger))
	}

	return parents
}

func allEmpty(nodes []*Node) bool {
	for _, node := range nodes {
		if node.Status != StatusEmpty {
			return false
		}
	}

	return true
}

// reachable reports whether coarse can be reached from fine by repeated
// calendar coarsening (equal granularities are reachable).
func reachable(fine, coarse recap.Granularity) bool {
	for current := fine; ; {
		if current == coarse {
			return true
		}

		next, ok := current.NextCoarser()
		if !ok {
			return false
		}

		current = next
	}
}
