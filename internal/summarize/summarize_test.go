package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderecap/coderecap/internal/aggregate"
	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/llm"
	"github.com/coderecap/coderecap/internal/recap"
)

var testProfile = llm.Profile{
	Model:           "test-model",
	MaxInputTokens:  128000,
	InputCostPer1K:  1.0,
	OutputCostPer1K: 1.0,
}

func testConfig() Config {
	return Config{Coarsest: recap.Year, Profile: testProfile}
}

func testCommit(when time.Time, seq int) recap.Commit {
	return recap.Commit{
		Hash:         fmt.Sprintf("%040d", seq),
		Author:       "Dev One",
		Email:        "dev@example.com",
		When:         when,
		Subject:      "improve request handling",
		Repo:         "api",
		Languages:    map[string]recap.LineStats{"Go": {Added: 120, Removed: 40}},
		FilesTouched: 3,
	}
}

// monthlySources builds one source per calendar month of the given years,
// with commitsPerMonth identically-shaped commits in each. emptyLabels marks
// months that get no commits at all.
func monthlySources(t *testing.T, commitsPerMonth int, years []int, emptyLabels ...string) []Source {
	t.Helper()

	empty := make(map[string]bool, len(emptyLabels))
	for _, label := range emptyLabels {
		empty[label] = true
	}

	var (
		periods []recap.Period
		commits []recap.Commit
	)

	seq := 0

	for _, year := range years {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		months := recap.Split(start, start.AddDate(1, 0, 0), recap.Month)
		periods = append(periods, months...)

		for _, period := range months {
			if empty[period.Label()] {
				continue
			}

			for i := 0; i < commitsPerMonth; i++ {
				commits = append(commits, testCommit(period.Start.Add(time.Duration(i)*time.Hour), seq))
				seq++
			}
		}
	}

	aggregates := aggregate.Bucket(commits, periods)

	sources := make([]Source, len(aggregates))
	for i, agg := range aggregates {
		sources[i] = Source{Period: agg.Period, Aggregate: agg}
	}

	return sources
}

func levelLabels(level []*Node) []string {
	labels := make([]string, len(level))
	for i, node := range level {
		labels[i] = node.Period.Label()
	}

	return labels
}

func TestPlanYearShape(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 3, []int{2025})

	tree, err := Plan(sources, testConfig(), costs.NewUnlimitedLedger())
	require.NoError(t, err)

	require.Len(t, tree.Levels, 3)
	assert.Len(t, tree.Levels[0], 12)
	assert.Len(t, tree.Levels[1], 4)
	assert.Len(t, tree.Levels[2], 1)

	assert.Equal(t, "2025-01", tree.Leaves()[0].Period.Label())
	assert.Equal(t, "2025-12", tree.Leaves()[11].Period.Label())
	assert.Equal(t,
		[]string{"2025-Q1", "2025-Q2", "2025-Q3", "2025-Q4"},
		levelLabels(tree.Levels[1]))
	assert.Equal(t, "2025", tree.Root.Period.Label())
	assert.Len(t, tree.Root.Children, 4)

	// 12 leaves + 4 quarters + 1 year.
	assert.Equal(t, 17, tree.CallCount())
	assert.Greater(t, tree.EstimatedCost(), 0.0)
}

func TestPlanIsDeterministic(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 2, []int{2025}, "2025-04")
	ledger := costs.NewUnlimitedLedger()

	first, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	second, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	require.Len(t, second.Levels, len(first.Levels))

	for i := range first.Levels {
		assert.Equal(t, levelLabels(first.Levels[i]), levelLabels(second.Levels[i]))

		for j := range first.Levels[i] {
			assert.Equal(t, first.Levels[i][j].EstCostUSD, second.Levels[i][j].EstCostUSD)
			assert.Equal(t, first.Levels[i][j].Status, second.Levels[i][j].Status)
		}
	}
}

func TestPlanSyntheticRoot(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 1, []int{2024, 2025})

	tree, err := Plan(sources, testConfig(), costs.NewUnlimitedLedger())
	require.NoError(t, err)

	// Months, quarters, years, synthetic whole-range root.
	require.Len(t, tree.Levels, 4)
	assert.Len(t, tree.Levels[2], 2)
	assert.Equal(t, "2024:2025", tree.Root.Period.Label())
	assert.Len(t, tree.Root.Children, 2)
}

func TestPlanEmptyPeriods(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 2, []int{2025}, "2025-02")

	tree, err := Plan(sources, testConfig(), costs.NewUnlimitedLedger())
	require.NoError(t, err)

	feb := tree.Leaves()[1]
	assert.Equal(t, StatusEmpty, feb.Status)
	assert.Equal(t, placeholderNoActivity, feb.Text)
	assert.Zero(t, feb.EstCostUSD)

	// The containing quarter still has activity and plans a call.
	assert.Equal(t, StatusPending, tree.Levels[1][0].Status)
	assert.Equal(t, 16, tree.CallCount())
}

func TestPlanAllEmpty(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 1, []int{2025},
		"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06",
		"2025-07", "2025-08", "2025-09", "2025-10", "2025-11", "2025-12")

	tree, err := Plan(sources, testConfig(), costs.NewUnlimitedLedger())
	require.NoError(t, err)

	tree.Walk(func(node *Node) {
		assert.Equal(t, StatusEmpty, node.Status, node.Period.Label())
	})
	assert.Zero(t, tree.CallCount())

	fake := &llm.FakeClient{}
	runner := &Runner{Client: fake, Ledger: costs.NewUnlimitedLedger()}
	require.NoError(t, runner.Run(context.Background(), tree))

	assert.Zero(t, fake.CallCount())
}

func TestPlanErrors(t *testing.T) {
	t.Parallel()

	_, err := Plan(nil, testConfig(), costs.NewUnlimitedLedger())
	assert.ErrorIs(t, err, ErrNoSources)

	months := monthlySources(t, 1, []int{2025})
	yearPeriods := recap.Split(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		recap.Year)
	mixed := append([]Source{{Period: yearPeriods[0]}}, months...)

	_, err = Plan(mixed, testConfig(), costs.NewUnlimitedLedger())
	assert.ErrorIs(t, err, ErrMixedGranularity)

	cfg := testConfig()
	cfg.Coarsest = recap.Day

	_, err = Plan(months, cfg, costs.NewUnlimitedLedger())
	assert.ErrorIs(t, err, ErrGranularityOrder)
}

type recordingObserver struct {
	statuses map[Status]int
}

func (o *recordingObserver) ObserveCall(status Status, _, _ int, _ float64) {
	if o.statuses == nil {
		o.statuses = make(map[Status]int)
	}

	o.statuses[status]++
}

func TestRunComputesAllLevels(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 3, []int{2025})
	ledger := costs.NewUnlimitedLedger()

	tree, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{Reply: func(req llm.Request) string {
		return "narrative: " + req.Prompt[:20]
	}}
	observer := &recordingObserver{}
	runner := &Runner{Client: fake, Ledger: ledger, Observer: observer}

	require.NoError(t, runner.Run(context.Background(), tree))

	tree.Walk(func(node *Node) {
		assert.Equal(t, StatusComputed, node.Status, node.Period.Label())
		assert.NotEmpty(t, node.Text)
		assert.Positive(t, node.CostUSD)
	})

	assert.Equal(t, 17, fake.CallCount())
	assert.Equal(t, 17, observer.statuses[StatusComputed])
	assert.False(t, tree.Incomplete())

	totals := ledger.Snapshot()
	assert.Equal(t, 17, totals.Calls)
	assert.Positive(t, totals.USD)
}

func TestRunConcurrentLeaves(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 2, []int{2025})
	ledger := costs.NewUnlimitedLedger()

	cfg := testConfig()
	cfg.Concurrency = 4

	tree, err := Plan(sources, cfg, ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{}
	runner := &Runner{Client: fake, Ledger: ledger}

	require.NoError(t, runner.Run(context.Background(), tree))

	assert.Equal(t, 17, fake.CallCount())
	assert.False(t, tree.Incomplete())
}

// budgetedRun plans against a ceiling that affords exactly five of the twelve
// identically-priced leaf calls, with the fake provider billing exactly the
// planner estimate.
func budgetedRun(t *testing.T, dryRun bool) (*Tree, *llm.FakeClient, *costs.Ledger) {
	t.Helper()

	sources := monthlySources(t, 3, []int{2025})

	// Probe plan to learn the per-leaf estimate.
	probe, err := Plan(sources, testConfig(), costs.NewUnlimitedLedger())
	require.NoError(t, err)

	estimate := probe.Leaves()[0].EstCostUSD
	require.Positive(t, estimate)

	for _, leaf := range probe.Leaves() {
		require.Equal(t, estimate, leaf.EstCostUSD)
	}

	ledger := costs.NewLedger(5.5 * estimate)

	cfg := testConfig()
	cfg.DryRun = dryRun

	tree, err := Plan(sources, cfg, ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{
		TokensIn:  tree.Leaves()[0].EstInputTokens,
		TokensOut: tree.Config.EstimatedOutputTokens,
	}
	runner := &Runner{Client: fake, Ledger: ledger}

	require.NoError(t, runner.Run(context.Background(), tree))

	return tree, fake, ledger
}

func TestRunBudgetSkips(t *testing.T) {
	t.Parallel()

	tree, fake, ledger := budgetedRun(t, false)

	leaves := tree.Leaves()
	for i, leaf := range leaves {
		if i < 5 {
			assert.Equal(t, StatusComputed, leaf.Status, leaf.Period.Label())
		} else {
			assert.Equal(t, StatusSkippedBudget, leaf.Status, leaf.Period.Label())
		}
	}

	// Q1's children were all computed, but its own reservation no longer
	// fits; the later quarters sit above skipped months.
	assert.Equal(t, StatusSkippedBudget, tree.Levels[1][0].Status)
	assert.Equal(t, StatusNotGenerated, tree.Levels[1][1].Status)
	assert.Equal(t, StatusNotGenerated, tree.Levels[1][2].Status)
	assert.Equal(t, StatusNotGenerated, tree.Levels[1][3].Status)
	assert.Equal(t, StatusNotGenerated, tree.Root.Status)
	assert.Equal(t, placeholderNotGenerated, tree.Root.Text)

	assert.Equal(t, 5, fake.CallCount())
	assert.True(t, tree.Incomplete())
	assert.Len(t, tree.SkippedNodes(), 12)
	assert.LessOrEqual(t, ledger.Snapshot().USD, ledger.Ceiling())
}

func TestDryRunMatchesRealDecisions(t *testing.T) {
	t.Parallel()

	real, _, realLedger := budgetedRun(t, false)
	dry, fake, dryLedger := budgetedRun(t, true)

	// A dry run never reaches the provider.
	assert.Zero(t, fake.CallCount())

	for i, leaf := range dry.Leaves() {
		if i < 5 {
			assert.Equal(t, StatusPlanned, leaf.Status, leaf.Period.Label())
		} else {
			assert.Equal(t, StatusSkippedBudget, leaf.Status, leaf.Period.Label())
		}
	}

	var realSkipped, drySkipped []string
	for _, node := range real.SkippedNodes() {
		realSkipped = append(realSkipped, node.Period.Label())
	}
	for _, node := range dry.SkippedNodes() {
		drySkipped = append(drySkipped, node.Period.Label())
	}

	assert.Equal(t, realSkipped, drySkipped)
	assert.InDelta(t, realLedger.Snapshot().USD, dryLedger.Snapshot().USD, 1e-9)
}

func TestRunZeroCeiling(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 2, []int{2025})
	ledger := costs.NewLedger(0)

	tree, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{}
	runner := &Runner{Client: fake, Ledger: ledger}

	require.NoError(t, runner.Run(context.Background(), tree))

	for _, leaf := range tree.Leaves() {
		assert.Equal(t, StatusSkippedBudget, leaf.Status)
	}
	assert.Equal(t, StatusNotGenerated, tree.Root.Status)
	assert.Zero(t, fake.CallCount())
	assert.Zero(t, ledger.Snapshot().USD)
}

func TestRunFatalAborts(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 1, []int{2025})
	ledger := costs.NewUnlimitedLedger()

	tree, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{Fatal: errors.New("invalid api key")}
	runner := &Runner{Client: fake, Ledger: ledger}

	err = runner.Run(context.Background(), tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-01")
	assert.True(t, llm.IsFatal(err))

	// Nothing was billed for the failed attempt.
	assert.Zero(t, ledger.Snapshot().USD)
	assert.Equal(t, 1, fake.CallCount())
}

func TestRunTransientUnavailable(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 2, []int{2025})
	ledger := costs.NewUnlimitedLedger()

	tree, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{FailFirst: 1}
	runner := &Runner{Client: fake, Ledger: ledger}

	require.NoError(t, runner.Run(context.Background(), tree))

	jan := tree.Leaves()[0]
	assert.Equal(t, StatusUnavailable, jan.Status)
	assert.Error(t, jan.Err)

	// The combine above the gap still runs and is told about it.
	q1 := tree.Levels[1][0]
	assert.Equal(t, StatusComputed, q1.Status)

	var q1Prompt string
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call.Prompt, "# Combined period: 2025-Q1") {
			q1Prompt = call.Prompt
		}
	}

	require.NotEmpty(t, q1Prompt)
	assert.Contains(t, q1Prompt, "unavailable after repeated provider failures")
}

func TestCombinePromptCarriesEmptyPlaceholder(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 2, []int{2025}, "2025-02")
	ledger := costs.NewUnlimitedLedger()

	tree, err := Plan(sources, testConfig(), ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{}
	runner := &Runner{Client: fake, Ledger: ledger}

	require.NoError(t, runner.Run(context.Background(), tree))

	var q1Prompt string
	for _, call := range fake.Calls() {
		if strings.HasPrefix(call.Prompt, "# Combined period: 2025-Q1") {
			q1Prompt = call.Prompt
		}
	}

	require.NotEmpty(t, q1Prompt)
	assert.Contains(t, q1Prompt, placeholderNoActivity)
}

func TestContextSuffixReachesPrompts(t *testing.T) {
	t.Parallel()

	sources := monthlySources(t, 1, []int{2025})
	ledger := costs.NewUnlimitedLedger()

	cfg := testConfig()
	cfg.GlobalContext = "Acme ships a payments API."
	cfg.ClientContext = "Internal platform work."

	tree, err := Plan(sources, cfg, ledger)
	require.NoError(t, err)

	fake := &llm.FakeClient{}
	runner := &Runner{Client: fake, Ledger: ledger}

	require.NoError(t, runner.Run(context.Background(), tree))

	for _, call := range fake.Calls() {
		assert.Contains(t, call.System, "Acme ships a payments API.")
		assert.Contains(t, call.System, "Internal platform work.")
	}
}
