package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coderecap/coderecap/internal/costs"
	"github.com/coderecap/coderecap/internal/llm"
)

// Observer receives the outcome of every node resolution. Used to feed
// metrics without coupling the pipeline to a metrics backend.
type Observer interface {
	ObserveCall(status Status, inputTokens, outputTokens int, costUSD float64)
}

// Runner resolves a planned tree level by level, finest first, so every
// combine call sees only resolved children. Nodes within one level are
// independent and may run concurrently, bounded by Config.Concurrency.
type Runner struct {
	Client   llm.Client
	Ledger   *costs.Ledger
	Logger   *slog.Logger
	Observer Observer
}

// Run resolves every node of the tree. Budget exhaustion and transient
// provider failures degrade individual nodes; only fatal provider errors and
// context cancellation abort the run. On abort the tree is left partially
// resolved and the error names the node that failed.
func (r *Runner) Run(ctx context.Context, tree *Tree) error {
	for _, level := range tree.Levels {
		if err := r.runLevel(ctx, tree, level); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) runLevel(ctx context.Context, tree *Tree, level []*Node) error {
	workers := tree.Config.Concurrency
	if workers <= 1 || len(level) == 1 {
		for _, node := range level {
			if err := r.resolve(ctx, tree, node); err != nil {
				return err
			}
		}

		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	sem := make(chan struct{}, workers)

	for _, node := range level {
		wg.Add(1)
		sem <- struct{}{}

		go func(node *Node) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			if err := r.resolve(ctx, tree, node); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}(node)
	}

	wg.Wait()

	return firstErr
}

// resolve drives one node to a terminal state. Empty nodes were resolved at
// plan time and pass through untouched.
func (r *Runner) resolve(ctx context.Context, tree *Tree, node *Node) error {
	if node.Status.Resolved() {
		return nil
	}

	cfg := tree.Config

	var system, prompt string

	if node.IsLeaf() {
		excerpt := buildExcerpt(node.Source.Aggregate.CommitList, cfg.MaxExcerptTokens, r.Ledger.EstimateTokens)
		system = leafSystemPrompt + contextSuffix(cfg.GlobalContext, cfg.ClientContext)
		prompt = leafPrompt(node, excerpt)
	} else {
		if anyBlocked(node.Children) {
			node.Status = StatusNotGenerated
			node.Text = placeholderNotGenerated
			r.logger().Info("combine not generated: data below was budget-skipped",
				"period", node.Period.Label())
			r.observe(node)

			return nil
		}

		system = combineSystemPrompt + contextSuffix(cfg.GlobalContext, cfg.ClientContext)
		prompt = combinePrompt(node)
	}

	// The reservation uses the planner estimate in both dry and real runs,
	// so both modes make the same skip decisions against the ceiling.
	reservation, ok := r.Ledger.Reserve(node.EstCostUSD)
	if !ok {
		node.Status = StatusSkippedBudget
		r.logger().Info("call skipped: cost ceiling would be exceeded",
			"period", node.Period.Label(),
			"estimated_usd", node.EstCostUSD,
			"ceiling_usd", r.Ledger.Ceiling())
		r.observe(node)

		return nil
	}

	pricing := cfg.Profile.Pricing()

	if cfg.DryRun {
		reservation.Commit(node.EstInputTokens, node.EstOutputTokens, pricing)
		node.Status = StatusPlanned
		r.observe(node)

		return nil
	}

	resp, err := r.Client.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		Profile:     cfg.Profile,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		reservation.Cancel()

		if llm.IsFatal(err) || ctx.Err() != nil {
			return fmt.Errorf("summarize %s: %w", node.Period.Label(), err)
		}

		node.Status = StatusUnavailable
		node.Err = err
		r.logger().Warn("summary unavailable after retries",
			"period", node.Period.Label(), "error", err)
		r.observe(node)

		return nil
	}

	reservation.Commit(resp.InputTokens, resp.OutputTokens, pricing)

	node.Status = StatusComputed
	node.Text = resp.Text
	node.InputTokens = resp.InputTokens
	node.OutputTokens = resp.OutputTokens
	node.CostUSD = pricing.Cost(resp.InputTokens, resp.OutputTokens)

	r.logger().Debug("summary computed",
		"period", node.Period.Label(),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"cost_usd", node.CostUSD)
	r.observe(node)

	return nil
}

// anyBlocked reports whether a child was skipped or left ungenerated for
// budget reasons, which blocks the parent's combine call.
func anyBlocked(children []*Node) bool {
	for _, child := range children {
		if child.Status == StatusSkippedBudget || child.Status == StatusNotGenerated {
			return true
		}
	}

	return false
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return r.Logger
}

func (r *Runner) observe(node *Node) {
	if r.Observer == nil {
		return
	}

	r.Observer.ObserveCall(node.Status, node.InputTokens, node.OutputTokens, node.CostUSD)
}
