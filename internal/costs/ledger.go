// Package costs tracks token usage and USD spend for one run against a
// configurable ceiling.
package costs

import (
	"fmt"
	"sync"
)

// DefaultCharsPerToken is the estimation heuristic when the provider has not
// reported a count: roughly four characters of English/code per token.
const DefaultCharsPerToken = 4

// tokensPerKilo converts per-1K-token rates to per-token rates.
const tokensPerKilo = 1000.0

// Pricing is the per-model cost profile used to convert tokens to USD.
type Pricing struct {
	InputCostPer1K  float64
	OutputCostPer1K float64
}

// Cost returns the USD cost of the given token usage under this pricing.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/tokensPerKilo*p.InputCostPer1K +
		float64(outputTokens)/tokensPerKilo*p.OutputCostPer1K
}

// Totals is a snapshot of the ledger counters.
type Totals struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	USD          float64
}

// Summary formats totals for display.
func (t Totals) Summary() string {
	return fmt.Sprintf("%d calls, %d input tokens, %d output tokens, $%.4f",
		t.Calls, t.InputTokens, t.OutputTokens, t.USD)
}

// Ledger is the per-run cost accumulator. It starts at zero, is never
// persisted, and its totals are monotonically non-decreasing. The
// reserve/commit sequence is atomic: two concurrent reservations can never
// jointly pass the ceiling check.
type Ledger struct {
	mu        sync.Mutex
	ceiling   float64
	unlimited bool
	totals    Totals
	held      float64

	charsPerToken int
}

// NewLedger creates a ledger with a USD ceiling. A ceiling of zero permits
// no spend at all.
func NewLedger(ceilingUSD float64) *Ledger {
	return &Ledger{ceiling: ceilingUSD, charsPerToken: DefaultCharsPerToken}
}

// NewUnlimitedLedger creates a ledger that tracks spend without enforcing
// a ceiling.
func NewUnlimitedLedger() *Ledger {
	return &Ledger{unlimited: true, charsPerToken: DefaultCharsPerToken}
}

// SetCharsPerToken overrides the estimation heuristic. Values below one are
// ignored.
func (l *Ledger) SetCharsPerToken(chars int) {
	if chars < 1 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.charsPerToken = chars
}

// EstimateTokens estimates the token count of text by length.
func (l *Ledger) EstimateTokens(text string) int {
	l.mu.Lock()
	chars := l.charsPerToken
	l.mu.Unlock()

	if len(text) == 0 {
		return 0
	}

	return (len(text) + chars - 1) / chars
}

// Unlimited reports whether the ledger enforces no ceiling.
func (l *Ledger) Unlimited() bool {
	return l.unlimited
}

// Ceiling returns the configured ceiling (zero when unlimited).
func (l *Ledger) Ceiling() float64 {
	return l.ceiling
}

// Snapshot returns the current totals.
func (l *Ledger) Snapshot() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.totals
}

// Reservation holds budget for one in-flight call. Exactly one of Commit or
// Cancel must be called.
type Reservation struct {
	ledger  *Ledger
	held    float64
	settled bool
}

// Reserve atomically checks the ceiling and holds the estimated cost for an
// in-flight call. Returns false when committing the estimate would exceed
// the ceiling; nothing is held in that case.
func (l *Ledger) Reserve(estimatedUSD float64) (*Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.allows(estimatedUSD) {
		return nil, false
	}

	l.held += estimatedUSD

	return &Reservation{ledger: l, held: estimatedUSD}, true
}

// allows requires l.mu held.
func (l *Ledger) allows(estimatedUSD float64) bool {
	if l.unlimited {
		return true
	}

	return l.totals.USD+l.held+estimatedUSD <= l.ceiling
}

// Commit releases the hold and records the actual usage of the completed
// call. A call is committed exactly once, even when it was retried: only the
// final successful attempt's usage is recorded.
func (r *Reservation) Commit(inputTokens, outputTokens int, pricing Pricing) {
	r.settle(func(l *Ledger) {
		l.totals.Calls++
		l.totals.InputTokens += inputTokens
		l.totals.OutputTokens += outputTokens
		l.totals.USD += pricing.Cost(inputTokens, outputTokens)
	})
}

// Cancel releases the hold without charging anything (call failed or was
// never issued).
func (r *Reservation) Cancel() {
	r.settle(func(*Ledger) {})
}

func (r *Reservation) settle(apply func(*Ledger)) {
	if r == nil || r.settled {
		return
	}

	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	r.settled = true
	r.ledger.held -= r.held
	apply(r.ledger)
}
