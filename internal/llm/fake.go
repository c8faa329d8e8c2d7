package llm

import (
	"context"
	"sync"
)

// FakeClient is a deterministic in-memory Client for tests. It replies with
// a canned transform of the prompt and records every request, optionally
// failing scripted attempts.
type FakeClient struct {
	mu sync.Mutex

	// Reply builds the response text; the default echoes a fixed phrase.
	Reply func(req Request) string
	// FailFirst errors the first n calls with a transient failure.
	FailFirst int
	// Fatal causes every call to fail fatally.
	Fatal error
	// TokensIn/TokensOut override the reported usage (default: estimated
	// from prompt length / fixed).
	TokensIn  int
	TokensOut int

	calls []Request
}

// defaultFakeOutputTokens is the usage reported when TokensOut is unset.
const defaultFakeOutputTokens = 64

// Complete implements Client.
func (f *FakeClient) Complete(_ context.Context, req Request) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)

	if f.Fatal != nil {
		return Response{}, &FatalError{Err: f.Fatal}
	}

	if f.FailFirst > 0 {
		f.FailFirst--

		return Response{}, &TransientError{Err: context.DeadlineExceeded}
	}

	text := "summary of activity"
	if f.Reply != nil {
		text = f.Reply(req)
	}

	tokensIn := f.TokensIn
	if tokensIn == 0 {
		tokensIn = (len(req.System) + len(req.Prompt)) / DefaultCharsApprox
	}

	tokensOut := f.TokensOut
	if tokensOut == 0 {
		tokensOut = defaultFakeOutputTokens
	}

	return Response{Text: text, InputTokens: tokensIn, OutputTokens: tokensOut}, nil
}

// DefaultCharsApprox mirrors the ledger's default chars-per-token heuristic.
const DefaultCharsApprox = 4

// Calls returns a copy of the recorded requests.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Request, len(f.calls))
	copy(out, f.calls)

	return out
}

// CallCount returns how many requests the fake has served.
func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}
