package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one summarization call.
type Request struct {
	System      string
	Prompt      string
	Profile     Profile
	Temperature float32
	MaxTokens   int // Response token cap; zero means provider default.
}

// Response carries the generated text and the provider-reported token usage.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client is the capability interface for text generation. Implementations
// must classify failures as transient or fatal so the caller can decide
// between retrying and aborting.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// TransientError marks a failure worth retrying: rate limits, timeouts,
// server-side errors, network problems.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a failure that retrying cannot fix: bad credentials,
// invalid model, malformed request. A fatal error aborts the whole run.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal provider error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var transient *TransientError

	return errors.As(err, &transient)
}

// IsFatal reports whether err is classified as unrecoverable.
func IsFatal(err error) bool {
	var fatal *FatalError

	return errors.As(err, &fatal)
}
