package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy defaults.
const (
	DefaultMaxRetries      = 3
	defaultInitialInterval = time.Second
	defaultMaxInterval     = 30 * time.Second
)

// RetryingClient wraps a Client with bounded exponential backoff on
// transient errors. Fatal errors and context cancellation pass through
// immediately.
type RetryingClient struct {
	inner      Client
	maxRetries uint64
	logger     *slog.Logger

	// initialInterval shortens waits in tests; zero means the default.
	initialInterval time.Duration
}

// NewRetryingClient wraps inner with up to maxRetries retry attempts.
func NewRetryingClient(inner Client, maxRetries int, logger *slog.Logger) *RetryingClient {
	if maxRetries < 0 {
		maxRetries = 0
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &RetryingClient{inner: inner, maxRetries: uint64(maxRetries), logger: logger}
}

// Complete issues the call, retrying transient failures with exponential
// backoff until the attempt budget is exhausted.
func (c *RetryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = defaultInitialInterval

	if c.initialInterval > 0 {
		policy.InitialInterval = c.initialInterval
	}

	policy.MaxInterval = defaultMaxInterval

	var resp Response

	operation := func() error {
		var err error

		resp, err = c.inner.Complete(ctx, req)
		if err == nil {
			return nil
		}

		if IsFatal(err) {
			return backoff.Permanent(err)
		}

		c.logger.Warn("summarization call failed, retrying",
			"model", req.Profile.Model, "error", err)

		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	if err != nil {
		return Response{}, err
	}

	return resp, nil
}
