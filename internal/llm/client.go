package llm

import (
	"context"
	"errors"
	"time"
)

// Request carries one prompt to an inference backend. Model may be empty,
// in which case the router's default model is used.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Client turns a prompt into free text. Implementations may fail with
// timeouts, transport errors or budget refusals; callers are expected to
// recover locally and never assume well-formed output.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var (
	ErrUnknownModel    = errors.New("unknown model")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrBudgetExceeded  = errors.New("daily budget exceeded")
	ErrEmptyCompletion = errors.New("empty completion")
)

type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

// WithTimeout bounds every call to the wrapped client. Zero or negative
// timeout returns the client unchanged.
func WithTimeout(c Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return c
	}
	return &timeoutClient{inner: c, timeout: timeout}
}

func (c *timeoutClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Generate(ctx, req)
}
