package queryengine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aqua777/indexquery/llm"
	"github.com/aqua777/indexquery/rag/synthesizer"
)

// Retry defaults.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// RetryQueryEngine retries queries that fail with a retryable error,
// doubling the delay each time. Other errors are returned at once.
type RetryQueryEngine struct {
	*BaseQueryEngine
	// QueryEngine is the underlying query engine.
	QueryEngine QueryEngine
	// MaxRetries is the maximum number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the delay before the first retry.
	RetryDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Retryable decides which errors get another attempt.
	Retryable func(error) bool
}

// RetryQueryEngineOption is a functional option.
type RetryQueryEngineOption func(*RetryQueryEngine)

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(maxRetries int) RetryQueryEngineOption {
	return func(rqe *RetryQueryEngine) {
		if maxRetries >= 0 {
			rqe.MaxRetries = maxRetries
		}
	}
}

// WithRetryDelay sets the delay before the first retry.
func WithRetryDelay(delay time.Duration) RetryQueryEngineOption {
	return func(rqe *RetryQueryEngine) {
		rqe.RetryDelay = delay
	}
}

// WithRetryable replaces the error classifier, llm.IsRetryable by default.
func WithRetryable(fn func(error) bool) RetryQueryEngineOption {
	return func(rqe *RetryQueryEngine) {
		if fn != nil {
			rqe.Retryable = fn
		}
	}
}

// WithRetryLogger sets the logger.
func WithRetryLogger(logger *slog.Logger) RetryQueryEngineOption {
	return func(rqe *RetryQueryEngine) {
		WithLogger(logger)(rqe.BaseQueryEngine)
	}
}

// NewRetryQueryEngine creates a new RetryQueryEngine.
func NewRetryQueryEngine(engine QueryEngine, opts ...RetryQueryEngineOption) *RetryQueryEngine {
	rqe := &RetryQueryEngine{
		BaseQueryEngine: NewBaseQueryEngine(),
		QueryEngine:     engine,
		MaxRetries:      DefaultMaxRetries,
		RetryDelay:      DefaultRetryDelay,
		MaxDelay:        DefaultMaxDelay,
		Retryable:       llm.IsRetryable,
	}

	for _, opt := range opts {
		opt(rqe)
	}

	return rqe
}

// Query executes a query, retrying while the error is retryable.
func (rqe *RetryQueryEngine) Query(ctx context.Context, query string) (*synthesizer.Response, error) {
	var lastErr error
	delay := rqe.RetryDelay

	for attempt := 0; attempt <= rqe.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := rqe.QueryEngine.Query(ctx, query)
		if err == nil {
			return response, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !rqe.Retryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == rqe.MaxRetries {
			break
		}
		rqe.Logger.Warn("Query failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if rqe.MaxDelay > 0 && delay > rqe.MaxDelay {
			delay = rqe.MaxDelay
		}
	}

	return nil, lastErr
}

var _ QueryEngine = (*RetryQueryEngine)(nil)
