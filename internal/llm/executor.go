package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adewale-ajadi/exam-extractor/internal/common"
	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
)

// DefaultRetryBackoff is the fixed wait between rate-limited attempts.
const DefaultRetryBackoff = 2 * time.Second

// Executor wraps one logical model request with credential selection,
// retry-on-quota-error, and bounded attempts. It is the only place
// credential failover lives; passes never touch credentials directly.
type Executor struct {
	pool    *credentials.Pool
	caller  ModelCaller
	backoff time.Duration
	logger  *slog.Logger
}

func NewExecutor(pool *credentials.Pool, caller ModelCaller, backoff time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	return &Executor{pool: pool, caller: caller, backoff: backoff, logger: logger}
}

// Execute acquires a credential, issues the call, and on a rate-limit
// error waits the fixed backoff and retries with a freshly acquired
// (typically different) credential, up to one attempt per pool entry.
// Any other error propagates immediately. Running out of attempts
// returns common.ErrCredentialsExhausted, distinguishable from a generic
// call failure.
func (e *Executor) Execute(ctx context.Context, req CallRequest) (string, error) {
	maxAttempts := e.pool.Size()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cred := e.pool.Acquire()

		start := time.Now()
		text, err := e.caller.Call(ctx, cred, req)
		if err == nil {
			e.logger.Debug("llm.call.ok",
				"attempt", attempt,
				"response_bytes", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}

		if !IsRateLimitError(err) {
			return "", fmt.Errorf("model call failed: %w", err)
		}

		lastErr = err
		e.logger.Warn("llm.call.rate_limited",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff", e.backoff,
			"error", err,
		)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(e.backoff):
			}
		}
	}

	return "", fmt.Errorf("%w: %d attempts rate-limited, last: %v", common.ErrCredentialsExhausted, maxAttempts, lastErr)
}
