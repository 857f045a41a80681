package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"time"
)

// maxBackoff caps a single wait between attempts.
const maxBackoff = 30 * time.Second

// RetryPolicy controls how Retrying re-issues failed calls.
type RetryPolicy struct {
	MaxRetries int           // Extra attempts after the first
	BaseDelay  time.Duration // Doubled on every attempt
	Timeout    time.Duration // Per-attempt timeout (0 = none)
}

// ErrRetriesExhausted wraps the last error once every attempt has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Retrying wraps a Client with exponential backoff.
type Retrying struct {
	base   Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps base with the given policy.
func NewRetrying(base Client, policy RetryPolicy) *Retrying {
	return &Retrying{base: base, policy: policy, sleep: sleepCtx}
}

func (r *Retrying) Model() string { return r.base.Model() }

// Complete calls the base client until it succeeds, the attempts run out or
// ctx is cancelled.
func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	attempts := r.policy.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := CalculateBackoff(r.policy.BaseDelay, attempt)
			log.Printf("[LLM] %s %s attempt %d/%d failed, retrying in %v: %v",
				req.Channel, req.Operation, attempt, attempts, wait.Round(time.Millisecond), lastErr)
			if err := r.sleep(ctx, wait); err != nil {
				return "", fmt.Errorf("%s cancelled after %d attempt(s): %w", req.Operation, attempt, err)
			}
		}

		text, err := r.completeOnce(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cancelled after %d attempt(s): %w", req.Operation, attempt+1, ctx.Err())
		}
	}

	return "", fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, attempts, lastErr)
}

func (r *Retrying) completeOnce(ctx context.Context, req Request) (string, error) {
	if r.policy.Timeout <= 0 {
		return r.base.Complete(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return r.base.Complete(attemptCtx, req)
}

// Close closes the wrapped client when it holds resources.
func (r *Retrying) Close() error {
	if c, ok := r.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CalculateBackoff returns exponential backoff with jitter.
// Base delay is doubled each attempt, with random jitter of +/-25%.
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt-1))
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	if backoff < 4 {
		return backoff
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2)) - backoff/4
	return backoff + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
