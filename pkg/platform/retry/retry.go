// Package retry runs an operation under a bounded exponential backoff policy.
//
// Each attempt gets its own timeout derived from the caller's context. A
// cancelled caller context stops the loop immediately and is never retried.
// The error it returns matches both the context error and the last failure of
// the operation, so callers can still see what the operation was doing.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Jitter         float64
	AttemptTimeout time.Duration
}

// Default returns the gateway policy: 3 attempts, 1s base doubling to an 8s cap,
// 50% jitter.
func Default(attemptTimeout time.Duration) Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       8 * time.Second,
		Jitter:         0.5,
		AttemptTimeout: attemptTimeout,
	}
}

// WithAttemptTimeout returns a copy of p with a different per-attempt timeout.
func (p Policy) WithAttemptTimeout(d time.Duration) Policy {
	p.AttemptTimeout = d
	return p
}

// Once returns a copy of p that makes a single attempt.
func (p Policy) Once() Policy {
	p.MaxAttempts = 1
	return p
}

// Notify is called before each wait with the attempt that just failed (1-based).
type Notify func(attempt int, err error, wait time.Duration)

type runConfig struct {
	retryable func(error) bool
	notify    Notify
}

type Option func(*runConfig)

// WithRetryable overrides which errors are retried. Caller cancellation is
// never retried regardless of the predicate.
func WithRetryable(fn func(error) bool) Option {
	return func(c *runConfig) {
		c.retryable = fn
	}
}

func WithNotify(fn Notify) Option {
	return func(c *runConfig) {
		c.notify = fn
	}
}

func defaultRetryable(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.RandomizationFactor = p.Jitter
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// is exhausted. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, opts ...Option) error {
	_, err := Value(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := runConfig{retryable: defaultRetryable}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		result  T
		attempt int
		lastErr error
	)
	op := func() error {
		attempt++
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		defer cancel()

		v, err := fn(attemptCtx)
		if err == nil {
			result = v
			return nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(&AbortedError{Cause: ctxErr, Last: err})
		}
		if !cfg.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if cfg.notify != nil {
			cfg.notify(attempt, err, wait)
		}
	}

	err := backoff.RetryNotify(op, backoff.WithContext(p.backOff(), ctx), notify)
	if err != nil {
		// Cancellation during a backoff wait surfaces as the bare context error.
		var aborted *AbortedError
		if lastErr != nil && ctx.Err() != nil && !errors.As(err, &aborted) {
			err = &AbortedError{Cause: err, Last: lastErr}
		}
		var zero T
		return zero, err
	}
	return result, nil
}

// AbortedError is returned when the caller's context ended after at least one
// attempt failed.
type AbortedError struct {
	Cause error
	Last  error
}

func (e *AbortedError) Error() string {
	return e.Cause.Error() + ": " + e.Last.Error()
}

func (e *AbortedError) Unwrap() []error {
	return []error{e.Cause, e.Last}
}
