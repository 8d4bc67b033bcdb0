package llm

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how transient failures are retried.
//
//	rate limit  → BaseDelay * 2^(attempt-1) + Jitter()
//	connection  → BaseDelay * attempt
//	server 5xx  → BaseDelay * attempt
//	anything else fails immediately
//
// attempt is the 1-based number of the attempt that just failed.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt. Zero means
	// the default of 3; NoRetries disables retrying.
	MaxRetries int

	// BaseDelay is the unit of every backoff (default 1s).
	BaseDelay time.Duration

	// Jitter returns the random addition to rate-limit backoff.
	// Defaults to a uniform value in [0, 1s).
	Jitter func() time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnAttempt, when set, observes every failed attempt.
	OnAttempt func(attempt int, class ErrorClass)
}

// NoRetries as MaxRetries makes Do give up after the first failure.
const NoRetries = -1

// defaultMaxRetries gives four attempts in total.
const defaultMaxRetries = 3

func (p *RetryPolicy) defaults() {
	switch {
	case p.MaxRetries == 0:
		p.MaxRetries = defaultMaxRetries
	case p.MaxRetries < 0:
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Jitter == nil {
		p.Jitter = func() time.Duration { return time.Duration(rand.Int64N(int64(time.Second))) }
	}
	if p.Sleep == nil {
		p.Sleep = sleepCtx
	}
}

// DefaultRetryPolicy is three retries with a one second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: defaultMaxRetries, BaseDelay: time.Second}
}

// Delay returns the wait before the next attempt, or false when class is not
// retryable.
func (p RetryPolicy) Delay(class ErrorClass, attempt int) (time.Duration, bool) {
	p.defaults()
	switch class {
	case ClassRateLimit:
		return p.BaseDelay*time.Duration(1<<(attempt-1)) + p.Jitter(), true
	case ClassConnection, ClassServer:
		return p.BaseDelay * time.Duration(attempt), true
	default:
		return 0, false
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent. The last error is returned.
func Do[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	p.defaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		class := Classify(err)
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, class)
		}
		if attempt > p.MaxRetries {
			logger.Warn("llm: giving up after retries", "attempts", attempt, "class", class.String(), "error", err.Error())
			return zero, err
		}
		delay, retryable := p.Delay(class, attempt)
		if !retryable {
			return zero, err
		}

		logger.Warn("llm: retrying",
			"attempt", attempt,
			"class", class.String(),
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
		if serr := p.Sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
