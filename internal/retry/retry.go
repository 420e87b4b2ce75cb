package retry

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	DefaultMaxAttempts int           = 3
	DefaultDelay       time.Duration = 2 * time.Second
)

// Classifier reports whether an error is worth another attempt.
type Classifier func(err error) bool

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is a fixed count, fixed delay retry budget.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   Classifier
	// called before each sleep with the attempt number that just failed
	OnRetry func(attempt int, err error)
	Sleep   SleepFunc
}

// ExhaustedError wraps the last error once every attempt has been used.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e ExhaustedError) Error() string {
	return "retries exhausted after [" + strconv.Itoa(e.Attempts) + "] attempts : " + e.Err.Error()
}

func (e ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op until it succeeds, returns an error the policy does not retry, or
// runs out of attempts.  The number of attempts made is returned with the result.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	var (
		zero T
		err  error
	)
	policy = policy.withDefaults()

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		var result T
		result, err = op(ctx)
		if err == nil {
			return result, attempt, nil
		}
		if !policy.Retryable(err) {
			return zero, attempt, err
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
		if sleepErr := policy.Sleep(ctx, policy.Delay); sleepErr != nil {
			return zero, attempt, errors.Join(err, sleepErr)
		}
	}
	return zero, policy.MaxAttempts, ExhaustedError{Attempts: policy.MaxAttempts, Err: err}
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, policy Policy, op func(ctx context.Context) error) (int, error) {
	_, attempts, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return attempts, err
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsThrottle
	}
	if p.Sleep == nil {
		p.Sleep = ContextSleep
	}
	return p
}

// ContextSleep waits for d, returning early with the context error if ctx is cancelled.
func ContextSleep(ctx context.Context, d time.Duration) error {
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

// NoSleep skips the delay entirely, used by tests.
func NoSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
