// File: internal/verify/waiter.go
package verify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/uiverify/internal/locator"
)

// WaitResult is the outcome of a readiness wait.
type WaitResult struct {
	Outcome  Outcome
	Attempts int
	Duration time.Duration
	Err      error
}

// Waiter blocks until an element reaches a state. The blocking happens in
// the browser, so waits cost no CPU on this side.
type Waiter struct {
	logger *zap.Logger
}

func NewWaiter(logger *zap.Logger) *Waiter {
	return &Waiter{logger: logger.Named("waiter")}
}

// WaitFor makes a single bounded attempt. A timeout is a hard failure under
// PolicyRequired and a soft failure under PolicyOptional.
func (w *Waiter) WaitFor(ctx context.Context, s *Session, loc locator.Locator, state locator.State, timeout time.Duration, policy Policy) WaitResult {
	return w.WaitWithRetry(ctx, s, loc, state, timeout, policy, Retry{Attempts: 1})
}

// WaitWithRetry repeats the wait up to retry.Attempts times, spacing attempts
// at least retry.Interval apart.
func (w *Waiter) WaitWithRetry(ctx context.Context, s *Session, loc locator.Locator, state locator.State, timeout time.Duration, policy Policy, retry Retry) WaitResult {
	if state == "" {
		state = locator.StateVisible
	}
	attempts := max(retry.Attempts, 1)
	every := rate.Inf
	if retry.Interval > 0 {
		every = rate.Every(retry.Interval)
	}
	limiter := rate.NewLimiter(every, 1)

	start := time.Now()
	res := WaitResult{}
	for res.Attempts < attempts {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = err
			break
		}
		res.Attempts++
		res.Err = s.Page.WaitFor(ctx, loc, state, timeout)
		if res.Err == nil || ctx.Err() != nil {
			break
		}
		if res.Attempts < attempts {
			w.logger.Debug("Wait attempt failed, retrying.",
				zap.Stringer("locator", loc), zap.Int("attempt", res.Attempts), zap.Error(res.Err))
		}
	}
	res.Duration = time.Since(start)

	switch {
	case res.Err == nil:
		res.Outcome = OutcomeOK
	case policy == PolicyOptional:
		res.Outcome = OutcomeSoftFail
	default:
		res.Outcome = OutcomeHardFail
	}
	return res
}

// Settle sleeps for d or until ctx is done.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
