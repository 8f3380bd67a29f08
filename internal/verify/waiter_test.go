// File: internal/verify/waiter_test.go
package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiverify/internal/locator"
	"github.com/xkilldash9x/uiverify/internal/mocks"
)

func TestWaiter_WaitFor(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		err    error
		want   Outcome
	}{
		{"appears", PolicyRequired, nil, OutcomeOK},
		{"required timeout", PolicyRequired, timedOut("poll"), OutcomeHardFail},
		{"optional timeout", PolicyOptional, timedOut("poll"), OutcomeSoftFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(mocks.MockPage)
			p.On("WaitFor", mock.Anything, svgLoc, locator.StateVisible, 20*time.Millisecond).Return(tt.err).Once()

			w := NewWaiter(zaptest.NewLogger(t))
			res := w.WaitFor(context.Background(), newSession(p), svgLoc, "", 20*time.Millisecond, tt.policy)

			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, 1, res.Attempts)
			if tt.err != nil {
				assert.True(t, IsTimeout(res.Err))
			}
			p.AssertExpectations(t)
		})
	}
}

func TestWaiter_WaitWithRetry(t *testing.T) {
	t.Run("succeeds on a later attempt", func(t *testing.T) {
		p := new(mocks.MockPage)
		p.On("WaitFor", mock.Anything, svgLoc, locator.StateAttached, 10*time.Millisecond).Return(timedOut("poll")).Twice()
		p.On("WaitFor", mock.Anything, svgLoc, locator.StateAttached, 10*time.Millisecond).Return(nil).Once()

		w := NewWaiter(zaptest.NewLogger(t))
		start := time.Now()
		res := w.WaitWithRetry(context.Background(), newSession(p), svgLoc, locator.StateAttached, 10*time.Millisecond,
			PolicyRequired, Retry{Attempts: 5, Interval: 5 * time.Millisecond})

		assert.Equal(t, OutcomeOK, res.Outcome)
		assert.Equal(t, 3, res.Attempts)
		assert.NoError(t, res.Err)
		// Three attempts at one per interval need at least two intervals.
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
		p.AssertExpectations(t)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		p := new(mocks.MockPage)
		p.On("WaitFor", mock.Anything, svgLoc, locator.StateVisible, 10*time.Millisecond).Return(timedOut("poll")).Times(3)

		w := NewWaiter(zaptest.NewLogger(t))
		res := w.WaitWithRetry(context.Background(), newSession(p), svgLoc, locator.StateVisible, 10*time.Millisecond,
			PolicyOptional, Retry{Attempts: 3})

		assert.Equal(t, OutcomeSoftFail, res.Outcome)
		assert.Equal(t, 3, res.Attempts)
		p.AssertExpectations(t)
	})

	t.Run("stops when the context is canceled", func(t *testing.T) {
		p := new(mocks.MockPage)
		ctx, cancel := context.WithCancel(context.Background())
		p.On("WaitFor", mock.Anything, svgLoc, locator.StateVisible, 10*time.Millisecond).
			Run(func(mock.Arguments) { cancel() }).
			Return(context.Canceled).Once()

		w := NewWaiter(zaptest.NewLogger(t))
		res := w.WaitWithRetry(ctx, newSession(p), svgLoc, locator.StateVisible, 10*time.Millisecond,
			PolicyRequired, Retry{Attempts: 10, Interval: time.Millisecond})

		assert.Equal(t, OutcomeHardFail, res.Outcome)
		assert.Equal(t, 1, res.Attempts)
		p.AssertExpectations(t)
	})
}

func TestSettle(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Settle(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	assert.NoError(t, Settle(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Settle(ctx, time.Hour), context.Canceled)
}
