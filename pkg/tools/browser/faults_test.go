package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browserbase"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want FaultKind
	}{
		{"Execution context was destroyed, most likely because of a navigation", FaultTransientPage},
		{"unexpected status 409 from connect", FaultSessionGone},
		{"Session 123 is not currently active", FaultSessionGone},
		{"Protocol error: Session closed", FaultSessionGone},
		{"Target page, context or browser has been closed", FaultSessionGone},
		{"Timeout 15000ms exceeded", FaultOther},
		{"", FaultOther},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FaultOther, Classify(nil))
	assert.Equal(t, FaultSessionGone, Classify(&browserbase.APIError{Op: "get debug URL", StatusCode: http.StatusConflict}))
	assert.Equal(t, FaultOther, Classify(&browserbase.APIError{Op: "create session", StatusCode: http.StatusBadRequest}))
	assert.Equal(t, FaultSessionGone, Classify(fmt.Errorf("click: %w", playwright.ErrTargetClosed)))

	// A classified fault keeps its kind whatever its text says.
	f := &Fault{Kind: FaultOther, Op: "act", Err: errors.New("Session closed")}
	assert.Equal(t, FaultOther, Classify(fmt.Errorf("wrapped: %w", f)))
}

func TestNewFault(t *testing.T) {
	assert.NoError(t, NewFault("navigate", nil))

	err := NewFault("navigate", errors.New("Execution context was destroyed"))
	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, FaultTransientPage, f.Kind)
	assert.Equal(t, "navigate: Execution context was destroyed", err.Error())
	assert.True(t, IsTransient(err))
	assert.False(t, IsSessionGone(err))

	assert.Same(t, err, NewFault("act", err))
}

func TestFaultKindString(t *testing.T) {
	assert.Equal(t, "other", FaultOther.String())
	assert.Equal(t, "transient_page", FaultTransientPage.String())
	assert.Equal(t, "session_gone", FaultSessionGone.String())
}

func TestSoftWait(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want WaitOutcome
	}{
		{"reached", nil, WaitReached},
		{"timed out", ErrWaitTimeout, WaitTimedOut},
		{"driver timeout", fmt.Errorf("waiting: %w", playwright.ErrTimeout), WaitTimedOut},
		{"deadline", context.DeadlineExceeded, WaitTimedOut},
		{"failed", errors.New("Session closed"), WaitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHandle("s1")
			h.waitFn = func(LoadState, time.Duration) error { return tt.err }

			outcome, err := SoftWait(ctx, h, LoadStateNetworkIdle, time.Second)
			assert.Equal(t, tt.want, outcome)
			if tt.want == WaitReached {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSettleWaitsInOrderAndNeverFails(t *testing.T) {
	h := newFakeHandle("s1")
	var bounds []time.Duration
	h.waitFn = func(state LoadState, timeout time.Duration) error {
		bounds = append(bounds, timeout)
		if state == LoadStateNetworkIdle {
			return ErrWaitTimeout
		}
		return nil
	}

	var logged []LoadState
	settle(context.Background(), h, fastTimeouts(), func(state LoadState, outcome WaitOutcome, err error) {
		assert.Equal(t, WaitTimedOut, outcome)
		logged = append(logged, state)
	})

	assert.Equal(t, []string{"wait:domcontentloaded", "wait:networkidle"}, h.calls)
	assert.Equal(t, []time.Duration{fastTimeouts().Load, fastTimeouts().NetworkIdle}, bounds)
	assert.Equal(t, []LoadState{LoadStateNetworkIdle}, logged)
}

func TestRetryTransient(t *testing.T) {
	ctx := context.Background()

	t.Run("retries exactly once", func(t *testing.T) {
		h := newFakeHandle("s1")
		attempts := 0
		_, err := retryTransient(ctx, h, ActName, time.Second, func(context.Context) (int, error) {
			attempts++
			return 0, NewFault("act", errors.New("Execution context was destroyed"))
		})
		require.Error(t, err)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 1, h.callCount("wait:load"))
	})

	t.Run("second attempt succeeds", func(t *testing.T) {
		h := newFakeHandle("s1")
		attempts := 0
		v, err := retryTransient(ctx, h, ActName, time.Second, func(context.Context) (string, error) {
			attempts++
			if attempts == 1 {
				return "", NewFault("act", errors.New("Execution context was destroyed"))
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("other faults are not retried", func(t *testing.T) {
		h := newFakeHandle("s1")
		attempts := 0
		_, err := retryTransient(ctx, h, ActName, time.Second, func(context.Context) (int, error) {
			attempts++
			return 0, NewFault("act", errors.New("Session closed"))
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
		assert.Zero(t, h.callCount("wait:load"))
	})
}
