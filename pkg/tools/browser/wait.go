package browser

import (
	"context"
	"time"
)

// WaitOutcome is the result of a soft wait. Soft waits never fail the
// calling tool; the outcome is returned so callers can log what happened.
type WaitOutcome int

const (
	// WaitReached means the page reached the requested state in time
	WaitReached WaitOutcome = iota

	// WaitTimedOut means the bound elapsed first
	WaitTimedOut

	// WaitFailed means the wait errored for another reason
	WaitFailed
)

func (o WaitOutcome) String() string {
	switch o {
	case WaitReached:
		return "reached"
	case WaitTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

// SoftWait waits for state with a bound and reports how it ended, along with
// the underlying error for anything but WaitReached.
func SoftWait(ctx context.Context, h Handle, state LoadState, timeout time.Duration) (WaitOutcome, error) {
	err := h.WaitForLoadState(ctx, state, timeout)
	switch {
	case err == nil:
		return WaitReached, nil
	case isTimeout(err):
		return WaitTimedOut, err
	default:
		return WaitFailed, err
	}
}

// settle runs the two soft readiness waits that follow every navigation:
// domcontentloaded bounded by Load, then networkidle bounded by NetworkIdle.
func settle(ctx context.Context, h Handle, timeouts Timeouts, log func(state LoadState, outcome WaitOutcome, err error)) {
	for _, step := range []struct {
		state   LoadState
		timeout time.Duration
	}{
		{LoadStateDOMContentLoaded, timeouts.Load},
		{LoadStateNetworkIdle, timeouts.NetworkIdle},
	} {
		outcome, err := SoftWait(ctx, h, step.state, step.timeout)
		if outcome != WaitReached && log != nil {
			log(step.state, outcome, err)
		}
	}
}
