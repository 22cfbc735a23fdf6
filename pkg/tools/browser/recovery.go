package browser

import (
	"context"
	"time"

	"github.com/entrhq/webpilot/pkg/metrics"
)

// retryTransient runs op and, when it fails with a transient page fault,
// waits softly for the page to reach load and runs op exactly once more.
// The second error, if any, is returned as is.
func retryTransient[T any](ctx context.Context, h Handle, tool string, loadTimeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	result, err := op(ctx)
	if err == nil || !IsTransient(err) {
		return result, err
	}

	logger.Warnf("%s hit a transient page fault, retrying once: %v", tool, err)
	metrics.RecordToolRetry(tool)

	if outcome, waitErr := SoftWait(ctx, h, LoadStateLoad, loadTimeout); outcome != WaitReached {
		logger.Debugf("%s: load wait before retry %s: %v", tool, outcome, waitErr)
	}
	return op(ctx)
}

// evictIfGone removes h from the pool when err says its remote session is
// unusable, and closes it. A handle that has already been replaced under
// sessionID is still closed but leaves the newer entry alone. It reports
// whether h was evicted from the pool.
func (p *Pool) evictIfGone(sessionID string, h Handle, err error) bool {
	if sessionID == "" || h == nil || !IsSessionGone(err) {
		return false
	}
	logger.Warnf("Session %s is gone, evicting: %v", sessionID, err)
	return p.evict(sessionID, h)
}
