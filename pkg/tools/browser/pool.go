package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/metrics"
)

var logger = logging.NewLogger("browser")

const (
	// provisionTimeout bounds one provisioning attempt.
	provisionTimeout = 90 * time.Second

	// evictCloseTimeout bounds the best-effort close of an evicted handle.
	evictCloseTimeout = 5 * time.Second
)

// Eviction reasons reported to metrics.
const (
	evictReasonSessionGone = "session_gone"
	evictReasonClosed      = "closed"
	evictReasonShutdown    = "shutdown"
)

// Provisioner opens a Handle bound to an existing remote session.
type Provisioner interface {
	Provision(ctx context.Context, sessionID string) (Handle, error)
}

// ProvisionerFunc adapts a function to Provisioner.
type ProvisionerFunc func(ctx context.Context, sessionID string) (Handle, error)

// Provision calls f.
func (f ProvisionerFunc) Provision(ctx context.Context, sessionID string) (Handle, error) {
	return f(ctx, sessionID)
}

// ProvisioningError means a handle could not be opened for a session.
type ProvisioningError struct {
	SessionID string
	Err       error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to connect to session %s: %v", e.SessionID, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Pool caches one Handle per session ID for the life of the process.
//
// Handles are created on first use, reused by every later call for the same
// ID, and removed on explicit close or when a call finds the session gone.
// There is no TTL: a session's lifetime is bounded by the remote service.
type Pool struct {
	mu          sync.Mutex
	handles     map[string]Handle
	group       singleflight.Group
	provisioner Provisioner
}

// NewPool creates an empty pool that opens handles with provisioner.
func NewPool(provisioner Provisioner) *Pool {
	return &Pool{
		handles:     make(map[string]Handle),
		provisioner: provisioner,
	}
}

// Resolve returns the handle for sessionID, provisioning and registering one
// if none exists. Concurrent first use of the same ID provisions once.
// Provisioning is attempted a single time per call; failures are returned
// as *ProvisioningError. A caller whose ctx ends stops waiting while the
// attempt continues for the others.
func (p *Pool) Resolve(ctx context.Context, sessionID string) (Handle, error) {
	if sessionID == "" {
		return nil, &ProvisioningError{Err: errors.New("session ID is required")}
	}
	if h, ok := p.Lookup(sessionID); ok {
		return h, nil
	}

	// The attempt is shared by every concurrent caller and outlives any one
	// caller's cancellation.
	ch := p.group.DoChan(sessionID, func() (interface{}, error) {
		if h, ok := p.Lookup(sessionID); ok {
			return h, nil
		}

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provisionTimeout)
		defer cancel()

		logger.Infof("Provisioning browser handle for session %s", sessionID)
		h, err := p.provisioner.Provision(pctx, sessionID)
		metrics.RecordProvision(err)
		if err != nil {
			return nil, &ProvisioningError{SessionID: sessionID, Err: err}
		}

		p.mu.Lock()
		p.handles[sessionID] = h
		n := len(p.handles)
		p.mu.Unlock()
		metrics.SetPoolSessions(n)
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, &ProvisioningError{SessionID: sessionID, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Handle), nil
	}
}

// Lookup returns the handle for sessionID without creating one.
func (p *Pool) Lookup(sessionID string) (Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[sessionID]
	return h, ok
}

// Evict drops sessionID from the pool and closes its handle best-effort.
// Evicting an unknown ID is a no-op.
func (p *Pool) Evict(sessionID string) {
	if h, ok := p.Lookup(sessionID); ok {
		p.evict(sessionID, h)
	}
}

// evict removes sessionID only while it still maps to h, then closes h.
// Close errors are logged and dropped: the remote session is already gone.
func (p *Pool) evict(sessionID string, h Handle) bool {
	removed := p.remove(sessionID, h, evictReasonSessionGone)
	if !removed {
		logger.Debugf("Session %s no longer maps to the failed handle, closing it only", sessionID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), evictCloseTimeout)
	defer cancel()
	if err := h.Close(ctx); err != nil {
		logger.Debugf("Closing evicted handle for session %s: %v", sessionID, err)
	}
	return removed
}

// Close shuts the handle for sessionID down and removes it. It returns false
// when there was nothing to close. The entry is removed even when shutdown
// fails; the shutdown error is returned.
func (p *Pool) Close(ctx context.Context, sessionID string) (bool, error) {
	h, ok := p.Lookup(sessionID)
	if !ok {
		return false, nil
	}

	err := h.Close(ctx)
	p.remove(sessionID, h, evictReasonClosed)
	if err != nil {
		logger.Warnf("Closing session %s failed: %v", sessionID, err)
		return true, err
	}
	logger.Infof("Closed session %s", sessionID)
	return true, nil
}

// Len returns the number of live handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// IDs returns the pooled session IDs in sorted order.
func (p *Pool) IDs() []string {
	p.mu.Lock()
	ids := make([]string, 0, len(p.handles))
	for id := range p.handles {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// CloseAll shuts down every pooled handle and empties the pool.
func (p *Pool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	handles := p.handles
	p.handles = make(map[string]Handle)
	p.mu.Unlock()
	metrics.SetPoolSessions(0)

	var errs []error
	for id, h := range handles {
		if err := h.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
		metrics.RecordEviction(evictReasonShutdown)
	}
	return errors.Join(errs...)
}

// remove deletes sessionID only while it still maps to h.
func (p *Pool) remove(sessionID string, h Handle, reason string) bool {
	p.mu.Lock()
	cur, ok := p.handles[sessionID]
	removed := ok && cur == h
	if removed {
		delete(p.handles, sessionID)
	}
	n := len(p.handles)
	p.mu.Unlock()

	if removed {
		metrics.RecordEviction(reason)
		metrics.SetPoolSessions(n)
	}
	return removed
}
