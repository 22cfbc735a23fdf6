package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/browserbase"
)

// FaultKind is the recovery class of a browser failure.
type FaultKind int

const (
	// FaultOther is reported verbatim with no recovery
	FaultOther FaultKind = iota

	// FaultTransientPage means the page's execution context was torn down,
	// usually by a navigation racing the action. One retry is allowed.
	FaultTransientPage

	// FaultSessionGone means the remote session no longer exists or refused
	// the request. The session is evicted from the pool.
	FaultSessionGone
)

func (k FaultKind) String() string {
	switch k {
	case FaultTransientPage:
		return "transient_page"
	case FaultSessionGone:
		return "session_gone"
	default:
		return "other"
	}
}

// Fault is a classified browser failure.
type Fault struct {
	Kind FaultKind
	Op   string
	Err  error
}

func (f *Fault) Error() string {
	if f.Op == "" {
		return f.Err.Error()
	}
	return fmt.Sprintf("%s: %v", f.Op, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// ErrWaitTimeout is returned by waits that ran out of time.
var ErrWaitTimeout = errors.New("wait timed out")

var (
	transientSignatures = []string{
		"Execution context was destroyed",
	}
	sessionGoneSignatures = []string{
		"409",
		"not currently active",
		"Session closed",
		"Target page, context or browser has been closed",
	}
)

// ClassifyMessage maps raw automation-library error text onto a FaultKind.
// It is the only place error strings are inspected.
func ClassifyMessage(msg string) FaultKind {
	for _, sig := range sessionGoneSignatures {
		if strings.Contains(msg, sig) {
			return FaultSessionGone
		}
	}
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return FaultTransientPage
		}
	}
	return FaultOther
}

// Classify returns the FaultKind of err. Already-classified faults keep their
// kind; typed errors from the session service and the driver are mapped
// before falling back to ClassifyMessage.
func Classify(err error) FaultKind {
	if err == nil {
		return FaultOther
	}
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	if browserbase.IsSessionGone(err) || errors.Is(err, playwright.ErrTargetClosed) {
		return FaultSessionGone
	}
	return ClassifyMessage(err.Error())
}

// NewFault classifies err and wraps it with the failing operation. A nil err
// stays nil and an existing *Fault is returned unchanged.
func NewFault(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}
	return &Fault{Kind: Classify(err), Op: op, Err: err}
}

// IsTransient reports whether err is a transient page fault.
func IsTransient(err error) bool {
	return err != nil && Classify(err) == FaultTransientPage
}

// IsSessionGone reports whether err means the remote session is unusable.
func IsSessionGone(err error) bool {
	return err != nil && Classify(err) == FaultSessionGone
}

// isTimeout reports whether err is a bounded wait running out of time.
func isTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout) ||
		errors.Is(err, playwright.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
