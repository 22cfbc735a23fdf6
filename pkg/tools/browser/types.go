package browser

import (
	"context"
	"time"
)

// LoadState is a page lifecycle milestone a Handle can wait for.
type LoadState string

const (
	// LoadStateLoad fires when the page and its subresources have loaded
	LoadStateLoad LoadState = "load"

	// LoadStateDOMContentLoaded fires when the document has been parsed
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"

	// LoadStateNetworkIdle fires after 500ms without network connections
	LoadStateNetworkIdle LoadState = "networkidle"
)

// Handle is a live automation connection bound to one remote session.
//
// Every error a Handle returns is a *Fault, classified at the boundary with
// the automation library so callers never inspect error text.
type Handle interface {
	// Navigate loads url and waits for state before returning
	Navigate(ctx context.Context, url string, state LoadState) error

	// WaitForLoadState blocks until the page reaches state or timeout elapses
	WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error

	// WaitForSelector blocks until an element matches selector or timeout elapses
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	Title(ctx context.Context) (string, error)

	// Content returns the full rendered document as HTML
	Content(ctx context.Context) (string, error)

	URL() string

	// Evaluate runs a JavaScript expression in the page and returns its JSON value
	Evaluate(ctx context.Context, script string, arg interface{}) (interface{}, error)

	// Act performs one natural-language instruction on the page
	Act(ctx context.Context, instruction string) (*ActResult, error)

	// Extract pulls data described by instruction into the shape of schema
	Extract(ctx context.Context, instruction string, schema map[string]interface{}) (map[string]interface{}, error)

	// SetTimeouts sets the page's default action and navigation timeouts
	SetTimeouts(action, navigation time.Duration)

	Close(ctx context.Context) error
}

// ActResult describes what an Act call did.
type ActResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
}

// Timeouts bounds every browser wait the tools perform.
type Timeouts struct {
	// Action is the per-page default for act and extract
	Action time.Duration

	// Navigation is the per-page default for navigations triggered by actions
	Navigation time.Duration

	// Load bounds the soft domcontentloaded wait and the settle before a retry
	Load time.Duration

	// NetworkIdle bounds the soft networkidle wait
	NetworkIdle time.Duration

	// Selector bounds the critical wait for search results
	Selector time.Duration

	// DOMSettle bounds how long a handle waits for the DOM before planning an action
	DOMSettle time.Duration
}

// DefaultTimeouts returns the stock timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Action:      15 * time.Second,
		Navigation:  45 * time.Second,
		Load:        10 * time.Second,
		NetworkIdle: 7500 * time.Millisecond,
		Selector:    15 * time.Second,
		DOMSettle:   60 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultTimeouts.
func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Action <= 0 {
		t.Action = d.Action
	}
	if t.Navigation <= 0 {
		t.Navigation = d.Navigation
	}
	if t.Load <= 0 {
		t.Load = d.Load
	}
	if t.NetworkIdle <= 0 {
		t.NetworkIdle = d.NetworkIdle
	}
	if t.Selector <= 0 {
		t.Selector = d.Selector
	}
	if t.DOMSettle <= 0 {
		t.DOMSettle = d.DOMSettle
	}
	return t
}

func millis(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
