package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/webpilot/pkg/browserbase"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/types"
)

// fakeHandle is a scriptable Handle. Unset hooks succeed.
type fakeHandle struct {
	mu sync.Mutex

	id     string
	url    string
	title  string
	html   string
	closed bool
	calls  []string

	navigateFn func(url string) error
	waitFn     func(state LoadState, timeout time.Duration) error
	selectorFn func(selector string, timeout time.Duration) error
	evaluateFn func(script string) (interface{}, error)
	actFn      func(instruction string) (*ActResult, error)
	extractFn  func(instruction string) (map[string]interface{}, error)
	contentErr error
	closeErr   error
	actTimeout time.Duration
	navTimeout time.Duration
}

func newFakeHandle(id string) *fakeHandle {
	return &fakeHandle{id: id, title: "Example Domain"}
}

func (h *fakeHandle) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *fakeHandle) callCount(call string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (h *fakeHandle) Navigate(ctx context.Context, url string, state LoadState) error {
	h.record("navigate")
	if h.navigateFn != nil {
		if err := h.navigateFn(url); err != nil {
			return NewFault("navigate", err)
		}
	}
	h.mu.Lock()
	h.url = url
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	h.record("wait:" + string(state))
	if h.waitFn != nil {
		return NewFault("wait", h.waitFn(state, timeout))
	}
	return nil
}

func (h *fakeHandle) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	h.record("selector")
	if h.selectorFn != nil {
		return NewFault("wait for selector", h.selectorFn(selector, timeout))
	}
	return nil
}

func (h *fakeHandle) Title(ctx context.Context) (string, error) {
	h.record("title")
	return h.title, nil
}

func (h *fakeHandle) Content(ctx context.Context) (string, error) {
	h.record("content")
	if h.contentErr != nil {
		return "", NewFault("content", h.contentErr)
	}
	return h.html, nil
}

func (h *fakeHandle) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

func (h *fakeHandle) Evaluate(ctx context.Context, script string, arg interface{}) (interface{}, error) {
	h.record("evaluate")
	if h.evaluateFn != nil {
		v, err := h.evaluateFn(script)
		return v, NewFault("evaluate", err)
	}
	return nil, nil
}

func (h *fakeHandle) Act(ctx context.Context, instruction string) (*ActResult, error) {
	h.record("act")
	if h.actFn != nil {
		r, err := h.actFn(instruction)
		return r, NewFault("act", err)
	}
	return &ActResult{Success: true, Message: "Action performed: " + instruction, Action: instruction}, nil
}

func (h *fakeHandle) Extract(ctx context.Context, instruction string, schema map[string]interface{}) (map[string]interface{}, error) {
	h.record("extract")
	if h.extractFn != nil {
		d, err := h.extractFn(instruction)
		return d, NewFault("extract", err)
	}
	return map[string]interface{}{"text": "extracted"}, nil
}

func (h *fakeHandle) SetTimeouts(action, navigation time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actTimeout = action
	h.navTimeout = navigation
}

func (h *fakeHandle) Close(ctx context.Context) error {
	h.record("close")
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return h.closeErr
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// fakeProvisioner hands out a new fakeHandle per call and keeps them all.
type fakeProvisioner struct {
	mu      sync.Mutex
	handles []*fakeHandle
	count   atomic.Int32
	delay   time.Duration
	err     error
	setup   func(h *fakeHandle)
}

func (p *fakeProvisioner) Provision(ctx context.Context, sessionID string) (Handle, error) {
	p.count.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	h := newFakeHandle(sessionID)
	if p.setup != nil {
		p.setup(h)
	}
	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()
	return h, nil
}

func (p *fakeProvisioner) provisioned() int {
	return int(p.count.Load())
}

func (p *fakeProvisioner) last() *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.handles) == 0 {
		return nil
	}
	return p.handles[len(p.handles)-1]
}

// fakeSessions is an in-memory SessionService.
type fakeSessions struct {
	created   []*browserbase.CreateOptions
	createErr error
	debugErr  error
}

func (s *fakeSessions) DefaultCreateOptions() *browserbase.CreateOptions {
	keepAlive := true
	timeout := 600
	return &browserbase.CreateOptions{KeepAlive: &keepAlive, Timeout: &timeout}
}

func (s *fakeSessions) CreateSession(ctx context.Context, opts *browserbase.CreateOptions) (*browserbase.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, opts)
	return &browserbase.Session{ID: "sess-1"}, nil
}

func (s *fakeSessions) DebugURLs(ctx context.Context, sessionID string) (*browserbase.DebugURLs, error) {
	if s.debugErr != nil {
		return nil, s.debugErr
	}
	return &browserbase.DebugURLs{DebuggerFullscreenURL: "https://live.example/" + sessionID}, nil
}

// echoSummarizer returns its input with a marker so tests can see what was
// summarized.
type echoSummarizer struct {
	mu     sync.Mutex
	inputs []string
	err    error
}

func (s *echoSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, text)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "summary: " + text, nil
}

// fakeProvider replies to Complete with scripted messages in order.
type fakeProvider struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests [][]*types.Message
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, messages)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return types.NewAssistantMessage(reply), nil
}

func (p *fakeProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "fake", Name: "fake-model"}
}

func (p *fakeProvider) GetModel() string {
	return "fake-model"
}

// fastTimeouts keeps waits in tests short.
func fastTimeouts() Timeouts {
	return Timeouts{
		Action:      time.Second,
		Navigation:  time.Second,
		Load:        50 * time.Millisecond,
		NetworkIdle: 50 * time.Millisecond,
		Selector:    100 * time.Millisecond,
		DOMSettle:   100 * time.Millisecond,
	}
}

func newTestDeps(p Provisioner) (Deps, *fakeSessions, *echoSummarizer) {
	sessions := &fakeSessions{}
	summarizer := &echoSummarizer{}
	return Deps{
		Pool:       NewPool(p),
		Sessions:   sessions,
		Summarizer: summarizer,
		Timeouts:   fastTimeouts(),
	}, sessions, summarizer
}
