package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/browserbase"
)

// PlaywrightConfig configures handles opened over CDP.
type PlaywrightConfig struct {
	// Client builds the CDP connect URL for a session.
	Client *browserbase.Client

	// Assistant plans Act steps and performs Extract.
	Assistant *Assistant

	Timeouts Timeouts

	// SelfHeal lets Act re-plan once with the failure when a planned step
	// cannot be performed.
	SelfHeal bool
}

// PlaywrightProvisioner opens handles on remote Browserbase sessions through
// a single lazily started Playwright driver.
type PlaywrightProvisioner struct {
	cfg PlaywrightConfig

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewPlaywrightProvisioner creates a provisioner. The driver is started on
// the first Provision call.
func NewPlaywrightProvisioner(cfg PlaywrightConfig) *PlaywrightProvisioner {
	cfg.Timeouts = cfg.Timeouts.withDefaults()
	return &PlaywrightProvisioner{cfg: cfg}
}

// driver installs and starts the Playwright driver once. Browsers are not
// installed: every browser is remote.
func (p *PlaywrightProvisioner) driver() (*playwright.Playwright, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pw != nil {
		return p.pw, nil
	}

	opts := &playwright.RunOptions{
		SkipInstallBrowsers: true,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright driver: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	logger.Infof("Playwright driver started")
	p.pw = pw
	return pw, nil
}

// Provision connects to sessionID and binds a handle to its first page.
func (p *PlaywrightProvisioner) Provision(ctx context.Context, sessionID string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.cfg.Client == nil {
		return nil, fmt.Errorf("browserbase client is not configured")
	}

	pw, err := p.driver()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.ConnectOverCDP(p.cfg.Client.ConnectURL(sessionID), playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: playwright.Float(millis(p.cfg.Timeouts.Navigation)),
	})
	if err != nil {
		return nil, NewFault("connect", err)
	}

	page, err := firstPage(browser)
	if err != nil {
		_ = browser.Close()
		return nil, NewFault("open page", err)
	}

	h := &pageHandle{
		sessionID: sessionID,
		browser:   browser,
		page:      page,
		assistant: p.cfg.Assistant,
		timeouts:  p.cfg.Timeouts,
		selfHeal:  p.cfg.SelfHeal,
	}
	h.SetTimeouts(p.cfg.Timeouts.Action, p.cfg.Timeouts.Navigation)

	model := "none"
	if p.cfg.Assistant != nil {
		model = p.cfg.Assistant.Model()
	}
	logger.Infof("Connected to session %s (assist model %s)", sessionID, model)
	return h, nil
}

// Shutdown stops the driver if it was started.
func (p *PlaywrightProvisioner) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pw == nil {
		return nil
	}
	err := p.pw.Stop()
	p.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// firstPage returns the page the remote browser was created with, creating
// a context or page only when none exists.
func firstPage(browser playwright.Browser) (playwright.Page, error) {
	var bctx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		bctx = contexts[0]
	} else {
		created, err := browser.NewContext()
		if err != nil {
			return nil, err
		}
		bctx = created
	}

	if pages := bctx.Pages(); len(pages) > 0 {
		return pages[0], nil
	}
	return bctx.NewPage()
}

// pageHandle is a Handle over one Playwright page of a remote browser.
type pageHandle struct {
	sessionID string
	browser   playwright.Browser
	page      playwright.Page
	assistant *Assistant
	timeouts  Timeouts
	selfHeal  bool

	mu         sync.Mutex
	action     time.Duration
	navigation time.Duration
}

func (h *pageHandle) Navigate(ctx context.Context, url string, state LoadState) error {
	if err := ctx.Err(); err != nil {
		return NewFault("navigate", err)
	}
	waitUntil := playwright.WaitUntilState(state)
	_, err := h.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(millis(h.navigationTimeout())),
	})
	return NewFault("navigate", err)
}

func (h *pageHandle) WaitForLoadState(ctx context.Context, state LoadState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return NewFault("wait for load state", err)
	}
	s := playwright.LoadState(state)
	err := h.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &s,
		Timeout: playwright.Float(millis(timeout)),
	})
	return NewFault("wait for "+string(state), err)
}

func (h *pageHandle) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return NewFault("wait for selector", err)
	}
	_, err := h.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	return NewFault(fmt.Sprintf("wait for selector %q", selector), err)
}

func (h *pageHandle) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewFault("title", err)
	}
	title, err := h.page.Title()
	return title, NewFault("title", err)
}

func (h *pageHandle) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", NewFault("content", err)
	}
	content, err := h.page.Content()
	return content, NewFault("content", err)
}

func (h *pageHandle) URL() string {
	return h.page.URL()
}

func (h *pageHandle) Evaluate(ctx context.Context, script string, arg interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewFault("evaluate", err)
	}
	var (
		result interface{}
		err    error
	)
	if arg == nil {
		result, err = h.page.Evaluate(script)
	} else {
		result, err = h.page.Evaluate(script, arg)
	}
	return result, NewFault("evaluate", err)
}

// Act plans a step for instruction and performs it. With self-heal on, a
// step that fails for a reason other than a transient or session fault is
// re-planned once against a fresh snapshot.
func (h *pageHandle) Act(ctx context.Context, instruction string) (*ActResult, error) {
	if h.assistant == nil {
		return nil, &Fault{Kind: FaultOther, Op: "act", Err: fmt.Errorf("no assist model configured")}
	}

	step, err := h.plan(ctx, instruction, nil)
	if err != nil {
		return nil, err
	}

	err = h.perform(step)
	if err != nil && h.selfHeal && Classify(err) == FaultOther {
		logger.Debugf("Session %s: step %s %q failed, re-planning: %v", h.sessionID, step.Method, step.Selector, err)
		step, err = h.plan(ctx, instruction, err)
		if err != nil {
			return nil, err
		}
		err = h.perform(step)
	}
	if err != nil {
		return nil, err
	}

	return &ActResult{
		Success: true,
		Message: actMessage(step),
		Action:  step.Method,
	}, nil
}

func (h *pageHandle) Extract(ctx context.Context, instruction string, schema map[string]interface{}) (map[string]interface{}, error) {
	if h.assistant == nil {
		return nil, &Fault{Kind: FaultOther, Op: "extract", Err: fmt.Errorf("no assist model configured")}
	}

	snapshot, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	data, err := h.assistant.Extract(ctx, instruction, schema, h.page.URL(), snapshot)
	return data, NewFault("extract", err)
}

func (h *pageHandle) SetTimeouts(action, navigation time.Duration) {
	h.mu.Lock()
	h.action, h.navigation = action, navigation
	h.mu.Unlock()

	h.page.SetDefaultTimeout(millis(action))
	h.page.SetDefaultNavigationTimeout(millis(navigation))
}

// Close disconnects from the remote browser. The remote session itself
// keeps running until its own timeout.
func (h *pageHandle) Close(ctx context.Context) error {
	return NewFault("close", h.browser.Close())
}

func (h *pageHandle) actionTimeout() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.action
}

func (h *pageHandle) navigationTimeout() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.navigation
}

// snapshot waits for the DOM to settle and reduces the page for the model.
func (h *pageHandle) snapshot(ctx context.Context) (*Snapshot, error) {
	if outcome, err := SoftWait(ctx, h, LoadStateDOMContentLoaded, h.timeouts.DOMSettle); outcome != WaitReached {
		logger.Debugf("Session %s: DOM settle %s: %v", h.sessionID, outcome, err)
	}
	content, err := h.Content(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := h.assistant.Snapshot(content)
	return snapshot, NewFault("snapshot", err)
}

func (h *pageHandle) plan(ctx context.Context, instruction string, previous error) (*Step, error) {
	snapshot, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	step, err := h.assistant.Plan(ctx, instruction, h.page.URL(), snapshot, previous)
	return step, NewFault("act", err)
}

func (h *pageHandle) perform(step *Step) error {
	locator := h.page.Locator(step.Selector).First()
	timeout := playwright.Float(millis(h.actionTimeout()))

	var err error
	switch step.Method {
	case StepClick:
		err = locator.Click(playwright.LocatorClickOptions{Timeout: timeout})
	case StepFill:
		err = locator.Fill(step.Value, playwright.LocatorFillOptions{Timeout: timeout})
	case StepPress:
		err = locator.Press(step.Value, playwright.LocatorPressOptions{Timeout: timeout})
	case StepHover:
		err = locator.Hover(playwright.LocatorHoverOptions{Timeout: timeout})
	default:
		err = fmt.Errorf("unsupported step method %q", step.Method)
	}
	return NewFault(step.Method, err)
}

func actMessage(step *Step) string {
	if step.Description != "" {
		return fmt.Sprintf("Action performed: %s", step.Description)
	}
	return fmt.Sprintf("Action performed: %s on %s", step.Method, step.Selector)
}
