package browser

import (
	"context"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/browserbase"
)

// SessionService creates remote browser sessions. *browserbase.Client
// satisfies it.
type SessionService interface {
	DefaultCreateOptions() *browserbase.CreateOptions
	CreateSession(ctx context.Context, opts *browserbase.CreateOptions) (*browserbase.Session, error)
	DebugURLs(ctx context.Context, sessionID string) (*browserbase.DebugURLs, error)
}

// Deps holds the collaborators shared by the browser tools.
type Deps struct {
	Pool       *Pool
	Sessions   SessionService
	Summarizer Summarizer
	Policy     *NavigationPolicy
	Timeouts   Timeouts

	// SearchURL is the results page the query is appended to.
	SearchURL string
}

// DefaultSearchURL is the DuckDuckGo HTML endpoint, which serves fewer
// captchas than the scripted results page.
const DefaultSearchURL = "https://html.duckduckgo.com/html/?q="

// sessionTool carries what every session-bound tool shares.
type sessionTool struct {
	pool     *Pool
	timeouts Timeouts
	args     *tools.ArgDecoder
}

func newSessionTool(name string, deps Deps, schema map[string]interface{}) sessionTool {
	return sessionTool{
		pool:     deps.Pool,
		timeouts: deps.Timeouts.withDefaults(),
		args:     tools.MustArgDecoder(name, schema),
	}
}

// fail evicts h when err says its session is gone and folds err into a
// failed result. h is nil when the handle could not be resolved.
func (t *sessionTool) fail(sessionID string, h Handle, label, prefix string, err error) *tools.Result {
	t.pool.evictIfGone(sessionID, h, err)
	logger.Warnf("%s failed for session %s: %v", label, sessionID, err)
	return tools.Failure(label, prefix, err)
}

// settle runs the post-navigation soft waits and logs the ones that fell short.
func (t *sessionTool) settle(ctx context.Context, h Handle, sessionID string) {
	settle(ctx, h, t.timeouts, func(state LoadState, outcome WaitOutcome, err error) {
		logger.Debugf("Session %s: %s wait %s: %v", sessionID, state, outcome, err)
	})
}

// sessionSchema builds a tool schema around the sessionId argument and the
// optional toolName and debuggerFullscreenUrl arguments the model tends to
// send. Those two are accepted and ignored.
func sessionSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	props := map[string]interface{}{
		"toolName": tools.StringProperty("What the tool is doing"),
		"sessionId": map[string]interface{}{
			"type":        "string",
			"description": "Existing Browserbase session ID. If none, create one with createSession first.",
			"minLength":   1,
		},
		"debuggerFullscreenUrl": tools.StringProperty("Optional debugger URL of the session (not required)."),
	}
	for k, v := range properties {
		props[k] = v
	}
	return tools.BaseToolSchema(props, append([]string{"sessionId"}, required...))
}

func requiredString(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"minLength":   1,
	}
}
