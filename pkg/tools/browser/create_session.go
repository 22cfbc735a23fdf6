package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/browserbase"
)

// Wire names of the session-creation tools.
const (
	CreateSessionName         = "createSession"
	CreateSessionAdvancedName = "createSessionAdvanced"
)

const (
	createSessionLabel         = "Creating a new session"
	createSessionAdvancedLabel = "Creating a new session (advanced)"
	createSessionErrPrefix     = "Error creating session:"
)

// CreateSessionTool provisions a remote session with the fixed keep-alive
// defaults and returns its ID and live-view URL.
type CreateSessionTool struct {
	sessions SessionService
	args     *tools.ArgDecoder
}

// NewCreateSessionTool creates the createSession tool.
func NewCreateSessionTool(deps Deps) *CreateSessionTool {
	t := &CreateSessionTool{sessions: deps.Sessions}
	t.args = tools.MustArgDecoder(CreateSessionName, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *CreateSessionTool) Name() string {
	return CreateSessionName
}

// Description returns a description of what this tool does
func (t *CreateSessionTool) Description() string {
	return "Create a new browser session. Returns the session ID every other browser tool needs and a live-view URL."
}

// Schema returns the JSON schema for the tool's arguments
func (t *CreateSessionTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{
		"toolName": tools.StringProperty("What the tool is doing"),
	}, nil)
}

// Execute opens a Browserbase session with default settings.
func (t *CreateSessionTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct{}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(createSessionLabel, createSessionErrPrefix, err)
	}
	return createAndDescribe(ctx, t.sessions, t.sessions.DefaultCreateOptions(), createSessionLabel)
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *CreateSessionTool) IsLoopBreaking() bool {
	return false
}

// CreateSessionAdvancedTool provisions a remote session with caller-chosen
// options. Options left out are left out of the request too.
type CreateSessionAdvancedTool struct {
	sessions SessionService
	args     *tools.ArgDecoder
}

// NewCreateSessionAdvancedTool creates the createSessionAdvanced tool.
func NewCreateSessionAdvancedTool(deps Deps) *CreateSessionAdvancedTool {
	t := &CreateSessionAdvancedTool{sessions: deps.Sessions}
	t.args = tools.MustArgDecoder(CreateSessionAdvancedName, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *CreateSessionAdvancedTool) Name() string {
	return CreateSessionAdvancedName
}

// Description returns a description of what this tool does
func (t *CreateSessionAdvancedTool) Description() string {
	return "Create a new Browserbase session with advanced options (timeout, keepAlive, region, viewport, proxies, etc.)"
}

// Schema returns the JSON schema for the tool's arguments
func (t *CreateSessionAdvancedTool) Schema() map[string]interface{} {
	regions := make([]string, 0, len(browserbase.Regions))
	for _, r := range browserbase.Regions {
		regions = append(regions, string(r))
	}
	boolean := func(description string) map[string]interface{} {
		return map[string]interface{}{"type": "boolean", "description": description}
	}

	return tools.BaseToolSchema(map[string]interface{}{
		"toolName": tools.StringProperty("What the tool is doing"),
		"timeout": map[string]interface{}{
			"type":        "integer",
			"minimum":     browserbase.MinSessionTimeout,
			"maximum":     browserbase.MaxSessionTimeout,
			"description": "Session timeout in seconds",
		},
		"keepAlive": boolean("Keep session alive after disconnection (plan-dependent)"),
		"region": map[string]interface{}{
			"type": "string",
			"enum": regions,
		},
		"proxies": boolean("Route traffic through Browserbase proxies"),
		"viewport": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"width":  map[string]interface{}{"type": "integer", "minimum": 1},
				"height": map[string]interface{}{"type": "integer", "minimum": 1},
			},
		},
		"blockAds":      boolean("Block ads in the browser"),
		"solveCaptchas": boolean("Solve captchas automatically"),
		"recordSession": boolean("Record the session for replay"),
		"userMetadata": map[string]interface{}{
			"type":        "object",
			"description": "Free-form metadata attached to the session",
		},
	}, nil)
}

// Execute opens a Browserbase session with the requested settings.
func (t *CreateSessionAdvancedTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var opts browserbase.CreateOptions
	if err := t.args.Decode(raw, &opts); err != nil {
		return tools.Failure(createSessionAdvancedLabel, createSessionErrPrefix, err)
	}
	if err := opts.Validate(); err != nil {
		return tools.Failure(createSessionAdvancedLabel, createSessionErrPrefix,
			tools.NewValidationError(CreateSessionAdvancedName, "%v", err))
	}
	return createAndDescribe(ctx, t.sessions, &opts, createSessionAdvancedLabel)
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *CreateSessionAdvancedTool) IsLoopBreaking() bool {
	return false
}

// createAndDescribe creates a session and fetches its live-view URL.
func createAndDescribe(ctx context.Context, sessions SessionService, opts *browserbase.CreateOptions, label string) *tools.Result {
	session, err := sessions.CreateSession(ctx, opts)
	if err != nil {
		logger.Warnf("%s failed: %v", label, err)
		return tools.Failure(label, createSessionErrPrefix, err)
	}

	urls, err := sessions.DebugURLs(ctx, session.ID)
	if err != nil {
		logger.Warnf("Fetching live view for session %s failed: %v", session.ID, err)
		result := tools.Failure(label, createSessionErrPrefix, err)
		result.SessionID = session.ID
		return result
	}

	result := tools.Success(label, fmt.Sprintf("Created session %s. Live view: %s", session.ID, urls.DebuggerFullscreenURL))
	result.SessionID = session.ID
	result.DebugURL = urls.DebuggerFullscreenURL
	return result
}
