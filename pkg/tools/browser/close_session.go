package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// CloseSessionName is the wire name of the close tool.
const CloseSessionName = "closeStagehand"

const (
	closeSessionLabel     = "Close Stagehand"
	closeSessionErrPrefix = "Error closing Stagehand:"
	closeSessionNotFound  = "No Stagehand instance found for this session."
	closeSessionDone      = "Stagehand closed."
)

// CloseSessionTool shuts down the pooled handle of a session. It never
// provisions one: closing an unknown session reports that nothing was open.
type CloseSessionTool struct {
	sessionTool
}

// NewCloseSessionTool creates the closeStagehand tool.
func NewCloseSessionTool(deps Deps) *CloseSessionTool {
	t := &CloseSessionTool{}
	t.sessionTool = newSessionTool(CloseSessionName, deps, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *CloseSessionTool) Name() string {
	return CloseSessionName
}

// Description returns a description of what this tool does
func (t *CloseSessionTool) Description() string {
	return "Close and clean up the browser connection for a given session. Use this when you are done interacting with the session."
}

// Schema returns the JSON schema for the tool's arguments
func (t *CloseSessionTool) Schema() map[string]interface{} {
	return sessionSchema(nil)
}

// Execute closes the pooled handle for the session.
func (t *CloseSessionTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct {
		SessionID string `json:"sessionId"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(closeSessionLabel, closeSessionErrPrefix, err)
	}

	closed, err := t.pool.Close(ctx, args.SessionID)
	if !closed {
		return tools.Notice(closeSessionLabel, closeSessionNotFound)
	}
	if err != nil {
		return tools.Failure(closeSessionLabel, closeSessionErrPrefix, err)
	}
	return tools.Success(closeSessionLabel, closeSessionDone)
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *CloseSessionTool) IsLoopBreaking() bool {
	return false
}
