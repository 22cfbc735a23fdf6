package browser

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// ActName is the wire name of the action tool.
const ActName = "stagehandAct"

const (
	actLabel         = "Stagehand act"
	actErrPrefix     = "Error performing action:"
	actDefaultResult = "Action executed"
)

// ActTool performs one natural-language action on the session's page.
type ActTool struct {
	sessionTool
}

// NewActTool creates the stagehandAct tool.
func NewActTool(deps Deps) *ActTool {
	t := &ActTool{}
	t.sessionTool = newSessionTool(ActName, deps, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *ActTool) Name() string {
	return ActName
}

// Description returns a description of what this tool does
func (t *ActTool) Description() string {
	return "Take a natural-language action on the current page. Prefer this for robust interactions (click, type, press)."
}

// Schema returns the JSON schema for the tool's arguments
func (t *ActTool) Schema() map[string]interface{} {
	return sessionSchema(map[string]interface{}{
		"instruction": requiredString(`The action to perform, e.g., "click \"Sign in\""`),
	}, "instruction")
}

// Execute performs one natural-language action on the session's current page.
func (t *ActTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct {
		Instruction string `json:"instruction"`
		SessionID   string `json:"sessionId"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(actLabel, actErrPrefix, err)
	}

	h, err := t.pool.Resolve(ctx, args.SessionID)
	if err != nil {
		return t.fail(args.SessionID, h, actLabel, actErrPrefix, err)
	}
	h.SetTimeouts(t.timeouts.Action, t.timeouts.Navigation)

	result, err := retryTransient(ctx, h, ActName, t.timeouts.Load, func(ctx context.Context) (*ActResult, error) {
		return h.Act(ctx, args.Instruction)
	})
	if err != nil {
		return t.fail(args.SessionID, h, actLabel, actErrPrefix, err)
	}
	if result != nil && !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "action was not performed"
		}
		return t.fail(args.SessionID, h, actLabel, actErrPrefix, errors.New(msg))
	}

	if result == nil || result.Message == "" {
		return tools.Success(actLabel, actDefaultResult)
	}
	return tools.Success(actLabel, result.Message)
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *ActTool) IsLoopBreaking() bool {
	return false
}
