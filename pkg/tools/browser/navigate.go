package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// NavigateName is the wire name of the navigation tool.
const NavigateName = "navigateTo"

const navigateLabel = "Navigating to URL"

// NavigateTool opens a URL in an existing session and reports the page title.
type NavigateTool struct {
	sessionTool
	policy *NavigationPolicy
}

// NewNavigateTool creates the navigateTo tool.
func NewNavigateTool(deps Deps) *NavigateTool {
	t := &NavigateTool{policy: deps.Policy}
	t.sessionTool = newSessionTool(NavigateName, deps, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *NavigateTool) Name() string {
	return NavigateName
}

// Description returns a description of what this tool does
func (t *NavigateTool) Description() string {
	return "Directly navigate to a specific URL in the existing browser session. Prefer this when the user asks to open a known site (e.g., \"go to bestbuy.com\")."
}

// Schema returns the JSON schema for the tool's arguments
func (t *NavigateTool) Schema() map[string]interface{} {
	return sessionSchema(map[string]interface{}{
		"url": requiredString("The full URL to navigate to (e.g., https://www.bestbuy.com). Include the scheme."),
	}, "url")
}

// Execute loads the URL in the session's page and reports the page title.
func (t *NavigateTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct {
		URL       string `json:"url"`
		SessionID string `json:"sessionId"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(navigateLabel, "Error navigating:", err)
	}
	prefix := fmt.Sprintf("Error navigating to %s:", args.URL)
	if err := t.policy.Check(args.URL); err != nil {
		return tools.Failure(navigateLabel, prefix, tools.NewValidationError(NavigateName, "%v", err))
	}

	h, err := t.pool.Resolve(ctx, args.SessionID)
	if err != nil {
		return t.fail(args.SessionID, h, navigateLabel, prefix, err)
	}

	if err := h.Navigate(ctx, args.URL, LoadStateLoad); err != nil {
		return t.fail(args.SessionID, h, navigateLabel, prefix, err)
	}
	t.settle(ctx, h, args.SessionID)

	title, err := h.Title(ctx)
	if err != nil {
		return t.fail(args.SessionID, h, navigateLabel, prefix, err)
	}

	return tools.Success(navigateLabel, fmt.Sprintf("Navigated to %s. Page title: %s", args.URL, title))
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *NavigateTool) IsLoopBreaking() bool {
	return false
}
