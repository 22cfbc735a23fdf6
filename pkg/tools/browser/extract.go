package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// ExtractName is the wire name of the extraction tool.
const ExtractName = "stagehandExtract"

const (
	extractLabel     = "Stagehand extract"
	extractErrPrefix = "Error extracting content:"
)

// textSchema is the minimal extraction shape: a single text field.
var textSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"text": map[string]interface{}{"type": "string"},
	},
	"required": []string{"text"},
}

// ExtractTool pulls plain text described by an instruction from the page.
type ExtractTool struct {
	sessionTool
}

// NewExtractTool creates the stagehandExtract tool.
func NewExtractTool(deps Deps) *ExtractTool {
	t := &ExtractTool{}
	t.sessionTool = newSessionTool(ExtractName, deps, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *ExtractTool) Name() string {
	return ExtractName
}

// Description returns a description of what this tool does
func (t *ExtractTool) Description() string {
	return "Extract data from the current page as plain text."
}

// Schema returns the JSON schema for the tool's arguments
func (t *ExtractTool) Schema() map[string]interface{} {
	return sessionSchema(map[string]interface{}{
		"instruction": requiredString(`What to extract, e.g., "extract the main headline"`),
	}, "instruction")
}

// Execute extracts the requested data from the session's current page,
// retrying once on a transient fault.
func (t *ExtractTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct {
		Instruction string `json:"instruction"`
		SessionID   string `json:"sessionId"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(extractLabel, extractErrPrefix, err)
	}

	h, err := t.pool.Resolve(ctx, args.SessionID)
	if err != nil {
		return t.fail(args.SessionID, h, extractLabel, extractErrPrefix, err)
	}
	h.SetTimeouts(t.timeouts.Action, t.timeouts.Navigation)

	data, err := retryTransient(ctx, h, ExtractName, t.timeouts.Load, func(ctx context.Context) (map[string]interface{}, error) {
		return h.Extract(ctx, args.Instruction, textSchema)
	})
	if err != nil {
		return t.fail(args.SessionID, h, extractLabel, extractErrPrefix, err)
	}

	return tools.Success(extractLabel, extractedText(data))
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *ExtractTool) IsLoopBreaking() bool {
	return false
}

// extractedText picks the text field, then the raw extraction field, then
// the whole result serialized as JSON.
func extractedText(data map[string]interface{}) string {
	for _, key := range []string{"text", "extraction"} {
		v, ok := data[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return toJSON(v)
	}
	return toJSON(data)
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
