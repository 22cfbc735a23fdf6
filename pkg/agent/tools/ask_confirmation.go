package tools

import (
	"context"
	"encoding/json"
	"strings"
)

// AskForConfirmationName is the wire name of the confirmation tool.
const AskForConfirmationName = "askForConfirmation"

const askForConfirmationLabel = "Asking for confirmation"

// AskForConfirmationTool is a loop-breaking tool that hands a yes/no question
// back to the user. It has no execution body of its own: the driver ends the
// turn and the user's next message is the answer.
type AskForConfirmationTool struct {
	args *ArgDecoder
}

// NewAskForConfirmationTool creates a new confirmation tool
func NewAskForConfirmationTool() *AskForConfirmationTool {
	t := &AskForConfirmationTool{}
	t.args = MustArgDecoder(AskForConfirmationName, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *AskForConfirmationTool) Name() string {
	return AskForConfirmationName
}

// Description returns a description of what this tool does
func (t *AskForConfirmationTool) Description() string {
	return "Ask the user for confirmation."
}

// Schema returns the JSON schema for the tool's arguments
func (t *AskForConfirmationTool) Schema() map[string]interface{} {
	return BaseToolSchema(
		map[string]interface{}{
			"message": map[string]interface{}{
				"type":        "string",
				"description": "The message to ask for confirmation.",
				"minLength":   1,
			},
		},
		[]string{"message"},
	)
}

// Execute echoes the confirmation message for the driver to surface
func (t *AskForConfirmationTool) Execute(_ context.Context, raw json.RawMessage) *Result {
	var args struct {
		Message string `json:"message"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return Failure(askForConfirmationLabel, "Error asking for confirmation:", err)
	}

	if strings.TrimSpace(args.Message) == "" {
		return Failure(askForConfirmationLabel, "Error asking for confirmation:",
			NewValidationError(AskForConfirmationName, "message cannot be empty"))
	}

	return Notice(askForConfirmationLabel, args.Message)
}

// IsLoopBreaking returns true because this tool terminates the agent loop
// and waits for user input
func (t *AskForConfirmationTool) IsLoopBreaking() bool {
	return true
}
