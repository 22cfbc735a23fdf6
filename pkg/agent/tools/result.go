package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the uniform envelope every tool returns, success or failure.
type Result struct {
	// ToolName is a human-readable label for what the tool did
	// (e.g., "Navigating to URL"), not the wire name.
	ToolName string `json:"toolName"`

	// Content is the natural-language outcome the model reads.
	Content string `json:"content"`

	// DataCollected is true only when the tool's action succeeded.
	DataCollected bool `json:"dataCollected"`

	// SessionID and DebugURL are set by the session-creation tools.
	SessionID string `json:"sessionId,omitempty"`
	DebugURL  string `json:"debugUrl,omitempty"`

	// Err is the classified failure behind a false DataCollected, kept for
	// logging and metrics. It is never serialized.
	Err error `json:"-"`
}

// Success builds a result for a tool call that collected data.
func Success(label, content string) *Result {
	return &Result{ToolName: label, Content: content, DataCollected: true}
}

// Failure builds a result whose content is prefix followed by the error text.
func Failure(label, prefix string, err error) *Result {
	return &Result{
		ToolName: label,
		Content:  fmt.Sprintf("%s %v", prefix, err),
		Err:      err,
	}
}

// Notice builds a non-error result that collected no data.
func Notice(label, content string) *Result {
	return &Result{ToolName: label, Content: content}
}

// JSON renders the result as the tool message content sent back to the model.
func (r *Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"toolName":%q,"content":%q,"dataCollected":false}`, r.ToolName, err.Error())
	}
	return string(data)
}
