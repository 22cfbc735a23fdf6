// Package tools defines the contract between the conversation driver and the
// operations the model can call.
package tools

import (
	"context"
	"encoding/json"
)

// Tool represents a capability the model can invoke through native function
// calling.
//
// Execute never returns a Go error: every failure is folded into the Result
// envelope so that one bad call cannot abort a multi-step conversation.
type Tool interface {
	// Name returns the wire name the model uses to call this tool (e.g., "navigateTo")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters
	Schema() map[string]interface{}

	// Execute runs the tool with the raw JSON arguments produced by the model
	Execute(ctx context.Context, args json.RawMessage) *Result

	// IsLoopBreaking indicates whether this tool should terminate the agent loop
	// and return control to the user
	IsLoopBreaking() bool
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty is shorthand for a described string schema property.
func StringProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}
