package llm

import "github.com/entrhq/webpilot/pkg/types"

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	// Error is set when the stream failed; no further chunks follow.
	Error error

	// Usage is reported on the final chunk when the API provides it.
	Usage *types.TokenUsage

	Role    string
	Content string

	// FinishReason is the model's stop reason on the final chunk.
	FinishReason string

	// ToolCalls holds the fully accumulated tool calls on the final chunk.
	ToolCalls []types.ToolCall

	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// HasToolCalls reports whether the chunk carries tool calls.
func (c *StreamChunk) HasToolCalls() bool {
	return len(c.ToolCalls) > 0
}
