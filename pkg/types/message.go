package types

import "fmt"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCall is a single function call requested by the model.
type ToolCall struct {
	// ID is assigned by the model and echoed back on the tool message.
	ID string `json:"id"`

	// Name is the wire name of the tool.
	Name string `json:"name"`

	// Arguments is the raw JSON argument object produced by the model.
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation history.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`

	// ToolCallID is set on tool messages and names the call they answer.
	ToolCallID string `json:"toolCallId,omitempty"`
}

// NewSystemMessage creates a system prompt message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message, optionally carrying tool calls.
func NewAssistantMessage(content string, calls ...ToolCall) *Message {
	return &Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates the reply to a tool call.
func NewToolMessage(callID, content string) *Message {
	return &Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// Validate checks a message received from outside the process.
func (m *Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	case RoleTool:
		if m.ToolCallID == "" {
			return fmt.Errorf("tool message requires toolCallId")
		}
		return nil
	default:
		return fmt.Errorf("unknown message role %q", m.Role)
	}
}

// ModelInfo describes the model behind an LLM provider.
type ModelInfo struct {
	Metadata          map[string]interface{}
	Provider          string
	Name              string
	MaxTokens         int
	SupportsStreaming bool
	SupportsTools     bool
}
