package types

import "encoding/json"

// AgentEventType defines the type of event emitted by the agent.
type AgentEventType string

const (
	EventTypeMessageStart        AgentEventType = "message_start"        // EventTypeMessageStart indicates the agent is starting to compose a message.
	EventTypeMessageContent      AgentEventType = "message_content"      // EventTypeMessageContent indicates content from the agent's message.
	EventTypeMessageEnd          AgentEventType = "message_end"          // EventTypeMessageEnd indicates the agent has finished composing the message.
	EventTypeToolCall            AgentEventType = "tool_call"            // EventTypeToolCall indicates the agent is calling a tool.
	EventTypeToolResult          AgentEventType = "tool_result"          // EventTypeToolResult indicates a tool call that collected data.
	EventTypeToolResultError     AgentEventType = "tool_result_error"    // EventTypeToolResultError indicates a tool call that failed.
	EventTypeConfirmationRequest AgentEventType = "confirmation_request" // EventTypeConfirmationRequest indicates the agent is waiting on the user.
	EventTypeAPICallStart        AgentEventType = "api_call_start"       // EventTypeAPICallStart indicates the agent is making an API call.
	EventTypeAPICallEnd          AgentEventType = "api_call_end"         // EventTypeAPICallEnd indicates an API call has completed.
	EventTypeTokenUsage          AgentEventType = "token_usage"          // EventTypeTokenUsage indicates token usage information from an LLM completion.
	EventTypeTurnEnd             AgentEventType = "turn_end"             // EventTypeTurnEnd indicates the agent has finished processing the current turn.
	EventTypeError               AgentEventType = "error"                // EventTypeError indicates an error occurred during agent processing.
)

// AgentEvent represents an event emitted by the agent during execution.
type AgentEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// ToolInput is the input being sent to the tool (for tool call events).
	ToolInput map[string]interface{}

	// ToolOutput is the result from the tool (for tool result events).
	ToolOutput interface{}

	// Error contains error information for error events.
	Error error

	// Content holds text content for message and confirmation events.
	Content string

	// ToolName is the name of the tool being called (for tool events).
	ToolName string

	// ToolCallID correlates tool_call and tool_result events.
	ToolCallID string

	// Type indicates the kind of event.
	Type AgentEventType

	// TokenUsage contains token usage information (for token usage events).
	TokenUsage *TokenUsage
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// NewMessageStartEvent creates a message start event.
func NewMessageStartEvent() *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessageStart,
		Metadata: make(map[string]interface{}),
	}
}

// NewMessageContentEvent creates a message content event.
func NewMessageContentEvent(content string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessageContent,
		Content:  content,
		Metadata: make(map[string]interface{}),
	}
}

// NewMessageEndEvent creates a message end event.
func NewMessageEndEvent() *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessageEnd,
		Metadata: make(map[string]interface{}),
	}
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(callID, toolName string, toolInput map[string]interface{}) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolCall,
		ToolCallID: callID,
		ToolName:   toolName,
		ToolInput:  toolInput,
		Metadata:   make(map[string]interface{}),
	}
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(callID, toolName string, output interface{}) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolResult,
		ToolCallID: callID,
		ToolName:   toolName,
		ToolOutput: output,
		Metadata:   make(map[string]interface{}),
	}
}

// NewToolResultErrorEvent creates a tool result error event. The output is
// still attached so clients can render the failure envelope.
func NewToolResultErrorEvent(callID, toolName string, output interface{}, err error) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolResultError,
		ToolCallID: callID,
		ToolName:   toolName,
		ToolOutput: output,
		Error:      err,
		Metadata:   make(map[string]interface{}),
	}
}

// NewConfirmationRequestEvent creates an event carrying a question for the user.
func NewConfirmationRequestEvent(message string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeConfirmationRequest,
		Content:  message,
		Metadata: make(map[string]interface{}),
	}
}

// NewAPICallStartEvent creates an API call start event.
func NewAPICallStartEvent(apiName string, step int) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeAPICallStart,
		Metadata: map[string]interface{}{"api_name": apiName, "step": step},
	}
}

// NewAPICallEndEvent creates an API call end event.
func NewAPICallEndEvent(apiName string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeAPICallEnd,
		Metadata: map[string]interface{}{"api_name": apiName},
	}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(promptTokens, completionTokens, totalTokens int) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeTokenUsage,
		TokenUsage: &TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewTurnEndEvent creates a turn end event.
func NewTurnEndEvent(reason string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeTurnEnd,
		Metadata: map[string]interface{}{"reason": reason},
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeError,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *AgentEvent) WithMetadata(key string, value interface{}) *AgentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsMessageEvent returns true if this is any message-related event.
func (e *AgentEvent) IsMessageEvent() bool {
	return e.Type == EventTypeMessageStart ||
		e.Type == EventTypeMessageContent ||
		e.Type == EventTypeMessageEnd
}

// IsToolEvent returns true if this is any tool-related event.
func (e *AgentEvent) IsToolEvent() bool {
	return e.Type == EventTypeToolCall ||
		e.Type == EventTypeToolResult ||
		e.Type == EventTypeToolResultError
}

// IsAPIEvent returns true if this is any API-related event.
func (e *AgentEvent) IsAPIEvent() bool {
	return e.Type == EventTypeAPICallStart ||
		e.Type == EventTypeAPICallEnd
}

// IsErrorEvent returns true if this is an error event.
func (e *AgentEvent) IsErrorEvent() bool {
	return e.Type == EventTypeError
}

type wireEvent struct {
	Type       AgentEventType         `json:"type"`
	Content    string                 `json:"content,omitempty"`
	ToolCallID string                 `json:"toolCallId,omitempty"`
	ToolName   string                 `json:"toolName,omitempty"`
	ToolInput  map[string]interface{} `json:"toolInput,omitempty"`
	ToolOutput interface{}            `json:"toolOutput,omitempty"`
	Error      string                 `json:"error,omitempty"`
	TokenUsage *TokenUsage            `json:"tokenUsage,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// MarshalJSON renders the event in the form streamed to chat clients.
func (e *AgentEvent) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Type:       e.Type,
		Content:    e.Content,
		ToolCallID: e.ToolCallID,
		ToolName:   e.ToolName,
		ToolInput:  e.ToolInput,
		ToolOutput: e.ToolOutput,
		TokenUsage: e.TokenUsage,
		Metadata:   e.Metadata,
	}
	if e.Error != nil {
		w.Error = e.Error.Error()
	}
	return json.Marshal(w)
}
