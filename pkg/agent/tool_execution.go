package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/types"
)

// callsOutcome says why a batch of tool calls should end the turn, if at all.
type callsOutcome struct {
	confirmation bool
	repeated     bool
}

// executeCalls runs the calls of one assistant message in order and appends
// a tool message answering each. Once a loop-breaking tool has run, the
// remaining calls are answered without being executed.
func (t *turn) executeCalls(ctx context.Context, calls []types.ToolCall) callsOutcome {
	var out callsOutcome
	for _, call := range calls {
		if out.confirmation {
			t.append(types.NewToolMessage(call.ID, skippedCallMessage(call.Name)))
			continue
		}

		t.emit(types.NewToolCallEvent(call.ID, call.Name, argumentsMap(call.Arguments)))
		result := t.driver.executor.Execute(ctx, call.Name, json.RawMessage(call.Arguments))

		if result.Err != nil {
			t.emit(types.NewToolResultErrorEvent(call.ID, call.Name, result, result.Err))
			if t.trackFailure(result.Content) {
				out.repeated = true
			}
		} else {
			t.emit(types.NewToolResultEvent(call.ID, call.Name, result))
			t.resetFailures()
		}
		t.append(types.NewToolMessage(call.ID, result.JSON()))

		if t.driver.executor.IsLoopBreaking(call.Name) && result.Err == nil {
			t.emit(types.NewConfirmationRequestEvent(result.Content))
			out.confirmation = true
		}
	}

	if out.repeated && !out.confirmation {
		t.emit(types.NewErrorEvent(errRepeatedFailures(t.lastFailures[:])))
	}
	return out
}

// ensureCallIDs gives every call an ID so its tool message can answer it.
func ensureCallIDs(calls []types.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
}

// trackFailure records a failed call and reports whether the last
// maxRepeatedFailures failures were identical.
func (t *turn) trackFailure(content string) bool {
	t.lastFailures[t.failureIndex] = content
	t.failureIndex = (t.failureIndex + 1) % maxRepeatedFailures

	first := t.lastFailures[0]
	if first == "" {
		return false
	}
	for _, f := range t.lastFailures[1:] {
		if f != first {
			return false
		}
	}
	return true
}

func (t *turn) resetFailures() {
	t.lastFailures = [maxRepeatedFailures]string{}
	t.failureIndex = 0
}

// argumentsMap decodes call arguments for display. Malformed arguments
// produce an empty map; the tool itself reports them.
func argumentsMap(arguments string) map[string]interface{} {
	args := make(map[string]interface{})
	if strings.TrimSpace(arguments) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		logger.Debugf("Tool call arguments are not a JSON object: %v", err)
		return make(map[string]interface{})
	}
	return args
}

type repeatedFailuresError struct {
	failures []string
}

func (e *repeatedFailuresError) Error() string {
	return repeatedFailureMessage(e.failures)
}

func errRepeatedFailures(failures []string) error {
	return &repeatedFailuresError{failures: append([]string(nil), failures...)}
}
