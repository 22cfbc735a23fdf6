package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/types"
)

func sseServer(t *testing.T, lines []string, inspect func(body map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		if inspect != nil {
			inspect(body)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	assert.Error(t, err)
}

func TestNewProviderBaseURLFromEnv(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080/v1/")
	p, err := NewProvider("k")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1", p.GetBaseURL())
	assert.Equal(t, DefaultModel, p.GetModel())
}

func TestCloneWithModel(t *testing.T) {
	p, err := NewProvider("k", WithModel("gpt-4o"))
	require.NoError(t, err)

	clone := p.CloneWithModel("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", clone.GetModel())
	assert.Equal(t, "gpt-4o-mini", clone.GetModelInfo().Name)
	assert.Equal(t, "gpt-4o", p.GetModel())
	assert.Equal(t, "gpt-4o", p.GetModelInfo().Name)
}

func TestCompleteAccumulatesContent(t *testing.T) {
	srv := sseServer(t, []string{
		": keep-alive",
		`data: {"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		`data: not-json`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}, func(body map[string]interface{}) {
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, true, body["stream"])
		_, hasTools := body["tools"]
		assert.False(t, hasTools)
	})
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL), WithModel("gpt-4o-mini"))
	require.NoError(t, err)

	msg, err := p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
}

func TestStreamCompletionWithToolsAccumulatesCalls(t *testing.T) {
	srv := sseServer(t, []string{
		`data: {"choices":[{"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_a","function":{"name":"navigateTo","arguments":""}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"sessionId\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":1,"function":{"name":"googleSearch","arguments":"{}"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"s1\"}"}}]}}]}`,
		`data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		`data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":8,"total_tokens":20}}`,
		`data: [DONE]`,
	}, func(body map[string]interface{}) {
		tools, ok := body["tools"].([]interface{})
		require.True(t, ok)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
		assert.Equal(t, "navigateTo", fn["name"])
		assert.Equal(t, "function", tools[0].(map[string]interface{})["type"])
	})
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	stream, err := p.StreamCompletionWithTools(context.Background(),
		[]*types.Message{types.NewUserMessage("go")},
		[]llm.ToolDefinition{{
			Name:        "navigateTo",
			Description: "Navigate",
			Parameters:  map[string]interface{}{"type": "object"},
		}})
	require.NoError(t, err)

	var final *llm.StreamChunk
	for chunk := range stream {
		require.False(t, chunk.IsError(), "unexpected error: %v", chunk.Error)
		if chunk.Finished {
			final = chunk
		}
	}

	require.NotNil(t, final)
	require.Len(t, final.ToolCalls, 2)
	assert.Equal(t, "call_a", final.ToolCalls[0].ID)
	assert.Equal(t, "navigateTo", final.ToolCalls[0].Name)
	assert.Equal(t, `{"sessionId":"s1"}`, final.ToolCalls[0].Arguments)
	assert.Equal(t, "googleSearch", final.ToolCalls[1].Name)
	assert.True(t, strings.HasPrefix(final.ToolCalls[1].ID, "call_"), "missing ids are generated")
	assert.Equal(t, "tool_calls", final.FinishReason)
	require.NotNil(t, final.Usage)
	assert.Equal(t, 20, final.Usage.TotalTokens)
}

func TestStreamCompletionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewProvider("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.StreamCompletion(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestConvertToOpenAIMessages(t *testing.T) {
	messages := []*types.Message{
		types.NewSystemMessage("sys"),
		types.NewUserMessage("user"),
		types.NewAssistantMessage("", types.ToolCall{ID: "c1", Name: "navigateTo", Arguments: "{}"}),
		types.NewToolMessage("c1", `{"content":"ok"}`),
	}

	raw, err := json.Marshal(convertToOpenAIMessages(messages))
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 4)

	assert.Equal(t, "system", decoded[0]["role"])
	assert.Equal(t, "user", decoded[1]["role"])
	assert.Equal(t, "assistant", decoded[2]["role"])

	calls, ok := decoded[2]["tool_calls"].([]interface{})
	require.True(t, ok)
	require.Len(t, calls, 1)
	call := calls[0].(map[string]interface{})
	assert.Equal(t, "c1", call["id"])
	assert.Equal(t, "navigateTo", call["function"].(map[string]interface{})["name"])

	assert.Equal(t, "tool", decoded[3]["role"])
	assert.Equal(t, "c1", decoded[3]["tool_call_id"])
}
