package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/metrics"
	"github.com/entrhq/webpilot/pkg/types"
)

// turn is the state of one Run call.
type turn struct {
	driver   *Driver
	emit     EventFunc
	messages []*types.Message
	added    []*types.Message
	steps    int

	// lastFailures is a ring of the most recent tool failure contents.
	lastFailures [maxRepeatedFailures]string
	failureIndex int
}

// llmResponse is one completed model reply.
type llmResponse struct {
	content string
	calls   []types.ToolCall
	usage   *types.TokenUsage
}

func (t *turn) run(ctx context.Context) (string, error) {
	for t.steps < t.driver.maxSteps {
		if err := ctx.Err(); err != nil {
			return TurnEndCancelled, err
		}
		t.steps++

		resp, err := t.callLLM(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return TurnEndCancelled, ctx.Err()
			}
			return TurnEndError, err
		}
		t.recordUsage(resp)
		ensureCallIDs(resp.calls)
		t.append(types.NewAssistantMessage(resp.content, resp.calls...))

		if len(resp.calls) == 0 {
			return TurnEndCompleted, nil
		}

		outcome := t.executeCalls(ctx, resp.calls)
		switch {
		case outcome.confirmation:
			return TurnEndConfirmation, nil
		case outcome.repeated:
			return TurnEndRepeatedErrors, nil
		}
	}

	logger.Warnf("Step budget of %d exhausted", t.driver.maxSteps)
	return TurnEndMaxSteps, nil
}

// callLLM streams one completion, emitting content deltas as they arrive.
func (t *turn) callLLM(ctx context.Context) (*llmResponse, error) {
	t.emit(types.NewAPICallStartEvent("llm", t.steps))
	defer t.emit(types.NewAPICallEndEvent("llm"))

	stream, err := t.driver.caller.StreamCompletionWithTools(ctx, t.messages, t.driver.executor.Definitions())
	if err != nil {
		return nil, fmt.Errorf("failed to start completion: %w", err)
	}

	var content strings.Builder
	resp := &llmResponse{}
	started := false
	for chunk := range stream {
		if chunk.IsError() {
			err = chunk.Error
			continue
		}
		if chunk.Content != "" {
			if !started {
				t.emit(types.NewMessageStartEvent())
				started = true
			}
			content.WriteString(chunk.Content)
			t.emit(types.NewMessageContentEvent(chunk.Content))
		}
		if chunk.Finished {
			resp.calls = chunk.ToolCalls
			resp.usage = chunk.Usage
		}
	}
	if started {
		t.emit(types.NewMessageEndEvent())
	}
	if err != nil {
		return nil, fmt.Errorf("completion stream failed: %w", err)
	}

	resp.content = content.String()
	return resp, nil
}

// recordUsage reports provider usage, or a local estimate when the provider
// sent none.
func (t *turn) recordUsage(resp *llmResponse) {
	usage := resp.usage
	if usage == nil && t.driver.tokenizer != nil {
		prompt := t.driver.tokenizer.CountMessagesTokens(t.messages)
		completion := t.driver.tokenizer.CountTokens(resp.content)
		for _, call := range resp.calls {
			completion += t.driver.tokenizer.CountTokens(call.Name + call.Arguments)
		}
		usage = &types.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	}
	if usage == nil {
		return
	}

	t.emit(types.NewTokenUsageEvent(usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens))
	metrics.RecordLLMTokens(t.driver.provider.GetModel(), usage.PromptTokens, usage.CompletionTokens)
}

func (t *turn) append(msg *types.Message) {
	t.messages = append(t.messages, msg)
	t.added = append(t.added, msg)
}
