// Package agent runs a conversation turn: it streams model completions with
// the browser tools attached, executes the tool calls the model makes and
// feeds the results back until the model answers, asks the user for
// confirmation or runs out of steps.
//
//	driver, err := agent.NewDriver(provider, dispatcher, agent.WithMaxSteps(10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	added, err := driver.Run(ctx, history, func(ev *types.AgentEvent) {
//	    fmt.Println(ev.Type)
//	})
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/types"
)

var logger = logging.NewLogger("agent")

// DefaultMaxSteps bounds the completions in one turn.
const DefaultMaxSteps = 10

// maxRepeatedFailures is how many identical consecutive tool failures end a turn.
const maxRepeatedFailures = 5

// Turn end reasons.
const (
	TurnEndCompleted      = "completed"
	TurnEndConfirmation   = "confirmation"
	TurnEndMaxSteps       = "max_steps"
	TurnEndCancelled      = "cancelled"
	TurnEndRepeatedErrors = "repeated_errors"
	TurnEndError          = "error"
)

// ToolExecutor runs tool calls by name. *browser.Dispatcher satisfies it.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) *tools.Result
	Definitions() []llm.ToolDefinition
	IsLoopBreaking(name string) bool
}

// EventFunc receives every event of a turn in order.
type EventFunc func(*types.AgentEvent)

// Driver runs conversation turns against a tool-calling provider.
// A Driver holds no conversation state and may serve concurrent turns.
type Driver struct {
	provider     llm.Provider
	caller       llm.ToolCaller
	executor     ToolExecutor
	systemPrompt string
	maxSteps     int
	tokenizer    *tokenizer.Tokenizer
}

// Option configures a Driver.
type Option func(*Driver)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(d *Driver) {
		if prompt != "" {
			d.systemPrompt = prompt
		}
	}
}

// WithMaxSteps sets the completion budget per turn.
func WithMaxSteps(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.maxSteps = n
		}
	}
}

// WithTokenizer sets the tokenizer used to estimate usage when the provider
// reports none.
func WithTokenizer(tok *tokenizer.Tokenizer) Option {
	return func(d *Driver) {
		d.tokenizer = tok
	}
}

// NewDriver creates a driver. provider must support native tool calling.
func NewDriver(provider llm.Provider, executor ToolExecutor, opts ...Option) (*Driver, error) {
	caller, ok := provider.(llm.ToolCaller)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support tool calling", provider.GetModel())
	}
	if executor == nil {
		return nil, errors.New("tool executor is required")
	}

	d := &Driver{
		provider:     provider,
		caller:       caller,
		executor:     executor,
		systemPrompt: DefaultSystemPrompt,
		maxSteps:     DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.tokenizer == nil {
		tok, err := tokenizer.New()
		if err != nil {
			logger.Warnf("Token estimation disabled: %v", err)
		} else {
			d.tokenizer = tok
		}
	}
	return d, nil
}

// MaxSteps returns the completion budget per turn.
func (d *Driver) MaxSteps() int {
	return d.maxSteps
}

// Run executes one turn on history and returns the messages it added:
// assistant messages and the tool messages answering their calls.
//
// Run emits a turn_end event on every path. The returned error is non-nil
// only when the model could not be reached or ctx was cancelled; tool
// failures are reported to the model, not to the caller.
func (d *Driver) Run(ctx context.Context, history []*types.Message, emit EventFunc) ([]*types.Message, error) {
	if emit == nil {
		emit = func(*types.AgentEvent) {}
	}
	t := &turn{
		driver:   d,
		emit:     emit,
		messages: buildMessages(d.systemPrompt, history),
	}
	reason, err := t.run(ctx)
	if err != nil {
		emit(types.NewErrorEvent(err))
	}
	emit(types.NewTurnEndEvent(reason))
	logger.Infof("Turn ended: %s after %d step(s)", reason, t.steps)
	return t.added, err
}
