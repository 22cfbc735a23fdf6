package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"

	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/metrics"
)

// DefaultMaxConcurrent bounds concurrently executing tool calls.
const DefaultMaxConcurrent = 16

// NewToolset builds every tool the model can call, in the order they are
// presented to it.
func NewToolset(deps Deps) []tools.Tool {
	return []tools.Tool{
		NewCreateSessionTool(deps),
		NewCreateSessionAdvancedTool(deps),
		NewCloseSessionTool(deps),
		NewActTool(deps),
		NewExtractTool(deps),
		NewNavigateTool(deps),
		NewSearchTool(deps),
		NewPageContentTool(deps),
		tools.NewAskForConfirmationTool(),
	}
}

// Dispatcher routes tool calls by name. It is the failure boundary of the
// tool surface: every call returns a *tools.Result, including unknown tools,
// rejected calls and panics.
type Dispatcher struct {
	tools    map[string]tools.Tool
	order    []string
	bulkhead bulkhead.Bulkhead[*tools.Result]
}

// NewDispatcher registers ts and allows at most maxConcurrent calls to run
// at once.
func NewDispatcher(maxConcurrent int, ts ...tools.Tool) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	d := &Dispatcher{
		tools: make(map[string]tools.Tool, len(ts)),
		bulkhead: bulkhead.New[*tools.Result](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
	}
	for _, t := range ts {
		if _, dup := d.tools[t.Name()]; !dup {
			d.order = append(d.order, t.Name())
		}
		d.tools[t.Name()] = t
	}
	return d
}

// Execute runs the named tool with raw JSON arguments.
func (d *Dispatcher) Execute(ctx context.Context, name string, args json.RawMessage) *tools.Result {
	start := time.Now()

	t, ok := d.tools[name]
	if !ok {
		metrics.RecordToolCall(name, metrics.OutcomeRejected, time.Since(start))
		return tools.Failure(name, "Error:", tools.NewValidationError(name, "unknown tool %q", name))
	}

	logger.Debugf("Executing %s", name)
	result, err := d.bulkhead.Execute(ctx, func(ctx context.Context) (*tools.Result, error) {
		return d.run(ctx, t, args), nil
	})
	if err != nil {
		logger.Warnf("%s was not run: %v", name, err)
		metrics.RecordToolCall(name, metrics.OutcomeRejected, time.Since(start))
		return tools.Failure(name, "Error:", fmt.Errorf("tool call not run: %w", err))
	}

	outcome := outcomeOf(result)
	metrics.RecordToolCall(name, outcome, time.Since(start))
	logger.Infof("%s finished: %s in %s", name, outcome, time.Since(start).Round(time.Millisecond))
	return result
}

// run executes t, converting a panic into a failed result.
func (d *Dispatcher) run(ctx context.Context, t tools.Tool, args json.RawMessage) (result *tools.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("%s panicked: %v", t.Name(), r)
			result = tools.Failure(t.Name(), "Error:", &panicError{value: r})
		}
	}()

	result = t.Execute(ctx, args)
	if result == nil {
		result = tools.Failure(t.Name(), "Error:", errors.New("tool returned no result"))
	}
	return result
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("tool panicked: %v", e.value)
}

func outcomeOf(result *tools.Result) string {
	var verr *tools.ValidationError
	var perr *panicError
	switch {
	case result.DataCollected:
		return metrics.OutcomeCollected
	case errors.As(result.Err, &perr):
		return metrics.OutcomePanic
	case errors.As(result.Err, &verr):
		return metrics.OutcomeRejected
	case result.Err != nil:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeNotice
	}
}

// Lookup returns the named tool.
func (d *Dispatcher) Lookup(name string) (tools.Tool, bool) {
	t, ok := d.tools[name]
	return t, ok
}

// Tools returns the registered tools in registration order.
func (d *Dispatcher) Tools() []tools.Tool {
	out := make([]tools.Tool, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name])
	}
	return out
}

// IsLoopBreaking reports whether calling name should end the model's turn.
func (d *Dispatcher) IsLoopBreaking(name string) bool {
	t, ok := d.tools[name]
	return ok && t.IsLoopBreaking()
}

// Definitions describes the registered tools to the model.
func (d *Dispatcher) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(d.order))
	for _, t := range d.Tools() {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}
