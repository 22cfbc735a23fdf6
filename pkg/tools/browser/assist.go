package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/types"
)

// DefaultSnapshotBytes caps the cleaned page HTML shown to the assist model.
const DefaultSnapshotBytes = 60000

// Step methods the assist model may choose.
const (
	StepClick = "click"
	StepFill  = "fill"
	StepPress = "press"
	StepHover = "hover"
	StepNone  = "none"
)

// ErrNoMatchingElement means the assist model found nothing on the page that
// the instruction could apply to.
var ErrNoMatchingElement = errors.New("no element on the page matches the instruction")

const planSystemPrompt = `You operate a web page on behalf of a user. You are given the user's instruction and a cleaned HTML snapshot of the page.
Choose exactly one step that carries out the instruction and reply with a single JSON object and nothing else:
{"method": "click" | "fill" | "press" | "hover" | "none", "selector": "<CSS selector>", "value": "<text to fill or key to press>", "description": "<short past-tense summary of the step>"}
Prefer selectors built from id, name, data-* or aria-label attributes. Use "none" when no element fits.`

const extractSystemPrompt = `You read web pages on behalf of a user. You are given an instruction, a JSON schema and a cleaned HTML snapshot of the page.
Reply with a single JSON object that conforms to the schema and nothing else. Use only information present on the page.`

// Step is one concrete page interaction planned by the assist model.
type Step struct {
	Method      string `json:"method"`
	Selector    string `json:"selector"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
}

// Validate checks that the step can be performed.
func (s *Step) Validate() error {
	switch s.Method {
	case StepNone:
		return ErrNoMatchingElement
	case StepClick, StepHover, StepFill:
	case StepPress:
		if s.Value == "" {
			return fmt.Errorf("press step has no key")
		}
	default:
		return fmt.Errorf("unsupported step method %q", s.Method)
	}
	if strings.TrimSpace(s.Selector) == "" {
		return fmt.Errorf("%s step has no selector", s.Method)
	}
	return nil
}

// Assistant turns natural-language instructions into page steps and
// structured extractions using a language model.
type Assistant struct {
	provider      llm.Provider
	snapshotBytes int
}

// NewAssistant creates an assistant backed by provider.
func NewAssistant(provider llm.Provider) *Assistant {
	return &Assistant{provider: provider, snapshotBytes: DefaultSnapshotBytes}
}

// Model returns the assist model name.
func (a *Assistant) Model() string {
	return a.provider.GetModel()
}

// Snapshot reduces rendered page HTML for the model.
func (a *Assistant) Snapshot(rawHTML string) (*Snapshot, error) {
	return cleanHTML(rawHTML, a.snapshotBytes)
}

// Plan asks the model for the step that carries out instruction on page.
// A non-nil previous error is the failure of an earlier plan for the same
// instruction and asks the model to choose differently.
func (a *Assistant) Plan(ctx context.Context, instruction, pageURL string, page *Snapshot, previous error) (*Step, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Instruction: %s\n", instruction)
	if previous != nil {
		fmt.Fprintf(&user, "A previous attempt failed with: %v\nChoose a different element or selector.\n", previous)
	}
	writePageContext(&user, pageURL, page)

	var step Step
	if err := a.ask(ctx, planSystemPrompt, user.String(), &step); err != nil {
		return nil, fmt.Errorf("failed to plan action: %w", err)
	}
	if err := step.Validate(); err != nil {
		return nil, err
	}
	return &step, nil
}

// Extract asks the model for data matching schema.
func (a *Assistant) Extract(ctx context.Context, instruction string, schema map[string]interface{}, pageURL string, page *Snapshot) (map[string]interface{}, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Instruction: %s\nSchema: %s\n", instruction, schemaJSON)
	writePageContext(&user, pageURL, page)

	var data map[string]interface{}
	if err := a.ask(ctx, extractSystemPrompt, user.String(), &data); err != nil {
		return nil, fmt.Errorf("failed to extract: %w", err)
	}
	return data, nil
}

func (a *Assistant) ask(ctx context.Context, system, user string, dst interface{}) error {
	resp, err := a.provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(system),
		types.NewUserMessage(user),
	})
	if err != nil {
		return err
	}
	return decodeJSONReply(resp.Content, dst)
}

func writePageContext(b *strings.Builder, pageURL string, page *Snapshot) {
	fmt.Fprintf(b, "URL: %s\n", pageURL)
	if page.Title != "" {
		fmt.Fprintf(b, "Title: %s\n", page.Title)
	}
	b.WriteString("Page HTML:\n```html\n")
	b.WriteString(page.HTML)
	b.WriteString("\n```\n")
	if page.Truncated {
		b.WriteString("(The page was truncated.)\n")
	}
}

// decodeJSONReply unmarshals the first JSON object in a model reply,
// tolerating code fences and surrounding prose.
func decodeJSONReply(content string, dst interface{}) error {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return fmt.Errorf("model reply contains no JSON object: %q", truncateForLog(content, 200))
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), dst); err != nil {
		return fmt.Errorf("model reply is not valid JSON: %w", err)
	}
	return nil
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
