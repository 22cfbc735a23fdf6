package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"text":"hi"}`, "hi", false},
		{"fenced", "```json\n{\"text\": \"fenced\"}\n```", "fenced", false},
		{"with prose", `Sure! Here it is: {"text":"prose"} Hope that helps.`, "prose", false},
		{"no object", "I could not find it.", "", true},
		{"broken object", `{"text": }`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Text string `json:"text"`
			}
			err := decodeJSONReply(tt.reply, &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
		})
	}
}

func TestStepValidate(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr error
		errText string
	}{
		{name: "click", step: Step{Method: StepClick, Selector: "#go"}},
		{name: "fill without value", step: Step{Method: StepFill, Selector: "input[name=q]"}},
		{name: "press", step: Step{Method: StepPress, Selector: "body", Value: "Enter"}},
		{name: "press without key", step: Step{Method: StepPress, Selector: "body"}, errText: "no key"},
		{name: "none", step: Step{Method: StepNone}, wantErr: ErrNoMatchingElement},
		{name: "missing selector", step: Step{Method: StepHover, Selector: "  "}, errText: "no selector"},
		{name: "unknown method", step: Step{Method: "drag", Selector: "#a"}, errText: "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssistantPlan(t *testing.T) {
	provider := &fakeProvider{replies: []string{
		`{"method":"click","selector":"#login","description":"Clicked the login button"}`,
	}}
	assistant := NewAssistant(provider)
	page, err := assistant.Snapshot(`<html><head><title>Home</title></head><body><button id="login">Log in</button></body></html>`)
	require.NoError(t, err)

	step, err := assistant.Plan(context.Background(), "click log in", "https://example.com", page, errors.New("#signin not found"))
	require.NoError(t, err)
	assert.Equal(t, &Step{Method: StepClick, Selector: "#login", Description: "Clicked the login button"}, step)

	require.Len(t, provider.requests, 1)
	user := provider.requests[0][1].Content
	assert.Contains(t, user, "Instruction: click log in")
	assert.Contains(t, user, "#signin not found")
	assert.Contains(t, user, "Title: Home")
	assert.Contains(t, user, `<button id="login">`)
	assert.Equal(t, "fake-model", assistant.Model())
}

func TestAssistantPlanNoElement(t *testing.T) {
	provider := &fakeProvider{replies: []string{`{"method":"none"}`}}
	assistant := NewAssistant(provider)

	_, err := assistant.Plan(context.Background(), "click the unicorn", "https://example.com", &Snapshot{}, nil)
	assert.ErrorIs(t, err, ErrNoMatchingElement)
}

func TestAssistantExtract(t *testing.T) {
	provider := &fakeProvider{replies: []string{"```json\n{\"text\":\"Breaking news\"}\n```"}}
	assistant := NewAssistant(provider)

	data, err := assistant.Extract(context.Background(), "the headline", textSchema, "https://news.example", &Snapshot{HTML: "<h1>Breaking news</h1>"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"text": "Breaking news"}, data)
	assert.Contains(t, provider.requests[0][1].Content, `"required":["text"]`)
}
