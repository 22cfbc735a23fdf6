package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/webpilot/pkg/types"
)

func newOrSkip(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New()
	if err != nil {
		t.Skipf("tokenizer unavailable in this environment: %v", err)
	}
	return tok
}

func TestCountTokens(t *testing.T) {
	tok := newOrSkip(t)

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Greater(t, tok.CountTokens("Navigated to https://example.com"), 0)
	assert.Greater(t, tok.CountTokens(strings.Repeat("word ", 100)), tok.CountTokens("word"))
}

func TestCountMessagesTokens(t *testing.T) {
	tok := newOrSkip(t)

	empty := tok.CountMessagesTokens(nil)
	assert.Equal(t, tokensPerReply, empty)

	msgs := []*types.Message{
		types.NewSystemMessage("You are a browsing assistant."),
		types.NewUserMessage("Open example.com"),
		types.NewAssistantMessage("", types.ToolCall{ID: "call_1", Name: "navigateTo", Arguments: `{"url":"https://example.com"}`}),
	}
	assert.Greater(t, tok.CountMessagesTokens(msgs), empty+3*tokensPerMessage)
}

func TestTruncate(t *testing.T) {
	tok := newOrSkip(t)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 50)

	out, cut := tok.Truncate(text, 10)
	assert.True(t, cut)
	assert.LessOrEqual(t, tok.CountTokens(out), 10)
	assert.True(t, strings.HasPrefix(text, out))

	out, cut = tok.Truncate("short", 10)
	assert.False(t, cut)
	assert.Equal(t, "short", out)

	out, cut = tok.Truncate(text, 0)
	assert.False(t, cut)
	assert.Equal(t, text, out)
}
