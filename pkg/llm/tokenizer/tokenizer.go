// Package tokenizer counts and trims text by model tokens.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/webpilot/pkg/types"
)

// Encoding is the BPE vocabulary shared by the gpt-4 and gpt-4o families
// closely enough for budgeting purposes.
const Encoding = "cl100k_base"

// Per-message overhead of the chat format, following OpenAI's counting guide.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// Tokenizer wraps a tiktoken encoder.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the cl100k_base encoder. Loading may need network access to fetch
// the vocabulary on first use, so callers should treat failure as non-fatal.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", Encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens estimates the prompt size of a conversation.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := tokensPerReply
	for _, msg := range messages {
		total += tokensPerMessage
		total += t.CountTokens(string(msg.Role))
		total += t.CountTokens(msg.Content)
		for _, call := range msg.ToolCalls {
			total += t.CountTokens(call.Name)
			total += t.CountTokens(call.Arguments)
		}
	}
	return total
}

// Truncate returns text cut to at most max tokens, and whether it was cut.
func (t *Tokenizer) Truncate(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text, false
	}
	return t.enc.Decode(tokens[:max]), true
}
