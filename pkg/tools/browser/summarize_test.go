package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/types"
)

func TestLLMSummarizerSendsPrompt(t *testing.T) {
	provider := &fakeProvider{replies: []string{"  The page is about cats.\n"}}
	s := NewLLMSummarizer(provider, 0)

	summary, err := s.Summarize(context.Background(), "Cats\nCats are small.")
	require.NoError(t, err)
	assert.Equal(t, "The page is about cats.", summary)

	require.Len(t, provider.requests, 1)
	msgs := provider.requests[0]
	require.Len(t, msgs, 1)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, SummaryPrompt+"Cats\nCats are small.", msgs[0].Content)
}

func TestLLMSummarizerError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	s := NewLLMSummarizer(provider, 100)

	_, err := s.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestLLMSummarizerByteFallback(t *testing.T) {
	s := NewLLMSummarizer(&fakeProvider{}, 1)
	s.loadTokenizer = func() (*tokenizer.Tokenizer, error) {
		return nil, errors.New("encoder unavailable")
	}

	assert.Equal(t, "abc", s.truncate("abc"))
	// The four-byte budget ends inside the second "é"; the cut backs up to
	// the rune boundary.
	assert.Equal(t, "aé", s.truncate("aééé"))
}

func TestLLMSummarizerTokenTruncation(t *testing.T) {
	tok, err := tokenizer.New()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}

	s := NewLLMSummarizer(&fakeProvider{}, 10)
	s.loadTokenizer = func() (*tokenizer.Tokenizer, error) { return tok, nil }

	long := strings.Repeat("word ", 200)
	out := s.truncate(long)
	assert.Less(t, len(out), len(long))
	assert.LessOrEqual(t, tok.CountTokens(out), 10)
}
