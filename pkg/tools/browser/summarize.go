package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/llm/tokenizer"
	"github.com/entrhq/webpilot/pkg/types"
)

// SummaryPrompt prefixes the collected page text in summarization requests.
const SummaryPrompt = "Evaluate the following web page content: "

// DefaultSummaryMaxTokens caps the page text sent for summarization.
const DefaultSummaryMaxTokens = 12000

// Roughly four bytes per token for English text, used when the encoder
// cannot be loaded.
const bytesPerToken = 4

// Summarizer condenses collected page text into a natural-language answer.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// LLMSummarizer summarizes with a one-shot completion.
type LLMSummarizer struct {
	provider  llm.Provider
	maxTokens int

	loadTokenizer func() (*tokenizer.Tokenizer, error)
	once          sync.Once
	tok           *tokenizer.Tokenizer
}

// NewLLMSummarizer creates a summarizer that trims input to maxTokens.
func NewLLMSummarizer(provider llm.Provider, maxTokens int) *LLMSummarizer {
	if maxTokens <= 0 {
		maxTokens = DefaultSummaryMaxTokens
	}
	return &LLMSummarizer{
		provider:      provider,
		maxTokens:     maxTokens,
		loadTokenizer: tokenizer.New,
	}
}

// Summarize sends SummaryPrompt followed by text and returns the reply.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := s.provider.Complete(ctx, []*types.Message{
		types.NewUserMessage(SummaryPrompt + s.truncate(text)),
	})
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func (s *LLMSummarizer) truncate(text string) string {
	s.once.Do(func() {
		tok, err := s.loadTokenizer()
		if err != nil {
			logger.Warnf("Token counting unavailable, falling back to a byte budget: %v", err)
			return
		}
		s.tok = tok
	})

	if s.tok != nil {
		out, cut := s.tok.Truncate(text, s.maxTokens)
		if cut {
			logger.Debugf("Summary input truncated to %d tokens", s.maxTokens)
		}
		return out
	}

	limit := s.maxTokens * bytesPerToken
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
