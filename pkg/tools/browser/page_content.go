package browser

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// PageContentName is the wire name of the page content tool.
const PageContentName = "getPageContent"

const (
	pageContentLabel     = "Getting page content"
	pageContentErrPrefix = "Error fetching page content:"
)

// PageContentTool opens a URL, extracts the readable article and summarizes it.
type PageContentTool struct {
	sessionTool
	summarizer Summarizer
	policy     *NavigationPolicy
}

// NewPageContentTool creates the getPageContent tool.
func NewPageContentTool(deps Deps) *PageContentTool {
	t := &PageContentTool{summarizer: deps.Summarizer, policy: deps.Policy}
	t.sessionTool = newSessionTool(PageContentName, deps, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *PageContentTool) Name() string {
	return PageContentName
}

// Description returns a description of what this tool does
func (t *PageContentTool) Description() string {
	return "Get the readable content of a page and summarize it."
}

// Schema returns the JSON schema for the tool's arguments
func (t *PageContentTool) Schema() map[string]interface{} {
	return sessionSchema(map[string]interface{}{
		"url": requiredString("The URL to get the content of"),
	}, "url")
}

// Execute loads the URL and returns a summary of the page's readable text.
func (t *PageContentTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct {
		URL       string `json:"url"`
		SessionID string `json:"sessionId"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(pageContentLabel, pageContentErrPrefix, err)
	}
	if err := t.policy.Check(args.URL); err != nil {
		return tools.Failure(pageContentLabel, pageContentErrPrefix, tools.NewValidationError(PageContentName, "%v", err))
	}

	h, err := t.pool.Resolve(ctx, args.SessionID)
	if err != nil {
		return t.fail(args.SessionID, h, pageContentLabel, pageContentErrPrefix, err)
	}

	if err := h.Navigate(ctx, args.URL, LoadStateLoad); err != nil {
		return t.fail(args.SessionID, h, pageContentLabel, pageContentErrPrefix, err)
	}
	t.settle(ctx, h, args.SessionID)

	content, err := h.Content(ctx)
	if err != nil {
		return t.fail(args.SessionID, h, pageContentLabel, pageContentErrPrefix, err)
	}

	summary, err := t.summarizer.Summarize(ctx, readableText(content, h.URL()))
	if err != nil {
		return t.fail(args.SessionID, h, pageContentLabel, pageContentErrPrefix, err)
	}
	return tools.Success(pageContentLabel, summary)
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *PageContentTool) IsLoopBreaking() bool {
	return false
}

// readableText returns "title\ntext" of the main article, falling back to
// the visible body text when readability finds nothing.
func readableText(content, pageURL string) string {
	parsed, _ := url.Parse(pageURL)

	article, err := readability.FromReader(strings.NewReader(content), parsed)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title + "\n" + strings.TrimSpace(article.TextContent)
	}
	if err != nil {
		logger.Debugf("Readability failed for %s, using body text: %v", pageURL, err)
	}

	title, text, textErr := visibleText(content)
	if textErr != nil {
		logger.Debugf("Body text extraction failed for %s: %v", pageURL, textErr)
		return ""
	}
	return title + "\n" + text
}
