package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/entrhq/webpilot/pkg/agent/tools"
)

// SearchName is the wire name of the web search tool.
const SearchName = "googleSearch"

const (
	searchLabel     = "Searching the web"
	searchErrPrefix = "Error performing web search:"

	// resultSelector matches one organic result on the DuckDuckGo HTML page
	resultSelector = "div.result"
)

// collectResultsScript returns the title and snippet of every result.
const collectResultsScript = `() => Array.from(document.querySelectorAll('div.result')).map((item) => ({
  title: item.querySelector('a.result__a')?.innerText || '',
  description: item.querySelector('a.result__snippet')?.innerText || '',
}))`

type searchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SearchTool runs a web search in the session's browser and summarizes the
// result titles and snippets.
type SearchTool struct {
	sessionTool
	summarizer Summarizer
	searchURL  string
}

// NewSearchTool creates the googleSearch tool.
func NewSearchTool(deps Deps) *SearchTool {
	t := &SearchTool{summarizer: deps.Summarizer, searchURL: deps.SearchURL}
	if t.searchURL == "" {
		t.searchURL = DefaultSearchURL
	}
	t.sessionTool = newSessionTool(SearchName, deps, t.Schema())
	return t
}

// Name returns the tool's identifier
func (t *SearchTool) Name() string {
	return SearchName
}

// Description returns a description of what this tool does
func (t *SearchTool) Description() string {
	return "Search the web for a query. Use this when the user asks to search or find information, not when they ask to open a specific site."
}

// Schema returns the JSON schema for the tool's arguments
func (t *SearchTool) Schema() map[string]interface{} {
	return sessionSchema(map[string]interface{}{
		"query": requiredString("The exact and complete search query as provided by the user. Do not modify it in any way."),
	}, "query")
}

// Execute runs a Google search in the session and summarizes the organic
// results.
func (t *SearchTool) Execute(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args struct {
		Query     string `json:"query"`
		SessionID string `json:"sessionId"`
	}
	if err := t.args.Decode(raw, &args); err != nil {
		return tools.Failure(searchLabel, searchErrPrefix, err)
	}

	h, err := t.pool.Resolve(ctx, args.SessionID)
	if err != nil {
		return t.fail(args.SessionID, h, searchLabel, searchErrPrefix, err)
	}

	if err := h.Navigate(ctx, t.searchURL+url.QueryEscape(args.Query), LoadStateLoad); err != nil {
		return t.fail(args.SessionID, h, searchLabel, searchErrPrefix, err)
	}
	t.settle(ctx, h, args.SessionID)

	if err := h.WaitForSelector(ctx, resultSelector, t.timeouts.Selector); err != nil {
		return t.fail(args.SessionID, h, searchLabel, searchErrPrefix, err)
	}

	value, err := h.Evaluate(ctx, collectResultsScript, nil)
	if err != nil {
		return t.fail(args.SessionID, h, searchLabel, searchErrPrefix, err)
	}
	results, err := decodeSearchResults(value)
	if err != nil {
		return t.fail(args.SessionID, h, searchLabel, searchErrPrefix, err)
	}

	summary, err := t.summarizer.Summarize(ctx, formatSearchResults(results))
	if err != nil {
		return t.fail(args.SessionID, h, searchLabel, searchErrPrefix, err)
	}
	return tools.Success(searchLabel, summary)
}

// IsLoopBreaking returns false; the driver keeps looping after this tool
func (t *SearchTool) IsLoopBreaking() bool {
	return false
}

// decodeSearchResults converts the evaluated JavaScript value into results.
func decodeSearchResults(v interface{}) ([]searchResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unexpected search results: %w", err)
	}
	var results []searchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("unexpected search results: %w", err)
	}
	return results, nil
}

// formatSearchResults renders each result as "title\ndescription", with
// results separated by a blank line.
func formatSearchResults(results []searchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r.Title+"\n"+r.Description)
	}
	return strings.Join(blocks, "\n\n")
}
