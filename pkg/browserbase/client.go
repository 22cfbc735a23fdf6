// Package browserbase is a minimal client for the Browserbase session REST API.
//
// Example usage:
//
//	client, err := browserbase.NewClient(apiKey, projectID)
//	if err != nil {
//	    return err
//	}
//	session, err := client.CreateSession(ctx, client.DefaultCreateOptions())
//	if err != nil {
//	    return err
//	}
//	urls, err := client.DebugURLs(ctx, session.ID)
package browserbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
)

const (
	// DefaultBaseURL is the REST API root
	DefaultBaseURL = "https://www.browserbase.com"

	// DefaultConnectURL is the CDP websocket endpoint
	DefaultConnectURL = "wss://connect.browserbase.com"

	// DefaultSessionTimeout is the keep-alive timeout used by createSession, in seconds
	DefaultSessionTimeout = 900

	apiKeyHeader = "X-BB-API-Key"
)

var logger = logging.NewLogger("browserbase")

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("browserbase %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsSessionGone reports whether err is a 409 Conflict, which the service
// returns when a session is no longer running.
func IsSessionGone(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// Client talks to the Browserbase REST API.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	projectID      string
	baseURL        string
	connectURL     string
	sessionTimeout int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the REST API root.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithConnectURL overrides the CDP websocket endpoint.
func WithConnectURL(connectURL string) ClientOption {
	return func(c *Client) {
		if connectURL != "" {
			c.connectURL = connectURL
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRequestTimeout bounds each REST call.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithSessionTimeout sets the timeout sent by DefaultCreateOptions, in seconds.
func WithSessionTimeout(seconds int) ClientOption {
	return func(c *Client) {
		if seconds > 0 {
			c.sessionTimeout = seconds
		}
	}
}

// NewClient creates a client for the given credentials.
func NewClient(apiKey, projectID string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("browserbase API key is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("browserbase project ID is required")
	}

	c := &Client{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		apiKey:         apiKey,
		projectID:      projectID,
		baseURL:        DefaultBaseURL,
		connectURL:     DefaultConnectURL,
		sessionTimeout: DefaultSessionTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefaultCreateOptions returns the fixed options used by createSession:
// keep-alive on with the configured timeout.
func (c *Client) DefaultCreateOptions() *CreateOptions {
	keepAlive := true
	timeout := c.sessionTimeout
	return &CreateOptions{KeepAlive: &keepAlive, Timeout: &timeout}
}

// CreateSession provisions a new remote browser session.
func (c *Client) CreateSession(ctx context.Context, opts *CreateOptions) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session options: %w", err)
	}

	body, err := json.Marshal(newCreateSessionRequest(c.projectID, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var session Session
	if err := c.do(ctx, "create session", http.MethodPost, "/v1/sessions", body, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, fmt.Errorf("browserbase create session returned no session id")
	}

	logger.Infof("Created session %s", session.ID)
	return &session, nil
}

// DebugURLs fetches the live-view URLs of a session.
func (c *Client) DebugURLs(ctx context.Context, sessionID string) (*DebugURLs, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	var urls DebugURLs
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/debug"
	if err := c.do(ctx, "get debug URL", http.MethodGet, path, nil, &urls); err != nil {
		return nil, err
	}
	return &urls, nil
}

// ConnectURL returns the CDP websocket URL for a session.
func (c *Client) ConnectURL(sessionID string) string {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("sessionId", sessionID)
	return c.connectURL + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("browserbase %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("browserbase %s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnf("%s returned status %d", op, resp.StatusCode)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("browserbase %s: failed to decode response: %w", op, err)
	}
	return nil
}
