// Package remote is the HTTP client for the jobs API of the remote coding
// agent. The monitor uses the read paths (JobStatus, Messages); the serve
// tools use the full surface.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production jobs API endpoint.
const DefaultBaseURL = "https://jules.googleapis.com/v1"

const defaultTimeout = 30 * time.Second

// Client talks to the remote jobs API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (primarily for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a jobs API client. An empty token means unauthenticated
// requests, which the production API will reject but test servers accept.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if token != "" {
		base := c.httpClient
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		authed := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		authed.Timeout = base.Timeout
		c.httpClient = authed
	}
	return c
}

// HTTPError is a non-2xx response from the jobs API. The monitor treats it
// as a transient observation and emits an error event without touching the
// job's stored state.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, body)
}

// Status is a job's current remote state. Payload is the full response
// body, attached verbatim to terminal events.
type Status struct {
	Status  string
	Payload json.RawMessage
}

// Message is one remote activity-stream entry.
type Message struct {
	Role    string   `json:"role,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// MessagePage is one page of a job's activity stream.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// JobStatus fetches the current status of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Status, error) {
	raw, err := c.do(ctx, http.MethodGet, "jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse job status: %w", err)
	}
	return &Status{Status: payload.Status, Payload: raw}, nil
}

// Messages fetches the next page of a job's activity stream. An empty
// cursor starts from the beginning.
func (c *Client) Messages(ctx context.Context, jobID, cursor string) (*MessagePage, error) {
	path := "jobs/" + url.PathEscape(jobID) + "/messages"
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var page MessagePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to parse message page: %w", err)
	}
	return &page, nil
}

// CreateJob submits a new job. Arguments pass through opaquely so serve
// clients control the full request shape.
func (c *Client) CreateJob(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "jobs", args)
}

// SendMessage sends a clarification or instruction to a running job.
func (c *Client) SendMessage(ctx context.Context, jobID string, message json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "jobs/"+url.PathEscape(jobID)+"/messages", message)
}

// Artifacts fetches a job's outputs (diff, patch, PR URL).
func (c *Client) Artifacts(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "jobs/"+url.PathEscape(jobID)+"/artifacts", nil)
}

// RequestRetry asks the remote side to re-run a failed job.
func (c *Client) RequestRetry(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "jobs/"+url.PathEscape(jobID)+":retry", nil)
}

// MergePR merges the PR associated with a completed job.
func (c *Client) MergePR(ctx context.Context, jobID string, payload json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "jobs/"+url.PathEscape(jobID)+":merge", payload)
}

// CancelJob cancels a running job.
func (c *Client) CancelJob(ctx context.Context, jobID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "jobs/"+url.PathEscape(jobID)+":cancel", nil)
}

// ListJobs lists jobs for a repository.
func (c *Client) ListJobs(ctx context.Context, repo string, limit int) (json.RawMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	path := "jobs?repo=" + url.QueryEscape(repo) + "&limit=" + strconv.Itoa(limit)
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload json.RawMessage) (json.RawMessage, error) {
	endpoint := c.baseURL + "/" + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: endpoint, Body: string(data)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}
