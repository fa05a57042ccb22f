// Package agents is the HTTP client side of the per-agent contract: every
// assistant agent serves /metadata, /data and /ask. Metadata lives in
// pkg/metadata; this package covers asking questions and pulling data feeds.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/uniportal/assistant/pkg/httpclient"
	"github.com/uniportal/assistant/pkg/observability"
)

// DefaultAskTimeout bounds one forwarded question end to end. Agents run
// their own models; a generous bound beats cutting off a slow but healthy
// answer.
const DefaultAskTimeout = 120 * time.Second

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AskContext carries per-question context through to the agent.
type AskContext struct {
	Language  string                 `json:"language,omitempty"`
	Project   string                 `json:"project,omitempty"`
	ExtraData map[string]interface{} `json:"extra_data,omitempty"`
}

// AskRequest is the body of POST {baseURL}/ask.
type AskRequest struct {
	SessionID string     `json:"session_id,omitempty"`
	User      string     `json:"user,omitempty"`
	ModelID   string     `json:"model_id,omitempty"`
	Prompt    string     `json:"prompt"`
	Context   AskContext `json:"context"`
}

// AskMeta is the agent's self-reported accounting for one answer.
type AskMeta struct {
	Model          string `json:"model,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms,omitempty"`
	TokensUsed     int    `json:"tokens_used,omitempty"`
}

// AskResponse is the agent's answer. Status distinguishes an agent-level
// error (the agent responded, but could not answer) from transport failures,
// which surface as an *AgentError instead.
type AskResponse struct {
	SessionID       string  `json:"session_id,omitempty"`
	Status          string  `json:"status"`
	ContentMarkdown string  `json:"content_markdown,omitempty"`
	ErrorCode       string  `json:"error_code,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	Meta            AskMeta `json:"meta,omitempty"`
}

// DataResponse is the body of GET {baseURL}/data?type=...
type DataResponse struct {
	Status      string        `json:"status"`
	DataType    string        `json:"data_type"`
	Items       []interface{} `json:"items"`
	LastUpdated string        `json:"last_updated,omitempty"`
}

// AgentError reports a transport-level failure against an agent endpoint,
// with the attempted URL for diagnosis.
type AgentError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *AgentError) Error() string {
	msg := fmt.Sprintf("agent request to %s failed", e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// Client talks to agent services.
type Client struct {
	client  *httpclient.Client
	timeout time.Duration
}

type ClientOption func(*Client)

func WithAskTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(client *httpclient.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{timeout: DefaultAskTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: c.timeout}),
			httpclient.WithMaxRetries(0),
		)
	}
	return c
}

// Ask forwards a question to the agent's /ask endpoint. An AskResponse with
// Status "error" is an agent-level answer, not a Go error.
func (c *Client) Ask(ctx context.Context, alias, baseURL string, req AskRequest) (*AskResponse, error) {
	start := time.Now()
	resp, err := c.ask(ctx, baseURL, req)
	observability.RecordAgentForward(ctx, alias, time.Since(start), err)
	return resp, err
}

func (c *Client) ask(ctx context.Context, baseURL string, req AskRequest) (*AskResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	askURL := strings.TrimSuffix(baseURL, "/") + "/ask"
	resp, err := c.client.PostJSON(ctx, askURL, req, nil)
	if err != nil {
		agentErr := &AgentError{URL: askURL, Err: err}
		if resp != nil {
			agentErr.StatusCode = resp.StatusCode
			// Agents may report errors with a non-2xx status but a valid
			// contract body; prefer the body when it decodes.
			var decoded AskResponse
			if decodeErr := json.NewDecoder(resp.Body).Decode(&decoded); decodeErr == nil && decoded.Status == StatusError {
				resp.Body.Close()
				return &decoded, nil
			}
			resp.Body.Close()
		}
		return nil, agentErr
	}
	defer resp.Body.Close()

	var decoded AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &AgentError{URL: askURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	if decoded.Status == "" {
		return nil, &AgentError{URL: askURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("response is missing status")}
	}
	return &decoded, nil
}

// GetData pulls one of the agent's declared data feeds.
func (c *Client) GetData(ctx context.Context, baseURL, dataType string) (*DataResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dataURL := strings.TrimSuffix(baseURL, "/") + "/data?type=" + url.QueryEscape(dataType)
	resp, err := c.client.GetJSON(ctx, dataURL, nil)
	if err != nil {
		agentErr := &AgentError{URL: dataURL, Err: err}
		if resp != nil {
			agentErr.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		return nil, agentErr
	}
	defer resp.Body.Close()

	var decoded DataResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &AgentError{URL: dataURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return &decoded, nil
}
