// Package client talks to the assistant backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suykerbuyk/atlas-chat/internal/history"
	"github.com/suykerbuyk/atlas-chat/internal/index"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx response. It is returned before any stream
// body is read.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a backend API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeaderTimeout bounds the wait for response headers. Streams are not
// cut off once they have started.
func WithHeaderTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = d
		c.http = &http.Client{Transport: tr}
	}
}

// New returns a client for baseURL. An empty token sends no
// Authorization header.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Message      string `json:"message"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// Stream sends message and returns the NDJSON response body. The caller
// must close it; cancelling ctx aborts the read.
func (c *Client) Stream(ctx context.Context, message, checkpointID string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{Message: message, CheckpointID: checkpointID})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Conversations lists the conversations the backend knows about.
func (c *Client) Conversations(ctx context.Context) ([]index.Conversation, error) {
	var out []index.Conversation
	if err := c.getJSON(ctx, "/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Conversation fetches one conversation with its persisted messages.
func (c *Client) Conversation(ctx context.Context, id string) (history.Export, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return history.Export{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return history.Export{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return history.Export{}, fmt.Errorf("read response: %w", err)
	}
	exp, err := history.Decode(data)
	if err != nil {
		return history.Export{}, fmt.Errorf("decode conversation: %w", err)
	}
	return exp, nil
}

// Messages implements history.Source.
func (c *Client) Messages(ctx context.Context, conversationID string) ([]history.Message, error) {
	exp, err := c.Conversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return exp.Messages, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and turns non-2xx responses into *StatusError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: errorDetail(data)}
	}
	return resp, nil
}

// errorDetail extracts FastAPI's {"detail": "..."} message when present.
func errorDetail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(body))
}
