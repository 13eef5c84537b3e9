package tui

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

	"github.com/mvrodados/mvrodados/chat"
)

// Client talks to a running mvrodados server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL
// (e.g. http://localhost:3001).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Chat answers may wait on the model and the database.
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Health checks that the server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Chat sends one message. An empty conversationID starts a new conversation.
func (c *Client) Chat(ctx context.Context, message, conversationID string) (*chat.Response, error) {
	var out chat.Response
	body := map[string]string{"message": message}
	if conversationID != "" {
		body["conversationId"] = conversationID
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the turns of a conversation.
func (c *Client) History(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var out struct {
		History []chat.Message `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history/"+url.PathEscape(conversationID), nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Conversations lists conversations by recent activity.
func (c *Client) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	var out struct {
		Conversations []chat.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Clear deletes a conversation on the server.
func (c *Client) Clear(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodDelete, "/api/history/"+url.PathEscape(conversationID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
