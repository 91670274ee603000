// Package serenio is a client for the Serenio chat API together with the
// session and conversation state a front end keeps on top of it.
package serenio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultURL is the local development server.
const DefaultURL = "http://localhost:3001"

// Client is a Serenio API client. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a new Serenio client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Replies wait on a model completion.
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Token returns the bearer token sent with requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token. An empty token sends none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// APIError is a failed response. Message is the server's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serenio error %d: %s", e.Status, e.Message)
}

// doRequest performs an HTTP request and decodes a JSON response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.Unmarshal(respBody, &errResp)
		if errResp.Message == "" {
			errResp.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: errResp.Message}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// User is the public view of an account.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	req := map[string]string{"name": name, "email": email, "password": password}
	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify returns the user the current token belongs to.
func (c *Client) Verify(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/verify", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Message is one stored turn of a conversation.
type Message struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Content   string    `json:"content"`
	IsBot     bool      `json:"is_bot"`
	Timestamp time.Time `json:"timestamp"`

	// LocalID marks a message shown before the server has stored it.
	LocalID string `json:"-"`
}

// Pending reports whether the message is an unconfirmed local entry.
func (m Message) Pending() bool {
	return m.LocalID != ""
}

// Messages returns the stored history.
func (c *Client) Messages(ctx context.Context) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/chat/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ChatResponse is the result of one conversation turn. Response is only
// set by servers running the anonymous chat.
type ChatResponse struct {
	Response    string   `json:"response,omitempty"`
	UserMessage *Message `json:"userMessage"`
	BotMessage  *Message `json:"botMessage"`
}

// Send posts a message and waits for the reply.
func (c *Client) Send(ctx context.Context, text string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/chat", map[string]string{"message": text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Info describes the server.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

// Anonymous reports whether the server runs the shared, unauthenticated chat.
func (i *Info) Anonymous() bool {
	return i.Mode == "anonymous"
}

// Info fetches the server description.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var resp Info
	if err := c.doRequest(ctx, http.MethodGet, "/api", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the response from the readiness endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Region    string                 `json:"region,omitempty"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server readiness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/ready", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
