// Package worldstore is the HTTP client for the world store API.
package worldstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jwebster45206/world-editor/pkg/session"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// ErrorResponse is the error body returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Client talks to the world store over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ session.Store = (*Client)(nil)

// NewClient returns a client for the API at baseURL. token, if set, is sent
// as a bearer token on writes.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Ping checks the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) worldURL(name string) string {
	return fmt.Sprintf("%s/v1/worlds/%s", c.baseURL, url.PathEscape(name))
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/worlds", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to list worlds: %s", apiError(status, body))
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("failed to parse world list: %w", err)
	}
	return names, nil
}

func (c *Client) Fetch(ctx context.Context, name string) (*world.Document, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.worldURL(name), nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, name)
	default:
		return nil, fmt.Errorf("failed to fetch world %s: %s", name, apiError(status, body))
	}
	doc, err := world.Decode(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Fetched world", "world", name, "bytes", len(body))
	return doc, nil
}

// Persist writes doc under name. Every failure wraps session.ErrStorage.
func (c *Client) Persist(ctx context.Context, name string, doc *world.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStorage, err)
	}
	body, status, err := c.do(ctx, http.MethodPut, c.worldURL(name), data)
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrStorage, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: %s", session.ErrStorage, apiError(status, body))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" && method != http.MethodGet {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func apiError(status int, body []byte) string {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Sprintf("API returned status %d: %s", status, string(body))
	}
	return fmt.Sprintf("API returned status %d: %s", status, errorResp.Error)
}
