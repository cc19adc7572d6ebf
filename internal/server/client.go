package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cameronsjo/berth/internal/deploy"
)

// Client talks to a berth server.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
}

// NewClient creates a client for the server at baseURL ("host:port" or a
// full URL).
func NewClient(baseURL, bearerToken string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		bearerToken: bearerToken,
		httpClient: &http.Client{
			Timeout: 6 * time.Minute,
		},
	}
}

// Deploy submits a description. A failed deployment returns the response
// (with its status history) together with an error.
func (c *Client) Deploy(ctx context.Context, desc *deploy.Description) (*DeployResponse, error) {
	body, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, PathDeploy, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result DeployResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode != http.StatusOK {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &result, fmt.Errorf("server returned status %d: %s", resp.StatusCode, msg)
	}
	return &result, nil
}

// Kinds lists the kinds the server can deploy.
func (c *Client) Kinds(ctx context.Context) ([]KindInfo, error) {
	var kinds []KindInfo
	if err := c.getJSON(ctx, PathKinds, &kinds); err != nil {
		return nil, err
	}
	return kinds, nil
}

// Health checks if the server is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.getJSON(ctx, PathHealth, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server at %s: %w", c.baseURL, err)
	}
	return resp, nil
}
