// Package client implements a small REST client for the Dumont Cloud API.
// All /api/v1 endpoints require a bearer token; the application itself is
// external and treated as a black box, so the client only covers the
// endpoints the QA harness asserts on.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
)

// Client talks to a Dumont Cloud instance
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   *repeater.Repeater
}

// ChatModel is a model entry from /api/v1/chat/models
type ChatModel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Context  int    `json:"context_length"`
}

// Endpoint is a serverless endpoint from /api/v1/serverless/endpoints
type Endpoint struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	GPUType string `json:"gpu_type"`
	Region  string `json:"region"`
}

// New creates a client for the given base URL. Token may be empty for
// unauthenticated calls (Ping, WaitReady).
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		retry:   repeater.New(&strategy.Backoff{Repeats: 3, Duration: 250 * time.Millisecond, Factor: 2}),
	}
}

// Ping checks the target responds at all
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("make ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("ping %s: status %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

// WaitReady polls the target until it responds or the timeout expires
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("target %s not ready after %v", c.baseURL, timeout)
		default:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Metrics fetches a named metrics document from /api/v1/metrics/{name}
func (c *Client) Metrics(ctx context.Context, name string) (map[string]interface{}, error) {
	var res map[string]interface{}
	if err := c.getJSON(ctx, "/api/v1/metrics/"+name, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ChatModels returns the models available in the chat arena
func (c *Client) ChatModels(ctx context.Context) ([]ChatModel, error) {
	var res []ChatModel
	if err := c.getJSON(ctx, "/api/v1/chat/models", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ServerlessEndpoints returns all provisioned serverless endpoints
func (c *Client) ServerlessEndpoints(ctx context.Context) ([]Endpoint, error) {
	var res []Endpoint
	if err := c.getJSON(ctx, "/api/v1/serverless/endpoints", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Get performs an authorized GET of an arbitrary API path and returns the
// status and raw body. Used by generic api probes.
func (c *Client) Get(ctx context.Context, path string) (status int, body []byte, err error) {
	err = c.retry.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if reqErr != nil {
			return fmt.Errorf("make request for %s: %w", path, reqErr)
		}
		c.authorize(req)

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return fmt.Errorf("get %s: %w", path, doErr)
		}
		defer func() { _ = resp.Body.Close() }()

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
		if readErr != nil {
			return fmt.Errorf("read response for %s: %w", path, readErr)
		}
		status, body = resp.StatusCode, data
		return nil
	})
	return status, body, err
}

func (c *Client) getJSON(ctx context.Context, path string, res interface{}) error {
	status, body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", status, path)
	}
	if err := json.Unmarshal(body, res); err != nil {
		return fmt.Errorf("decode response for %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
