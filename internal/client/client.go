// Package client talks to the agentscope HTTP API.
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

	"agentscope/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New accepts a bare host:port as well as a full URL.
func New(addr string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.Contains(base, "://") {
		if strings.HasPrefix(base, ":") {
			base = "localhost" + base
		}
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// WaitHealth polls /healthz until it answers or the timeout elapses.
func (c *Client) WaitHealth(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var out map[string]any
		if err := c.getJSON(ctx, "/healthz", &out); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(400 * time.Millisecond):
		}
	}
	return fmt.Errorf("timeout waiting for /healthz")
}

func (c *Client) ListAnalyses(ctx context.Context) ([]domain.Analysis, error) {
	var out []domain.Analysis
	if err := c.getJSON(ctx, "/analyses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (domain.Analysis, error) {
	var out domain.Analysis
	if err := c.getJSON(ctx, "/analyses/"+url.PathEscape(id), &out); err != nil {
		return domain.Analysis{}, err
	}
	return out, nil
}

func (c *Client) CreateAnalysis(ctx context.Context, a domain.Analysis) (domain.Analysis, error) {
	var out domain.Analysis
	if err := c.postJSON(ctx, "/analyses", a, &out); err != nil {
		return domain.Analysis{}, err
	}
	return out, nil
}

func (c *Client) ListResults(ctx context.Context, analysisID string) ([]domain.TestResult, error) {
	var out []domain.TestResult
	if err := c.getJSON(ctx, fmt.Sprintf("/analyses/%s/results", url.PathEscape(analysisID)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PostResult(ctx context.Context, analysisID string, r domain.TestResult) (domain.TestResult, error) {
	var out domain.TestResult
	if err := c.postJSON(ctx, fmt.Sprintf("/analyses/%s/results", url.PathEscape(analysisID)), r, &out); err != nil {
		return domain.TestResult{}, err
	}
	return out, nil
}

func (c *Client) SetRunning(ctx context.Context, analysisID, key string) error {
	return c.postJSON(ctx, fmt.Sprintf("/analyses/%s/running", url.PathEscape(analysisID)), map[string]string{"key": key}, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
