package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/internal/workflow"
)

// ErrStatus reports an unexpected HTTP status.
var ErrStatus = errors.New("unexpected status")

// Client is a minimal callscout API client.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	_, err = readBody(resp, http.StatusOK)
	return err
}

// CreateRun posts a profile and returns the new run ID.
func (c *Client) CreateRun(ctx context.Context, p model.OrganizationProfile) (string, error) { //nolint:gocritic // hugeParam: serialized once
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/runs", body)
	if err != nil {
		return "", err
	}
	raw, err := readBody(resp, http.StatusAccepted)
	if err != nil {
		return "", err
	}
	var out struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode run id: %w", err)
	}
	return out.RunID, nil
}

// Status fetches a run status.
func (c *Client) Status(ctx context.Context, runID string) (workflow.RunStatus, error) {
	var st workflow.RunStatus
	err := c.getJSON(ctx, "/runs/"+runID, &st)
	return st, err
}

// Results fetches the ranked results of a run.
func (c *Client) Results(ctx context.Context, runID string) ([]model.AnalyzedOpportunity, error) {
	var out []model.AnalyzedOpportunity
	err := c.getJSON(ctx, "/runs/"+runID+"/results", &out)
	return out, err
}

// Wait polls until the run leaves the running status.
func (c *Client) Wait(ctx context.Context, runID string, every time.Duration) (workflow.RunStatus, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx, runID)
		if err != nil {
			return st, err
		}
		if st.Status != workflow.StatusRunning {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("wait for run %s: %w", runID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	raw, err := readBody(resp, http.StatusOK)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// readBody reads and closes the response body, checking the status.
func readBody(resp *http.Response, want int) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return raw, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, nil
}
