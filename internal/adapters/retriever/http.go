package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/callscout/internal/domain/model"
	"github.com/okian/callscout/pkg/logger"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBaseDelay   = 2 * time.Second
	maxResponseBytes   = 8 << 20
)

// HTTPOption configures an HTTPRetriever.
type HTTPOption func(*HTTPRetriever)

// WithHTTPClient sets the client used for search requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPRetriever) {
		if c != nil {
			h.client = c
		}
	}
}

// WithMaxRetries bounds retries on HTTP 429.
func WithMaxRetries(n int) HTTPOption {
	return func(h *HTTPRetriever) {
		if n >= 0 {
			h.maxRetries = n
		}
	}
}

// WithRetryBaseDelay sets the first backoff delay. It doubles per attempt.
func WithRetryBaseDelay(d time.Duration) HTTPOption {
	return func(h *HTTPRetriever) {
		if d > 0 {
			h.baseDelay = d
		}
	}
}

// WithSourceName labels records that do not name their own source.
func WithSourceName(name string) HTTPOption {
	return func(h *HTTPRetriever) {
		h.source = name
	}
}

// WithHTTPLogger sets a custom logger.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(h *HTTPRetriever) {
		if l != nil {
			h.logger = l
		}
	}
}

// HTTPRetriever queries a search endpoint of the form
// GET {base}/search?q=... answering {"records": [...]}.
type HTTPRetriever struct {
	base       string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	source     string
	logger     logger.Logger
}

type searchResponse struct {
	Records []model.OpportunityRecord `json:"records"`
}

// NewHTTP creates a retriever for the service at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTPRetriever {
	h := &HTTPRetriever{
		base:       strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		logger:     logger.Get().Named("retriever.http"),
	}
	if u, err := url.Parse(h.base); err == nil {
		h.source = u.Host
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Retrieve runs every query and merges the results by ID. A failing query is
// logged and skipped; the call fails only when every query failed.
func (h *HTTPRetriever) Retrieve(ctx context.Context, plan model.Plan) ([]model.OpportunityRecord, error) {
	const op = "retriever.http"
	queries := plan.Queries
	if len(queries) == 0 {
		queries = []string{""}
	}

	var (
		merged  []model.OpportunityRecord
		lastErr error
		failed  int
	)
	for _, q := range queries {
		records, err := h.search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, model.WrapKind(op, model.ErrRetrieval, ctx.Err())
			}
			failed++
			lastErr = err
			h.logger.Warn(ctx, "search query failed", logger.String("query", q), logger.Error(err))
			continue
		}
		merged = append(merged, records...)
	}
	if failed == len(queries) {
		return nil, model.WrapKind(op, model.ErrRetrieval, lastErr)
	}

	out, dropped := Normalize(merged, h.source)
	if dropped > 0 {
		h.logger.Debug(ctx, "records dropped during normalization", logger.Int("dropped", dropped))
	}
	return out, nil
}

func (h *HTTPRetriever) search(ctx context.Context, query string) ([]model.OpportunityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/search?q="+url.QueryEscape(query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var sr searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return sr.Records, nil
}

// doWithRetry retries on 429 with exponential backoff starting at the base
// delay. After the last retry the 429 response is returned to the caller.
func (h *HTTPRetriever) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := h.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= h.maxRetries {
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		backoff := h.baseDelay << attempt
		h.logger.Debug(ctx, "rate limited, backing off",
			logger.Duration("backoff", backoff),
			logger.Int("attempt", attempt+1),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
