package medsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultSearchPath = "/search"

	msgShowPayment = "Request is valid show payment"
)

// Client is the medsearch gateway client. Safe for concurrent use.
type Client struct {
	baseURL    string
	searchPath string
	userAgent  string
	hc         *http.Client
}

// New creates a Client for the gateway at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("medsearch: invalid base url %q", baseURL)
	}

	cfg := &clientConfig{searchPath: defaultSearchPath, userAgent: "medsearch-go"}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if !strings.HasPrefix(cfg.searchPath, "/") {
		cfg.searchPath = "/" + cfg.searchPath
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		searchPath: cfg.searchPath,
		userAgent:  cfg.userAgent,
		hc:         cfg.httpClient,
	}, nil
}

// wireResponse covers every body shape the gateway returns.
type wireResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Search submits a search request.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("medsearch: encode request: %w", err)
	}

	status, resp, err := c.do(ctx, http.MethodPost, c.searchPath, body)
	if err != nil {
		return SearchResult{}, err
	}

	switch {
	case status == http.StatusOK:
		return SearchResult{Message: resp.Message, ShowPayment: resp.Message == msgShowPayment}, nil
	case status == http.StatusUnauthorized:
		return SearchResult{}, ErrUnauthorized
	case status == http.StatusBadRequest && resp.Error != "":
		return SearchResult{}, ErrRateLimited
	case status == http.StatusBadRequest:
		return SearchResult{}, &ValidationError{Message: resp.Message}
	default:
		msg := resp.Message
		if msg == "" {
			msg = resp.Error
		}
		return SearchResult{}, &StatusError{StatusCode: status, Message: msg}
	}
}

// Health fetches the gateway health report. A 503 is reported in the status, not as an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("medsearch: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.hc.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("medsearch: health: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, &StatusError{StatusCode: res.StatusCode}
	}

	var hs struct {
		Status  string            `json:"status"`
		Checks  map[string]string `json:"checks"`
		Version string            `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("medsearch: decode health: %w", err)
	}
	return HealthStatus{Status: hs.Status, Checks: hs.Checks, Version: hs.Version}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, wireResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, wireResponse{}, fmt.Errorf("medsearch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, wireResponse{}, fmt.Errorf("medsearch: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, wireResponse{}, fmt.Errorf("medsearch: read response: %w", err)
	}

	var wr wireResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &wr); err != nil {
			var syn *json.SyntaxError
			if errors.As(err, &syn) && res.StatusCode != http.StatusOK {
				// non-JSON error page from a proxy
				return res.StatusCode, wireResponse{Message: strings.TrimSpace(string(raw))}, nil
			}
			return 0, wireResponse{}, fmt.Errorf("medsearch: decode response: %w", err)
		}
	}
	return res.StatusCode, wr, nil
}
