package transport

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

	"github.com/rs/zerolog"
)

const (
	defaultUserAgent       = "easel/0.1"
	defaultMaxAttempts     = 3
	defaultBackoffBase     = time.Second
	defaultBackoffMax      = 3 * time.Second
	defaultErrorThreshold  = 500
	defaultMutationTimeout = 120 * time.Second
	defaultPollTimeout     = 10 * time.Second
	maxErrorBodyBytes      = 2048
)

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL         string
	Headers         map[string]string
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	ErrorThreshold  int
	MutationTimeout time.Duration
	PollTimeout     time.Duration
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// Client issues JSON requests against one base address with retry on
// network failures.
type Client struct {
	baseURL         *url.URL
	http            *http.Client
	headers         http.Header
	maxAttempts     int
	backoffBase     time.Duration
	backoffMax      time.Duration
	errorThreshold  int
	mutationTimeout time.Duration
	pollTimeout     time.Duration
	sleep           func(ctx context.Context, d time.Duration) error
	log             zerolog.Logger
}

// NewClient validates the base address and applies defaults.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("User-Agent", defaultUserAgent)
	for k, v := range opts.Headers {
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		headers.Set(k, v)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL:         base,
		http:            httpClient,
		headers:         headers,
		maxAttempts:     opts.MaxAttempts,
		backoffBase:     opts.BackoffBase,
		backoffMax:      opts.BackoffMax,
		errorThreshold:  opts.ErrorThreshold,
		mutationTimeout: opts.MutationTimeout,
		pollTimeout:     opts.PollTimeout,
		sleep:           sleepContext,
		log:             opts.Logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.backoffMax <= 0 {
		c.backoffMax = defaultBackoffMax
	}
	if c.errorThreshold <= 0 {
		c.errorThreshold = defaultErrorThreshold
	}
	if c.mutationTimeout <= 0 {
		c.mutationTimeout = defaultMutationTimeout
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = defaultPollTimeout
	}
	return c, nil
}

// Budget selects one of the two timeout budgets.
type Budget int

const (
	// BudgetMutation is the long budget for submissions and writes.
	BudgetMutation Budget = iota
	// BudgetPoll is the short budget for status checks.
	BudgetPoll
)

type requestConfig struct {
	budget  Budget
	timeout time.Duration
	query   url.Values
}

// RequestOption customizes a single call.
type RequestOption func(*requestConfig)

// WithBudget selects the poll or mutation timeout.
func WithBudget(b Budget) RequestOption {
	return func(rc *requestConfig) { rc.budget = b }
}

// WithTimeout overrides the budget with an explicit timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.timeout = d }
}

// WithQuery sets the request query string.
func WithQuery(values url.Values) RequestOption {
	return func(rc *requestConfig) { rc.query = values }
}

// Response is a received reply below the error threshold.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode fails with a ServiceError for any status >= 400 and otherwise
// unmarshals the body into dest. A nil dest or empty body is accepted.
func (r *Response) Decode(dest any) error {
	if r.StatusCode >= 400 {
		return &ServiceError{StatusCode: r.StatusCode, Body: truncate(r.Body)}
	}
	if dest == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do sends one logical request, retrying network failures with linear
// backoff. body, when non-nil, is encoded as JSON. path is resolved against
// the base URL.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rc := requestConfig{budget: BudgetMutation}
	for _, opt := range opts {
		opt(&rc)
	}
	timeout := rc.timeout
	if timeout <= 0 {
		timeout = c.mutationTimeout
		if rc.budget == BudgetPoll {
			timeout = c.pollTimeout
		}
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = encoded
	}

	// Relative paths extend the base path; a leading slash addresses the host root.
	rel := &url.URL{Path: path}
	if len(rc.query) > 0 {
		rel.RawQuery = rc.query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel).String()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.attempt(ctx, method, reqURL, payload, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == c.maxAttempts {
			break
		}
		delay := c.backoff(attempt)
		c.log.Warn().Err(err).Str("method", method).Str("url", reqURL).
			Int("attempt", attempt).Dur("backoff", delay).Msg("retrying request")
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, reqURL, err)
		}
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, reqURL string, payload []byte, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers.Clone()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("url", reqURL).Msg("request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(method, reqURL, timeout, ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", method, reqURL, ctx.Err())
		}
		return nil, &ReadError{Method: method, URL: reqURL, StatusCode: resp.StatusCode, Err: err}
	}
	c.log.Debug().Str("method", method).Str("url", reqURL).Int("status", resp.StatusCode).Msg("response")

	if resp.StatusCode >= c.errorThreshold {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: truncate(data)}
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// backoff grows linearly with the attempt number and is capped.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase * time.Duration(attempt)
	if d > c.backoffMax {
		return c.backoffMax
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > maxErrorBodyBytes {
		return trimmed[:maxErrorBodyBytes]
	}
	return trimmed
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
