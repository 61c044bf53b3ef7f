package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type ClientConfig struct {
	Name          string
	BaseURL       string
	Headers       map[string]string
	Timeout       time.Duration
	Retries       int
	RatePerSecond float64
	HTTPClient    *http.Client
}

// Client is the retrying, rate-limited JSON client shared by the HTTP
// backends.
type Client struct {
	name    string
	baseURL string
	headers map[string]string
	client  *http.Client
	timeout time.Duration
	retries int
	limiter *rate.Limiter
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s base url required", cfg.Name)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		client:  client,
		timeout: timeout,
		retries: retries,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

// GetJSON performs GET baseURL+path?params and decodes the body into out.
// Transport errors, 429/5xx responses and undecodable bodies are retried;
// 401/403 escalate as a Fault.
func (c *Client) GetJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return &ProviderError{Provider: c.name, Op: op, Err: ctx.Err()}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return &ProviderError{Provider: c.name, Op: op, Err: err}
		}
		err := c.do(ctx, target, out)
		if err == nil {
			return nil
		}
		if se, ok := err.(*statusError); ok {
			switch {
			case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
				return &Fault{Provider: c.name, Err: fmt.Errorf("%s: credentials rejected (%d)", op, se.code)}
			case se.code == http.StatusTooManyRequests || se.code >= 500:
			default:
				return &ProviderError{Provider: c.name, Op: op, Err: err}
			}
		}
		lastErr = err
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return &ProviderError{Provider: c.name, Op: op, Err: ctx.Err()}
			case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
			}
		}
	}
	return &ProviderError{Provider: c.name, Op: op, Err: fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)}
}

func (c *Client) do(ctx context.Context, target string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
