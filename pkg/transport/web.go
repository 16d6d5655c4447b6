package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is the web channel implementation for CGI-style firmware web
// APIs: every command maps to http://host/cgi-bin/<command>.cgi, read
// commands are GETs and mutating commands POST a JSON body. Success or
// failure of a mutation lives in the response body's sentinel code, which
// is the dialect's business, so the decoded body is returned whenever the
// transport itself succeeded.
type HTTPClient struct {
	host       string
	baseURL    string
	httpClient *http.Client
}

// WebOption configures an HTTPClient.
type WebOption func(*HTTPClient)

// WithWebTimeout sets the HTTP client timeout.
func WithWebTimeout(timeout time.Duration) WebOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(client *http.Client) WebOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// NewHTTPClient creates a web channel client for the given host using
// digest authentication with the supplied credentials.
func NewHTTPClient(host string, creds Credentials, opts ...WebOption) *HTTPClient {
	c := &HTTPClient{
		host:    host,
		baseURL: fmt.Sprintf("http://%s/cgi-bin", host),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: NewDigestRoundTripper(creds, nil),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Host returns the device host address.
func (c *HTTPClient) Host() string {
	return c.host
}

// Send issues one web command. A nil params is a GET; otherwise the params
// are POSTed as JSON.
func (c *HTTPClient) Send(ctx context.Context, command string, params map[string]any) (map[string]any, error) {
	fail := func(err error) (map[string]any, error) {
		return nil, &Error{Channel: "web", Command: command, Err: err}
	}

	endpoint := fmt.Sprintf("%s/%s.cgi", c.baseURL, command)

	var req *http.Request
	var err error
	if params == nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	} else {
		var body []byte
		body, err = json.Marshal(params)
		if err != nil {
			return fail(fmt.Errorf("encode request: %w", err))
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}

	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	return result, nil
}

// Ensure HTTPClient implements the Web channel.
var _ Web = (*HTTPClient)(nil)
