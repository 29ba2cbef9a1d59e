// Package fetch provides the shared HTTP client used by ATS detection and the
// job board clients, plus HTML-to-text helpers.
package fetch

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
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; HiringSignals/1.0)"

// DetectionReadLimit caps how much of a page is read when scanning for ATS signatures.
const DetectionReadLimit = 100 * 1024

// maxJSONBody bounds API responses so a misbehaving board cannot exhaust memory.
const maxJSONBody = 32 << 20

// Result holds the raw content of a fetched URL.
type Result struct {
	// URL is the final URL after redirects.
	URL         string
	RequestURL  string
	HTML        string
	ContentType string
	StatusCode  int
	Truncated   bool
}

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// Client is a pooled HTTP client shared by every caller in a process.
// Close releases its idle connections.
type Client struct {
	opts Options
	hc   *http.Client
}

// NewClient creates a Client. A nil opts uses DefaultOptions.
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	return &Client{
		opts: o,
		hc:   &http.Client{Timeout: o.Timeout, Transport: transport},
	}
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.opts.Timeout
}

// Get retrieves a page in full. The result is returned even for non-200
// responses, together with an *Error.
func (c *Client) Get(ctx context.Context, urlStr string) (*Result, error) {
	return c.get(ctx, urlStr, 0)
}

// GetLimited retrieves at most limit bytes of a page.
func (c *Client) GetLimited(ctx context.Context, urlStr string, limit int64) (*Result, error) {
	return c.get(ctx, urlStr, limit)
}

func (c *Client) get(ctx context.Context, urlStr string, limit int64) (*Result, error) {
	if err := validateURL(urlStr); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, urlStr, nil, "")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	bodyBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         resp.Request.URL.String(),
		RequestURL:  urlStr,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if limit > 0 && int64(len(bodyBytes)) > limit {
		bodyBytes = bodyBytes[:limit]
		result.Truncated = true
	}
	result.HTML = string(bodyBytes)

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
	return result, nil
}

// Exists probes a URL and reports whether it answered with a non-error
// status. Redirects are followed and the final URL is returned.
func (c *Client) Exists(ctx context.Context, urlStr string) (string, bool) {
	if validateURL(urlStr) != nil {
		return "", false
	}

	resp, err := c.do(ctx, http.MethodHead, urlStr, nil, "")
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, urlStr, nil, "")
	}
	if err != nil {
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", false
	}
	return resp.Request.URL.String(), true
}

// GetJSON issues a GET and decodes a JSON response into v.
func (c *Client) GetJSON(ctx context.Context, urlStr string, v any) error {
	if err := validateURL(urlStr); err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodGet, urlStr, nil, "application/json")
	if err != nil {
		return err
	}
	return decodeJSON(resp, urlStr, v)
}

// PostJSON encodes body as JSON, POSTs it and decodes the JSON response into v.
func (c *Client) PostJSON(ctx context.Context, urlStr string, body, v any) error {
	if err := validateURL(urlStr); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{URL: urlStr, Message: "failed to encode request body", Cause: err}
	}
	resp, err := c.do(ctx, http.MethodPost, urlStr, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	return decodeJSON(resp, urlStr, v)
}

func (c *Client) do(ctx context.Context, method, urlStr string, body io.Reader, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", c.opts.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, urlStr string, v any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(v); err != nil {
		return &Error{URL: urlStr, Message: "failed to decode JSON response", StatusCode: resp.StatusCode, Cause: err}
	}
	return nil
}

func validateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &Error{URL: urlStr, Message: "unsupported scheme " + parsedURL.Scheme}
	}
	return nil
}

// ResolveReference resolves href against base, returning "" when either is unparsable.
func ResolveReference(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
