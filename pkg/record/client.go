// Package record loads an existing record to seed initial form state. The
// endpoint returns either `{"formData": {...}}` or a bare object; the URL may
// carry `{token}` placeholders resolved from navigation context before the
// call goes out.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// OptionFn customises a Client.
type OptionFn func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) OptionFn {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout bounds the record fetch.
func WithTimeout(timeout time.Duration) OptionFn {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client fetches record payloads.
type Client struct {
	client  *http.Client
	timeout time.Duration
}

// New constructs a Client with defaults plus overrides.
func New(fns ...OptionFn) *Client {
	c := &Client{
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(c)
	}
	return c
}

// ResolveURL substitutes `{token}` placeholders with navigation context
// values. Unknown tokens are left verbatim so the failure shows up in the
// request log instead of silently fetching the wrong record.
func ResolveURL(template string, nav map[string]string) string {
	if len(nav) == 0 {
		return template
	}
	out := template
	for token, value := range nav {
		out = strings.ReplaceAll(out, "{"+token+"}", value)
	}
	return out
}

// Load fetches and decodes the record behind the resolved URL.
func (c *Client) Load(ctx context.Context, urlTemplate string, nav map[string]string) (map[string]any, error) {
	target := ResolveURL(urlTemplate, nav)
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("record: url is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("record: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("record: fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("record: unexpected status " + resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("record: read response: %w", err)
	}
	return decode(raw)
}

// envelope matches the `{"formData": {...}}` response shape.
type envelope struct {
	FormData map[string]any `json:"formData"`
}

func decode(raw []byte) (map[string]any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.FormData != nil {
		return env.FormData, nil
	}
	// Not an envelope: the payload is the record itself, and a field that
	// happens to be named formData is ordinary data.
	var bare map[string]any
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, fmt.Errorf("record: decode response: %w", err)
	}
	return bare, nil
}
