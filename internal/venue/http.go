package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is the shared JSON-over-HTTP helper used by venue connectors.
// It applies a request timeout and optional forward proxy, and decodes
// responses straight into caller-provided structs.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTPClient with the given overall request
// timeout. proxyURL may be empty; when set, all requests are routed
// through it.
func NewHTTPClient(timeout time.Duration, proxyURL string) (*HTTPClient, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("venue: parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// GetJSON performs a GET against rawURL with the given query parameters and
// headers, and decodes the JSON response body into out. Non-2xx statuses
// are returned as errors carrying a truncated response excerpt.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("venue: parse url %s: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("venue: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("venue: get %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("venue: get %s%s: status %d: %s", u.Host, u.Path, resp.StatusCode, string(excerpt))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("venue: decode %s%s: %w", u.Host, u.Path, err)
	}
	return nil
}
