// Package httpx is the throttled, timeout-bounded HTTP GET helper shared by
// the outbound provider adapters.
package httpx

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/charleschow/squares-odds/internal/telemetry"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

type Client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

// New builds a client that allows rps requests per second (burst rps) and
// bounds each call by timeout.
func New(name string, timeout time.Duration, rps int) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		name:       name,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		timeout:    timeout,
	}
}

// Get fetches url and returns the (decompressed) body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", c.name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", c.name, err)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", "squares-odds/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http get: %w", c.name, err)
	}
	defer resp.Body.Close()

	telemetry.Debugf("%s: GET %s -> %d (%s)", c.name, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: %w", c.name, &StatusError{URL: url, Status: resp.StatusCode})
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: gzip reader: %w", c.name, err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.name, err)
	}
	return stripBOM(body), nil
}

// GetJSON fetches url and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", c.name, url, err)
	}
	return nil
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
