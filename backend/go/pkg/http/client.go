package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"student_mentor/backend/go/pkg/circuitbreaker"
)

// BreakerOptions enables client-side circuit breaking.
type BreakerOptions struct {
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
}

// ClientOptions configures a Client. A zero Timeout means requests are only
// bounded by their context, which streaming calls rely on.
type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	Breaker *BreakerOptions
}

// Client is a JSON API client with optional circuit breaking.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// StatusError is returned for non-2xx responses. Message carries the
// server's {"error": "..."} text when present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// NewClient builds a Client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
	if b := opts.Breaker; b != nil {
		c.breaker = circuitbreaker.New(b.FailureThreshold, b.SuccessThreshold, b.Timeout)
	}
	return c
}

// Do executes req. Status codes >= 500 count as breaker failures but the
// response is still returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	switch {
	case err != nil:
		c.breaker.Report(err)
	case resp.StatusCode >= http.StatusInternalServerError:
		c.breaker.Report(fmt.Errorf("server error: received status code %d", resp.StatusCode))
	default:
		c.breaker.Report(nil)
	}
	return resp, err
}

// GetJSON decodes the JSON body of GET path into out.
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.send(ctx, http.MethodGet, path, nil, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

// PostJSON sends body as JSON and decodes the response into out (which may be nil).
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.send(ctx, http.MethodPost, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

// Stream posts body and returns the open response for incremental reading.
// The caller must close the body. Non-2xx responses are turned into a
// *StatusError.
func (c *Client) Stream(ctx context.Context, path string, body interface{}, accept string) (*http.Response, error) {
	resp, err := c.send(ctx, http.MethodPost, path, body, accept)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, accept string) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.Do(req)
}

func decode(resp *http.Response, out interface{}) error {
	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
