// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package webex is the Webex REST API client used by the provisioner.
// All Webex requests should go through Client, which handles authentication headers,
// pagination and rate limiting.
package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRateLimited is returned when every attempt of a call was answered with 429.
var ErrRateLimited = errors.New("too many requests: maximum retries exceeded")

// ErrTokenRequired is returned by NewClient for an empty access token.
var ErrTokenRequired = errors.New("access token is required for Webex API requests")

// maxResponseSize limits a single response body.
const maxResponseSize = 32 * 1024 * 1024

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
	TrackingID string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	s := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
	if e.TrackingID != "" {
		s += " (trackingId " + e.TrackingID + ")"
	}
	return s
}

// Client talks to the Webex REST API with a single access token.
type Client struct {
	httpClient    *http.Client
	token         string
	baseURL       string
	identityURL   string
	maxRetries    int
	retryFallback time.Duration
	log           *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets the versioned API root, e.g. "https://webexapis.com/v1".
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithIdentityURL sets the identity broker OAuth root.
func WithIdentityURL(u string) ClientOption {
	return func(c *Client) {
		c.identityURL = strings.TrimRight(u, "/")
	}
}

// WithRetries sets how many attempts a rate-limited call gets and how long to wait
// when the server sends no usable Retry-After header.
func WithRetries(attempts int, fallback time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if fallback >= 0 {
			c.retryFallback = fallback
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client for token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		token:         token,
		baseURL:       DefaultAPIBaseURL,
		identityURL:   DefaultIdentityURL,
		maxRetries:    3,
		retryFallback: time.Second,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var versionSuffix = regexp.MustCompile(`/v\d+$`)

// rootURL is the API host without the version segment. SCIM lives there.
func (c *Client) rootURL() string {
	return versionSuffix.ReplaceAllString(c.baseURL, "")
}

// resolve turns a path into a full URL. Absolute URLs are kept as they are.
func (c *Client) resolve(path string, params url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + params.Encode()
	}
	return u
}

// do sends one logical request, retrying on 429. The returned response has a 2xx
// status; its body is already read.
func (c *Client) do(ctx context.Context, method, fullURL string, body []byte) (*http.Response, []byte, error) {
	for attempt := 1; ; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("TrackingID", "webex-provisioner_"+uuid.NewString())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("%s %s: %w", method, fullURL, err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				c.log.Warn("rate limited, giving up",
					zap.String("method", method),
					zap.String("url", fullURL),
					zap.Int("attempts", attempt))
				return nil, nil, fmt.Errorf("%s %s: %w", method, fullURL, ErrRateLimited)
			}
			wait := c.retryAfter(resp.Header.Get("Retry-After"))
			c.log.Debug("rate limited, retrying",
				zap.String("url", fullURL),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait))
			if err := sleep(ctx, wait); err != nil {
				return nil, nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, nil, newAPIError(method, fullURL, resp, data)
		}
		return resp, data, nil
	}
}

func (c *Client) retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return c.retryFallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func newAPIError(method, fullURL string, resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        fullURL,
		TrackingID: resp.Header.Get("TrackingID"),
	}
	var payload struct {
		Message    string `json:"message"`
		TrackingID string `json:"trackingId"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
		if payload.TrackingID != "" {
			apiErr.TrackingID = payload.TrackingID
		}
	}
	return apiErr
}

// Pages fetches path page by page, following Link rel="next" headers.
// A response without an "items" array is yielded as a single one-record page and
// ends the sequence. Iteration stops after the first error.
func (c *Client) Pages(ctx context.Context, path string, params url.Values) iter.Seq2[[]json.RawMessage, error] {
	return func(yield func([]json.RawMessage, error) bool) {
		next := c.resolve(path, params)
		for next != "" {
			resp, data, err := c.do(ctx, http.MethodGet, next, nil)
			if err != nil {
				yield(nil, err)
				return
			}

			var envelope struct {
				Items []json.RawMessage `json:"items"`
			}
			if err := json.Unmarshal(data, &envelope); err != nil || envelope.Items == nil {
				if !json.Valid(data) {
					yield(nil, fmt.Errorf("GET %s: invalid JSON response", next))
					return
				}
				yield([]json.RawMessage{json.RawMessage(data)}, nil)
				return
			}

			if !yield(envelope.Items, nil) {
				return
			}
			next = nextLink(resp.Header.Values("Link"))
		}
	}
}

// Get collects every page of path. progress, when set, is called with the running
// item count after each page.
func (c *Client) Get(ctx context.Context, path string, params url.Values, progress func(count int)) ([]json.RawMessage, error) {
	results := []json.RawMessage{}
	for page, err := range c.Pages(ctx, path, params) {
		if err != nil {
			return nil, err
		}
		results = append(results, page...)
		if progress != nil {
			progress(len(results))
		}
	}
	return results, nil
}

// Post sends body as JSON and decodes the response into out when out is not nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out when out is not nil.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPut, path, body, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	fullURL := c.resolve(path, nil)
	_, data, err := c.do(ctx, method, fullURL, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, fullURL, err)
	}
	return nil
}

// nextLink extracts the rel="next" target from Link header values such as
// `<https://…?cursor=2>; rel="next", <https://…>; rel="prev"`.
func nextLink(values []string) string {
	for _, header := range values {
		for _, link := range strings.Split(header, ",") {
			parts := strings.Split(link, ";")
			if len(parts) < 2 {
				continue
			}
			target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
			for _, p := range parts[1:] {
				if strings.TrimSpace(p) == `rel="next"` {
					return target
				}
			}
		}
	}
	return ""
}
