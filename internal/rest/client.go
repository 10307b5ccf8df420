// Package rest implements the HTTP resource collaborator: a generic JSON
// client per resource type with cookie-based session auth and CSRF header
// injection.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"talentcore/internal/cache"
	"talentcore/pkg/domain"
)

const (
	requestTimeout = 30 * time.Second
	csrfHeader     = "X-CSRF-Token"
)

// Client is a JSON REST client for one resource type. It satisfies the
// coordinator's collaborator contract: server-confirmed records on success,
// *domain.APIError on failure.
type Client[R domain.Record[R]] struct {
	http      *http.Client
	baseURL   string
	resource  string
	csrfToken string
}

// ClientOption customizes a resource client.
type ClientOption[R domain.Record[R]] func(*Client[R])

// WithHTTPClient overrides the underlying HTTP client, for tests.
func WithHTTPClient[R domain.Record[R]](hc *http.Client) ClientOption[R] {
	return func(c *Client[R]) { c.http = hc }
}

// WithCSRFToken sets the token injected on every mutating request. Fetching
// the token is the session layer's concern, not this client's.
func WithCSRFToken[R domain.Record[R]](token string) ClientOption[R] {
	return func(c *Client[R]) { c.csrfToken = token }
}

// NewClient constructs a client for the named resource collection (for
// example "candidates") rooted at baseURL. Session cookies persist across
// requests through a shared jar.
func NewClient[R domain.Record[R]](baseURL, resource string, opts ...ClientOption[R]) *Client[R] {
	jar, _ := cookiejar.New(nil)
	c := &Client[R]{
		http: &http.Client{
			Timeout: requestTimeout,
			Jar:     jar,
		},
		baseURL:  baseURL,
		resource: resource,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create posts the record and returns the server-confirmed copy.
func (c *Client[R]) Create(ctx context.Context, record R) (R, error) {
	var out R
	err := c.do(ctx, http.MethodPost, c.collectionURL(nil), record, &out)
	return out, err
}

// Update patches the record and returns the server-confirmed copy.
func (c *Client[R]) Update(ctx context.Context, id string, patch domain.Patch) (R, error) {
	var out R
	err := c.do(ctx, http.MethodPatch, c.recordURL(id), patch, &out)
	return out, err
}

// Delete removes the record.
func (c *Client[R]) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.recordURL(id), nil, nil)
}

// List fetches the filtered collection for one scope.
func (c *Client[R]) List(ctx context.Context, scopeID string, filters cache.Filters) (domain.Collection[R], error) {
	q := url.Values{}
	q.Set("workspace_id", scopeID)
	if filters.Search != "" {
		q.Set("q", filters.Search)
	}
	if filters.Stage != "" {
		q.Set("stage", filters.Stage)
	}
	if filters.Page > 0 {
		q.Set("page", strconv.Itoa(filters.Page))
	}
	if filters.PageSize > 0 {
		q.Set("size", strconv.Itoa(filters.PageSize))
	}
	if filters.Sort != "" {
		q.Set("sort", filters.Sort)
	}
	var out domain.Collection[R]
	err := c.do(ctx, http.MethodGet, c.collectionURL(q), nil, &out)
	return out, err
}

func (c *Client[R]) collectionURL(q url.Values) string {
	u := fmt.Sprintf("%s/api/%s", c.baseURL, c.resource)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client[R]) recordURL(id string) string {
	return fmt.Sprintf("%s/api/%s/%s", c.baseURL, c.resource, url.PathEscape(id))
}

func (c *Client[R]) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" && method != http.MethodGet {
		req.Header.Set(csrfHeader, c.csrfToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures carry status 0 and a generic message.
		return &domain.APIError{Message: "Network error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

// decodeError maps a non-2xx response to *domain.APIError, preferring the
// structured server message when the body carries one.
func decodeError(resp *http.Response) error {
	apiErr := &domain.APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(raw) > 0 {
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
