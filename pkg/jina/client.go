// Package jina provides a client for the Jina AI search API.
package jina

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-scout/internal/resilience"
)

// Client searches the web through Jina.
type Client interface {
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the parsed search API response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	site string
}

// WithSiteFilter restricts results to one domain.
func WithSiteFilter(domain string) SearchOption {
	return func(o *searchOpts) {
		o.site = domain
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithSearchBaseURL overrides the search endpoint.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		c.searchBaseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry sets the attempt budget and initial backoff for transient failures.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(c *httpClient) {
		c.policy = resilience.HTTPPolicy(maxAttempts, backoff)
	}
}

type httpClient struct {
	apiKey        string
	searchBaseURL string
	http          *http.Client
	policy        resilience.Policy[error]
}

// NewClient creates a search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		searchBaseURL: "https://s.jina.ai",
		http:          &http.Client{Timeout: 30 * time.Second},
		policy:        resilience.HTTPPolicy(3, time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.policy.OnRetry = resilience.RetryLogger("jina", "search")
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{}
	for _, opt := range opts {
		opt(so)
	}

	reqURL := c.searchBaseURL + "/" + url.PathEscape(query)
	if so.site != "" {
		reqURL += "?site=" + url.QueryEscape(so.site)
	}

	var (
		body   []byte
		status int
	)
	err := resilience.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return eris.Wrap(err, "jina: create search request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return resilience.NewTransientError(eris.Wrap(err, "jina: search request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "jina: read search response")
		}
		status = resp.StatusCode
		if resilience.IsTransientHTTPStatus(status) {
			return resilience.NewTransientError(eris.Errorf("jina: search status %d: %s", status, body), status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 422 means no results for the query.
	if status == http.StatusUnprocessableEntity {
		return &SearchResponse{Code: status}, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("jina: search unexpected status %d: %s", status, body)
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}
	return &out, nil
}
