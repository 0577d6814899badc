package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the upstream scholarly-paper API base URL.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is 1 request per second, the unauthenticated quota.
	DefaultRateLimit = 1.0

	// DefaultPaperFields are the fields requested for paper lookups.
	DefaultPaperFields = "title,abstract,venue,year,citationCount,fieldsOfStudy,authors,citationStyles"

	// DefaultRelationFields are the fields requested for citation/reference edges.
	DefaultRelationFields = "title,venue,year,citationCount,fieldsOfStudy,authors"

	// relationPageSize is the upstream page size used when walking the
	// citation graph.
	relationPageSize = 100

	// relationFetchCap bounds how many upstream records a single relations
	// request will walk before filtering.
	relationFetchCap = 1000
)

// Client is a rate-limited, circuit-broken HTTP client for the upstream
// scholarly-paper API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit sets the outbound requests-per-second limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a new scholarly-paper API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    DefaultBaseURL,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "scholar-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs one rate-limited GET through the circuit breaker and decodes
// the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
		}
		defer resp.Body.Close()

		if err := checkHTTPErrors(resp); err != nil {
			return nil, err
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return nil
}

// SearchPapers searches for papers by keyword relevance.
func (c *Client) SearchPapers(ctx context.Context, keyword string, offset, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 20
	}

	query := url.Values{}
	query.Set("query", keyword)
	query.Set("fields", DefaultPaperFields)
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var out SearchResponse
	if err := c.get(ctx, "/paper/search", query, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []Paper{}
	}
	return &out, nil
}

// GetPaper fetches a paper by its identifier.
func (c *Client) GetPaper(ctx context.Context, paperID string) (*Paper, error) {
	query := url.Values{}
	query.Set("fields", DefaultPaperFields)

	var paper Paper
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID), query, &paper); err != nil {
		return nil, err
	}
	if paper.PaperID == "" {
		return nil, ErrNotFound
	}
	return &paper, nil
}

// citationsPage fetches one upstream page of papers citing paperID.
func (c *Client) citationsPage(ctx context.Context, paperID string, offset, limit int) (*relationPage, error) {
	query := url.Values{}
	query.Set("fields", DefaultRelationFields)
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var page relationPage
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID)+"/citations", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// referencesPage fetches one upstream page of papers cited by paperID.
func (c *Client) referencesPage(ctx context.Context, paperID string, offset, limit int) (*relationPage, error) {
	query := url.Values{}
	query.Set("fields", DefaultRelationFields)
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var page relationPage
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID)+"/references", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
