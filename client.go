package fixflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kailas-cloud/fixflow/internal/version"
)

// operation pairs a metric/log name with the fixed message reported for a
// non-2xx response.
type operation struct {
	name    string
	failure string
}

var (
	opCreateIssue = operation{"create_issue", "failed to create issue"}
	opSearch      = operation{"search_issues", "failed to search issues"}
	opGetIssue    = operation{"get_issue", "failed to fetch issue"}
	opTrending    = operation{"get_trending", "failed to fetch trending issues"}
	opFeedback    = operation{"send_feedback", "failed to send feedback"}
	opHealth      = operation{"health", "health check failed"}
)

// Client talks to the FixFlow knowledge-base API. It is safe for concurrent
// use; every call owns its own deadline.
type Client struct {
	base *url.URL
	cfg  clientConfig
	obs  *observer
}

// New creates a Client. Configuration comes only from opts; the environment
// is never consulted.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{
		baseURL:       DefaultBaseURL,
		timeout:       DefaultTimeout,
		searchLimit:   DefaultSearchLimit,
		trendingLimit: DefaultTrendingLimit,
		userAgent:     "fixflow-go/" + version.Version,
	}
	for _, o := range opts {
		o.apply(&cfg)
	}

	base, err := parseBaseURL(cfg.baseURL)
	if err != nil {
		return nil, err
	}
	if cfg.timeout <= 0 {
		return nil, fmt.Errorf("fixflow: timeout must be positive, got %v", cfg.timeout)
	}
	if cfg.searchLimit < 1 || cfg.searchLimit > MaxSearchLimit {
		return nil, fmt.Errorf("fixflow: search limit must be between 1 and %d, got %d", MaxSearchLimit, cfg.searchLimit)
	}
	if cfg.trendingLimit < 1 {
		return nil, fmt.Errorf("fixflow: trending limit must be positive, got %d", cfg.trendingLimit)
	}
	if cfg.doer == nil {
		cfg.doer = &http.Client{}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{base: base, cfg: cfg, obs: obs}, nil
}

// parseBaseURL validates the API root and guarantees a trailing slash so
// relative operation paths resolve beneath it.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("fixflow: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fixflow: base url must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("fixflow: base url has no host: %q", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		if u.RawPath != "" {
			u.RawPath += "/"
		}
	}
	return u, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base.String() }

// CreateIssue submits a new issue and returns it as stored by the backend.
func (c *Client) CreateIssue(ctx context.Context, issue IssueCreate) (Issue, error) {
	if err := issue.Validate(); err != nil {
		return Issue{}, err
	}
	u, err := c.endpoint("issues", nil)
	if err != nil {
		return Issue{}, err
	}

	var created Issue
	if err := c.do(ctx, opCreateIssue, http.MethodPost, u, issue.normalized(), &created); err != nil {
		return Issue{}, err
	}
	return created, nil
}

// SearchIssues runs a natural-language search bounded by the configured
// search limit (5 unless overridden).
func (c *Client) SearchIssues(ctx context.Context, query string) ([]SearchResult, error) {
	return c.Search(ctx, SearchQuery{Query: query})
}

// Search runs a search with optional metadata filters.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if q.Limit == 0 {
		q.Limit = c.cfg.searchLimit
	}
	if q.Limit < 1 || q.Limit > MaxSearchLimit {
		return nil, fmt.Errorf("fixflow: search limit must be between 1 and %d, got %d", MaxSearchLimit, q.Limit)
	}
	u, err := c.endpoint("search", nil)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	if err := c.do(ctx, opSearch, http.MethodPost, u, q, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// GetIssue fetches one issue. A missing issue matches ErrNotFound.
func (c *Client) GetIssue(ctx context.Context, id string) (Issue, error) {
	u, err := c.issueEndpoint(id, "", nil)
	if err != nil {
		return Issue{}, err
	}

	var issue Issue
	if err := c.do(ctx, opGetIssue, http.MethodGet, u, nil, &issue); err != nil {
		return Issue{}, err
	}
	return issue, nil
}

// GetTrending returns the backend-ranked trending feed. limit <= 0 uses the
// configured trending limit.
func (c *Client) GetTrending(ctx context.Context, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = c.cfg.trendingLimit
	}
	q, err := queryParam(nil, "limit", limit)
	if err != nil {
		return nil, err
	}
	u, err := c.endpoint("issues/trending", q)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	if err := c.do(ctx, opTrending, http.MethodGet, u, nil, &issues); err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []Issue{}
	}
	return issues, nil
}

// SendFeedback records a view or useful signal. The request has no body and
// the response body is ignored.
func (c *Client) SendFeedback(ctx context.Context, id string, kind FeedbackKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFeedbackKind, kind)
	}
	q, err := queryParam(nil, "type", string(kind))
	if err != nil {
		return err
	}
	u, err := c.issueEndpoint(id, "feedback", q)
	if err != nil {
		return err
	}
	return c.do(ctx, opFeedback, http.MethodPost, u, nil, nil)
}

// Health calls the backend's root health endpoint, which sits outside the
// API prefix.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	u, err := c.base.Parse("/")
	if err != nil {
		return HealthStatus{}, fmt.Errorf("fixflow: build health url: %w", err)
	}

	var hs HealthStatus
	if err := c.do(ctx, opHealth, http.MethodGet, u, nil, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

func (c *Client) issueEndpoint(id, sub string, query url.Values) (*url.URL, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	// Dot segments survive path escaping and would be resolved away.
	if id == "." || id == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	seg, err := pathParam("id", id)
	if err != nil {
		return nil, err
	}
	p := "issues/" + seg
	if sub != "" {
		p += "/" + sub
	}
	return c.endpoint(p, query)
}

// isTransportError reports whether err came from the network layer.
func isTransportError(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue)
}
