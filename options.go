package fixflow

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fixflow/internal/deadline"
)

// Defaults applied by New.
const (
	DefaultBaseURL       = "http://localhost:8000/api/v1"
	DefaultTimeout       = 10 * time.Second
	DefaultSearchLimit   = 5
	DefaultTrendingLimit = 10

	// MaxSearchLimit is the largest limit the backend accepts.
	MaxSearchLimit = 20
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	baseURL   string
	timeout   time.Duration
	doer      Doer
	userAgent string

	searchLimit   int
	trendingLimit int

	logger     *zap.Logger
	metricsReg prometheus.Registerer

	clock deadline.Clock
}

// WithBaseURL sets the API root, e.g. "https://kb.example.com/api/v1".
// Defaults to DefaultBaseURL.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithTimeout sets the per-request deadline. Defaults to 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient replaces the transport. The client's own deadline still
// applies on top of whatever timeout the Doer enforces.
func WithHTTPClient(d Doer) Option {
	return optionFunc(func(c *clientConfig) {
		c.doer = d
	})
}

// WithSearchLimit sets how many results SearchIssues asks for (1..20).
// Defaults to 5.
func WithSearchLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.searchLimit = n
	})
}

// WithTrendingLimit sets the size used by GetTrending when called with a
// non-positive limit. Defaults to 10.
func WithTrendingLimit(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.trendingLimit = n
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// WithLogger enables structured logging of client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// withClock swaps the deadline clock. Tests only.
func withClock(clk deadline.Clock) Option {
	return optionFunc(func(c *clientConfig) {
		c.clock = clk
	})
}
