package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	drepo "ChartCrime/internal/domain/repository"
	"ChartCrime/internal/service/ratelimit"
	xhttp "ChartCrime/pkg/http"
	"ChartCrime/pkg/logger"
	"ChartCrime/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.stlouisfed.org/fred"

	// pageSize is the largest page the list endpoints serve.
	pageSize = 1000

	minRateLimitBackoff = 5 * time.Second
	serverBackoffStep   = 2 * time.Second
)

var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrAPI              = errors.New("api error")
)

// Stats counts API traffic for the whole client lifetime.
type Stats struct {
	Attempts  int64
	Successes int64
	Retries   int64
}

// Client is a throttled, retrying client for the FRED JSON API.
type Client struct {
	http       *xhttp.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
	interval   time.Duration
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	maxBackoff time.Duration
	metrics    drepo.Metrics
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	attempts  atomic.Int64
	successes atomic.Int64
	retries   atomic.Int64
}

type config struct {
	baseURL         string
	interval        time.Duration
	maxRetries      int
	maxBackoff      time.Duration
	timeout         time.Duration
	breakerFailures uint32
	breakerCooldown time.Duration
	transport       http.RoundTripper
	metrics         drepo.Metrics
	log             *logger.Logger
}

// Option configures Client.
type Option func(*config)

func WithBaseURL(u string) Option { return func(c *config) { c.baseURL = strings.TrimRight(u, "/") } }

// WithMinInterval sets the minimum spacing between request starts.
func WithMinInterval(d time.Duration) Option { return func(c *config) { c.interval = d } }

func WithMaxRetries(n int) Option { return func(c *config) { c.maxRetries = n } }

func WithMaxBackoff(d time.Duration) Option { return func(c *config) { c.maxBackoff = d } }

func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithBreaker opens the circuit after failures consecutive transport or 5xx
// errors and keeps it open for cooldown.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(c *config) {
		if failures > 0 {
			c.breakerFailures = uint32(failures)
		}
		c.breakerCooldown = cooldown
	}
}

func WithTransport(rt http.RoundTripper) Option { return func(c *config) { c.transport = rt } }

func WithMetrics(m drepo.Metrics) Option { return func(c *config) { c.metrics = m } }

func WithLogger(l *logger.Logger) Option { return func(c *config) { c.log = l } }

// New creates a client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	cfg := config{
		baseURL:         DefaultBaseURL,
		interval:        time.Second,
		maxRetries:      6,
		maxBackoff:      60 * time.Second,
		timeout:         30 * time.Second,
		breakerFailures: 3,
		breakerCooldown: 10 * time.Second,
		metrics:         metrics.Nop{},
		log:             logger.NewNop(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}

	httpOpts := []xhttp.ClientOption{xhttp.WithTimeout(cfg.timeout)}
	if cfg.transport != nil {
		httpOpts = append(httpOpts, xhttp.WithTransport(cfg.transport))
	}

	c := &Client{
		http:       xhttp.NewClient(httpOpts...),
		baseURL:    cfg.baseURL,
		apiKey:     apiKey,
		limiter:    ratelimit.New(cfg.interval),
		interval:   cfg.interval,
		maxRetries: cfg.maxRetries,
		maxBackoff: cfg.maxBackoff,
		metrics:    cfg.metrics,
		log:        cfg.log.With("component", "fred"),
		sleep:      sleepCtx,
	}
	failures := cfg.breakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "fred",
		Timeout: cfg.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// only transport failures and 5xx count against the circuit
		IsSuccessful: func(err error) bool {
			return err == nil || !isServerFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return c
}

// Stats returns a snapshot of the request counters.
func (c *Client) Stats() Stats {
	return Stats{
		Attempts:  c.attempts.Load(),
		Successes: c.successes.Load(),
		Retries:   c.retries.Load(),
	}
}

// apiError is the error envelope the API returns, sometimes with HTTP 200.
type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e *apiError) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code    json.RawMessage `json:"error_code"`
		Message string          `json:"error_message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Message = raw.Message
	if len(raw.Code) == 0 {
		return nil
	}
	// the code is a number on most endpoints and a string on a few
	e.Code, _ = strconv.Atoi(strings.Trim(string(raw.Code), `"`))
	return nil
}

type retryKind int

const (
	noRetry retryKind = iota
	retryRateLimited
	retryServer
)

// get issues GET base/endpoint with auth params, retrying per the API's
// throttling rules, and decodes the JSON body into dest.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	q := make(url.Values, len(params)+2)
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, "fred"); err != nil {
			return fmt.Errorf("%s: %w", endpoint, err)
		}
		c.attempts.Add(1)
		start := time.Now()

		body, err := c.breaker.Execute(func() (interface{}, error) {
			var raw []byte
			err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
				Method:      xhttp.MethodGet,
				URL:         c.baseURL + "/" + endpoint,
				QueryParams: q,
			}, &raw)
			return raw, err
		})
		c.metrics.RecordLatency("fred."+endpoint, time.Since(start).Seconds())

		kind, err := c.classify(ctx, body, err)
		switch {
		case err == nil:
			c.successes.Add(1)
			c.metrics.RecordRequest(endpoint, "ok")
			if err := json.Unmarshal(body.([]byte), dest); err != nil {
				return fmt.Errorf("%s: decode json: %w", endpoint, err)
			}
			return nil
		case kind == noRetry:
			c.metrics.RecordRequest(endpoint, "error")
			return fmt.Errorf("%s: %w", endpoint, err)
		}

		lastErr = err
		wait, reason := c.backoff(kind, attempt)
		c.retries.Add(1)
		c.metrics.RecordRequest(endpoint, reason)
		c.metrics.RecordRetry(endpoint, reason)
		c.log.Warn("fred request retry",
			logger.String("endpoint", endpoint),
			logger.String("reason", reason),
			logger.Int("attempt", attempt+1),
			logger.Int("max_retries", c.maxRetries),
			logger.Duration("wait_ms", wait),
			logger.Error(err),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return fmt.Errorf("%s: %w", endpoint, err)
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w: %w", endpoint, c.maxRetries, ErrRetriesExhausted, lastErr)
}

// classify maps one attempt's outcome to a retry decision.
func (c *Client) classify(ctx context.Context, body interface{}, err error) (retryKind, error) {
	if err != nil {
		if ctx.Err() != nil {
			return noRetry, ctx.Err()
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			var ae apiError
			_ = json.Unmarshal([]byte(se.Body), &ae)
			switch {
			case se.Code == http.StatusTooManyRequests || ae.Code == http.StatusTooManyRequests:
				return retryRateLimited, err
			case se.Code >= 500 && se.Code < 600:
				return retryServer, err
			case ae.Message != "":
				return noRetry, fmt.Errorf("%w %d: %s", ErrAPI, se.Code, ae.Message)
			default:
				return noRetry, err
			}
		}
		// transport failure or open circuit
		return retryServer, err
	}

	raw, _ := body.([]byte)
	var ae apiError
	if jerr := json.Unmarshal(raw, &ae); jerr == nil && ae.Code != 0 {
		if ae.Code == http.StatusTooManyRequests {
			return retryRateLimited, fmt.Errorf("%w %d: %s", ErrAPI, ae.Code, ae.Message)
		}
		return noRetry, fmt.Errorf("%w %d: %s", ErrAPI, ae.Code, ae.Message)
	}
	return noRetry, nil
}

func (c *Client) backoff(kind retryKind, attempt int) (time.Duration, string) {
	if kind == retryRateLimited {
		wait := time.Duration(float64(c.interval) * math.Pow(2, float64(attempt+1)))
		if wait < minRateLimitBackoff {
			wait = minRateLimitBackoff
		}
		return minDuration(wait, c.maxBackoff), "rate_limited"
	}
	return minDuration(serverBackoffStep*time.Duration(attempt+1), c.maxBackoff), "server_error"
}

func isServerFailure(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
