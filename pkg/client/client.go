// Package client provides the request orchestrator: a fetch primitive
// that layers automatic status-driven retry and bounded manual redirect
// following on top of an external HTTP transport.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/httpwalk/httpwalk/pkg/backoff"
	"github.com/httpwalk/httpwalk/pkg/retryafter"
)

// Prometheus metrics for orchestrated requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpwalk_requests_total",
		Help: "Total orchestrated requests by final status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "httpwalk_request_duration_seconds",
		Help:    "Wall time of one orchestrated fetch including redirects and retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpwalk_retries_total",
		Help: "Retry attempts by triggering status",
	}, []string{"status"})

	retryWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "httpwalk_retry_wait_seconds",
		Help:    "Wait duration before each retry",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	retriesExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpwalk_retries_exhausted_total",
		Help: "Requests returned after the retry budget ran out",
	})

	redirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpwalk_redirects_total",
		Help: "Manually followed redirects by status",
	}, []string{"status"})
)

// Config holds the client configuration.
type Config struct {
	// UserAgent is merged into requests that do not set their own
	// User-Agent header. Required; the client never derives one from
	// the host runtime.
	UserAgent string

	// Timeout bounds one whole Fetch call including every redirect and
	// retry; the derived deadline stays armed until the returned body is
	// closed. Ignored when the caller's context already carries a
	// deadline; zero disables the derived deadline.
	Timeout time.Duration

	Retry    RetryConfig
	Redirect RedirectConfig

	// Transport overrides the default HTTP clients. A custom transport
	// must honor manual redirect mode itself and return 3xx responses
	// instead of following them.
	Transport Doer

	// Observer receives redirect and retry notifications. Optional.
	Observer Observer
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 4,
			Delay:       backoff.Range{Min: 1 * time.Second, Max: 10 * time.Second},
		},
		Redirect: RedirectConfig{
			MaxRedirects: 10,
			Delay:        backoff.Fixed(0),
		},
	}
}

// Client is the request orchestrator. It holds no network resources
// between calls; the retryable status set is its only state mutable
// after construction.
type Client struct {
	config       Config
	retryStatus  *StatusSet
	followClient Doer
	manualClient Doer
	logger       zerolog.Logger
}

// New validates the configuration and creates a client. Policy range
// violations fail here, before any network call.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("%w: user-agent is required", ErrInvalidConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %v", ErrInvalidConfig, cfg.Timeout)
	}
	if cfg.Retry.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: negative retry attempts %d", ErrInvalidConfig, cfg.Retry.MaxAttempts)
	}
	if err := cfg.Retry.Delay.Validate(); err != nil {
		return nil, fmt.Errorf("%w: retry delay: %v", ErrInvalidConfig, err)
	}
	if cfg.Redirect.MaxRedirects < Unlimited {
		return nil, fmt.Errorf("%w: invalid redirect maximum %d", ErrInvalidConfig, cfg.Redirect.MaxRedirects)
	}
	if err := cfg.Redirect.Delay.Validate(); err != nil {
		return nil, fmt.Errorf("%w: redirect delay: %v", ErrInvalidConfig, err)
	}

	return &Client{
		config:       cfg,
		retryStatus:  NewStatusSet(DefaultRetryStatuses...),
		followClient: &http.Client{},
		manualClient: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: log.With().Str("component", "client").Logger(),
	}, nil
}

// RetryStatuses returns the mutable retryable status-code set. See
// StatusSet for the single-writer discipline it assumes.
func (c *Client) RetryStatuses() *StatusSet {
	return c.retryStatus
}

// Observer returns the configured observer, which may be nil.
func (c *Client) Observer() Observer {
	return c.config.Observer
}

// Fetch performs one logical request: send, then per response either
// terminate, follow a delayed manual redirect, or perform a delayed
// retry. The final response is returned unmodified; transport failures
// and cancellation propagate uncaught.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts *RequestOptions) (*http.Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	// One deadline budget covers every redirect and retry of this call.
	// The derived context must outlive this call so the returned body
	// stays readable; releasing it is tied to Body.Close instead.
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok && c.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	}

	resp, err := c.run(ctx, method, target, opts)
	if cancel != nil {
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	}
	return resp, err
}

// run drives the send/decide loop under a settled context.
func (c *Client) run(ctx context.Context, method string, target *url.URL, opts *RequestOptions) (*http.Response, error) {
	header := http.Header{}
	for k, vs := range opts.Header {
		header[k] = append([]string(nil), vs...)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", c.config.UserAgent)
	}

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	transport := c.transport(opts.Redirect)

	var redirects, retries int
	for {
		req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader(opts.Body))
		if err != nil {
			return nil, err
		}
		req.Header = header.Clone()

		c.logger.Debug().
			Str("url", target.String()).
			Str("method", method).
			Int("retries", retries).
			Int("redirects", redirects).
			Msg("Sending request")

		// Transport failures and cancellation propagate untouched.
		resp, err := transport.Do(req)
		if err != nil {
			return nil, err
		}

		// 304 terminates immediately, never retried or redirected.
		if resp.StatusCode == http.StatusNotModified {
			return c.terminate(resp), nil
		}

		if opts.Redirect == RedirectManual && isRedirectStatus(resp.StatusCode) {
			next, ok := redirectTarget(target, resp)
			if !ok || !withinBudget(redirects, c.config.Redirect.MaxRedirects) {
				// Missing or unparsable Location, or an exhausted
				// budget: the redirect response is returned as-is.
				return c.terminate(resp), nil
			}
			redirects++

			wait, err := backoff.Resolve(backoff.Options{Range: c.config.Redirect.Delay})
			if err != nil {
				discard(resp)
				return nil, err
			}
			if obs := c.config.Observer; obs != nil {
				obs.OnRedirect(Event{
					Count:      redirects,
					MaxCount:   c.config.Redirect.MaxRedirects,
					Wait:       wait,
					URL:        next.String(),
					StatusCode: resp.StatusCode,
					StatusText: resp.Status,
				})
			}
			redirectsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
			c.logger.Debug().
				Str("url", next.String()).
				Int("status", resp.StatusCode).
				Int("redirect", redirects).
				Dur("wait", wait).
				Msg("Following redirect after wait")

			discard(resp)
			if err := backoff.Wait(ctx, wait); err != nil {
				return nil, err
			}
			target = next
			continue
		}

		if isSuccess(resp.StatusCode) || !c.retryStatus.Contains(resp.StatusCode) {
			return c.terminate(resp), nil
		}
		if retries >= c.config.Retry.MaxAttempts {
			retriesExhaustedTotal.Inc()
			c.logger.Warn().
				Str("url", target.String()).
				Int("status", resp.StatusCode).
				Int("max_attempts", c.config.Retry.MaxAttempts).
				Msg("Retry attempts exhausted")
			return c.terminate(resp), nil
		}
		retries++

		wait, err := c.retryWait(resp, retries)
		if err != nil {
			discard(resp)
			return nil, err
		}
		if obs := c.config.Observer; obs != nil {
			obs.OnRetry(Event{
				Count:      retries,
				MaxCount:   c.config.Retry.MaxAttempts,
				Wait:       wait,
				URL:        target.String(),
				StatusCode: resp.StatusCode,
				StatusText: resp.Status,
			})
		}
		retriesTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		retryWaitSeconds.Observe(wait.Seconds())
		c.logger.Debug().
			Str("url", target.String()).
			Int("status", resp.StatusCode).
			Int("attempt", retries).
			Dur("wait", wait).
			Msg("Retrying request after wait")

		discard(resp)
		if err := backoff.Wait(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Get performs an orchestrated GET request with default options.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.Fetch(ctx, rawURL, nil)
}

// retryWait prefers the server's Retry-After header; absent or
// malformed headers fall back to the incrementing backoff policy with
// identical timing.
func (c *Client) retryWait(resp *http.Response, attempt int) (time.Duration, error) {
	if ra, err := retryafter.FromResponse(resp); err == nil {
		return ra.RemainingDuration(), nil
	}
	return backoff.Resolve(backoff.Options{
		Range:     c.config.Retry.Delay,
		Increment: true,
		Attempt:   attempt,
		Attempts:  c.config.Retry.MaxAttempts,
	})
}

func (c *Client) terminate(resp *http.Response) *http.Response {
	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	return resp
}

func (c *Client) transport(mode RedirectMode) Doer {
	if c.config.Transport != nil {
		return c.config.Transport
	}
	if mode == RedirectManual {
		return c.manualClient
	}
	return c.followClient
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// isRedirectStatus reports whether code is one of the fixed statuses
// intercepted in manual redirect mode.
func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func redirectTarget(current *url.URL, resp *http.Response) (*url.URL, bool) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, false
	}
	next, err := current.Parse(loc)
	if err != nil {
		return nil, false
	}
	return next, true
}

func withinBudget(used, max int) bool {
	return max == Unlimited || used < max
}

func bodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return bytes.NewReader(body)
}

func discard(resp *http.Response) {
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

// cancelBody keeps a derived timeout context alive until the caller
// closes the response body, so the body remains readable after Fetch
// returns.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
