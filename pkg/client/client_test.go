package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/httpwalk/httpwalk/internal/testutil"
	"github.com/httpwalk/httpwalk/pkg/backoff"
)

// recordingObserver captures observer events for assertions.
type recordingObserver struct {
	redirects []Event
	retries   []Event
	paginates []Event
}

func (r *recordingObserver) OnRedirect(e Event) { r.redirects = append(r.redirects, e) }
func (r *recordingObserver) OnRetry(e Event)    { r.retries = append(r.retries, e) }
func (r *recordingObserver) OnPaginate(e Event) { r.paginates = append(r.paginates, e) }

// newTestClient builds a client with millisecond delays so retry tests
// stay fast.
func newTestClient(t *testing.T, obs Observer) *Client {
	t.Helper()

	cfg := DefaultConfig("httpwalk-test/1.0")
	cfg.Timeout = 5 * time.Second
	cfg.Retry = RetryConfig{MaxAttempts: 4, Delay: backoff.Fixed(time.Millisecond)}
	cfg.Redirect = RedirectConfig{MaxRedirects: 10, Delay: backoff.Fixed(0)}
	cfg.Observer = obs

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:        "empty user agent",
			mutate:      func(c *Config) { c.UserAgent = "" },
			expectError: true,
		},
		{
			name:        "negative timeout",
			mutate:      func(c *Config) { c.Timeout = -time.Second },
			expectError: true,
		},
		{
			name:        "negative retry attempts",
			mutate:      func(c *Config) { c.Retry.MaxAttempts = -1 },
			expectError: true,
		},
		{
			name: "retry delay min above max",
			mutate: func(c *Config) {
				c.Retry.Delay = backoff.Range{Min: 10 * time.Second, Max: time.Second}
			},
			expectError: true,
		},
		{
			name:        "redirect maximum below unlimited",
			mutate:      func(c *Config) { c.Redirect.MaxRedirects = -2 },
			expectError: true,
		},
		{
			name: "negative redirect delay",
			mutate: func(c *Config) {
				c.Redirect.Delay = backoff.Range{Min: -time.Second, Max: 0}
			},
			expectError: true,
		},
		{
			name:   "unlimited redirects allowed",
			mutate: func(c *Config) { c.Redirect.MaxRedirects = Unlimited },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("TestApp/1.0.0")
			tt.mutate(&cfg)

			_, err := New(cfg)
			if tt.expectError {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("New = %v, want ErrInvalidConfig", err)
				}
			} else if err != nil {
				t.Errorf("New = %v, want nil", err)
			}
		})
	}
}

func TestFetchRetriesUntilSuccess(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.ScriptStatuses("/flaky", http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK)

	obs := &recordingObserver{}
	c := newTestClient(t, obs)

	resp, err := c.Get(context.Background(), mock.URL()+"/flaky")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := mock.Requests("/flaky"); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	if len(obs.retries) != 2 {
		t.Fatalf("retry events = %d, want 2", len(obs.retries))
	}
	if obs.retries[0].Count != 1 || obs.retries[1].Count != 2 {
		t.Errorf("retry counts = %d, %d, want 1, 2", obs.retries[0].Count, obs.retries[1].Count)
	}
	if obs.retries[0].StatusCode != http.StatusServiceUnavailable {
		t.Errorf("retry status = %d, want 503", obs.retries[0].StatusCode)
	}
}

func TestFetchRetryExhausted(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.ScriptStatuses("/down", http.StatusServiceUnavailable)

	c := newTestClient(t, nil)

	resp, err := c.Get(context.Background(), mock.URL()+"/down")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	// The exhausted response is returned as-is, not turned into an error.
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if got := mock.Requests("/down"); got != 5 {
		t.Errorf("requests = %d, want 5 (initial + 4 retries)", got)
	}
}

func TestFetchNonRetryableStatus(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.SetResponse("/missing", testutil.MockResponse{StatusCode: http.StatusNotFound})

	c := newTestClient(t, nil)

	resp, err := c.Get(context.Background(), mock.URL()+"/missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if got := mock.Requests("/missing"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchNotModifiedTerminates(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.SetResponse("/cached", testutil.MockResponse{StatusCode: http.StatusNotModified})

	c := newTestClient(t, nil)

	resp, err := c.Get(context.Background(), mock.URL()+"/cached")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("status = %d, want 304", resp.StatusCode)
	}
	if got := mock.Requests("/cached"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchHonorsRetryAfterHeader(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	served := 0
	mock.SetHandler("/limited", func(w http.ResponseWriter, r *http.Request) {
		served++
		if served == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	obs := &recordingObserver{}
	c := newTestClient(t, obs)

	resp, err := c.Get(context.Background(), mock.URL()+"/limited")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if len(obs.retries) != 1 {
		t.Fatalf("retry events = %d, want 1", len(obs.retries))
	}
	// Retry-After: 0 overrides the configured backoff delay.
	if obs.retries[0].Wait != 0 {
		t.Errorf("wait = %v, want 0 from Retry-After", obs.retries[0].Wait)
	}
}

func TestFetchManualRedirect(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.SetRedirect("/old", "/new", http.StatusMovedPermanently)

	obs := &recordingObserver{}
	c := newTestClient(t, obs)

	resp, err := c.Fetch(context.Background(), mock.URL()+"/old", &RequestOptions{Redirect: RedirectManual})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := mock.Requests("/old"); got != 1 {
		t.Errorf("requests to /old = %d, want 1", got)
	}
	if got := mock.Requests("/new"); got != 1 {
		t.Errorf("requests to /new = %d, want 1", got)
	}
	if len(obs.redirects) != 1 {
		t.Fatalf("redirect events = %d, want 1", len(obs.redirects))
	}
	if !strings.HasSuffix(obs.redirects[0].URL, "/new") {
		t.Errorf("redirect target = %q, want absolute /new URL", obs.redirects[0].URL)
	}
	if obs.redirects[0].StatusCode != http.StatusMovedPermanently {
		t.Errorf("redirect status = %d, want 301", obs.redirects[0].StatusCode)
	}
}

func TestFetchRedirectBudgetExhausted(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.SetRedirect("/hop1", "/hop2", http.StatusMovedPermanently)
	mock.SetRedirect("/hop2", "/hop3", http.StatusMovedPermanently)

	cfg := DefaultConfig("httpwalk-test/1.0")
	cfg.Redirect = RedirectConfig{MaxRedirects: 1, Delay: backoff.Fixed(0)}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Fetch(context.Background(), mock.URL()+"/hop1", &RequestOptions{Redirect: RedirectManual})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer resp.Body.Close()

	// The second redirect is returned unmodified once the budget is spent.
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("status = %d, want 301", resp.StatusCode)
	}
	if got := mock.Requests("/hop3"); got != 0 {
		t.Errorf("requests to /hop3 = %d, want 0", got)
	}
}

func TestFetchRedirectMissingLocation(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.SetResponse("/dangling", testutil.MockResponse{StatusCode: http.StatusFound})

	c := newTestClient(t, nil)

	resp, err := c.Fetch(context.Background(), mock.URL()+"/dangling", &RequestOptions{Redirect: RedirectManual})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302 returned as-is", resp.StatusCode)
	}
	if got := mock.Requests("/dangling"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchUserAgent(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	c := newTestClient(t, nil)

	resp, err := c.Get(context.Background(), mock.URL()+"/ua")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if got := mock.LastRequestHeader.Get("User-Agent"); got != "httpwalk-test/1.0" {
		t.Errorf("User-Agent = %q, want default merged in", got)
	}

	// A caller-supplied User-Agent wins over the default.
	header := http.Header{}
	header.Set("User-Agent", "custom/2.0")
	resp, err = c.Fetch(context.Background(), mock.URL()+"/ua", &RequestOptions{Header: header})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	resp.Body.Close()
	if got := mock.LastRequestHeader.Get("User-Agent"); got != "custom/2.0" {
		t.Errorf("User-Agent = %q, want caller value", got)
	}
}

func TestRetryStatusSetMutation(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.ScriptStatuses("/teapot", http.StatusTeapot, http.StatusOK)

	c := newTestClient(t, nil)

	// 418 is not retryable by default.
	resp, err := c.Get(context.Background(), mock.URL()+"/teapot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}

	mock.Reset()
	mock.ScriptStatuses("/teapot", http.StatusTeapot, http.StatusOK)
	c.RetryStatuses().Add(http.StatusTeapot)

	resp, err = c.Get(context.Background(), mock.URL()+"/teapot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status after Add = %d, want 200", resp.StatusCode)
	}

	// Removing 503 turns it into an ordinary terminal response.
	c.RetryStatuses().Remove(http.StatusServiceUnavailable)
	mock.ScriptStatuses("/down", http.StatusServiceUnavailable, http.StatusOK)
	resp, err = c.Get(context.Background(), mock.URL()+"/down")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status after Remove = %d, want 503", resp.StatusCode)
	}
	if got := mock.Requests("/down"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestFetchBodyReadableAfterReturn(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	// Large enough that the transport cannot buffer it all before
	// Fetch returns; the derived timeout context must stay alive
	// until the body is closed or reading fails mid-stream.
	payload := bytes.Repeat([]byte("httpwalk body "), 1<<20)
	mock.SetHandler("/large", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	c := newTestClient(t, nil)

	resp, err := c.Get(context.Background(), mock.URL()+"/large")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if cerr := resp.Body.Close(); cerr != nil {
		t.Errorf("Close: %v", cerr)
	}
	if err != nil {
		t.Fatalf("read body after return: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("read %d bytes, want %d", len(data), len(payload))
	}
}

func TestFetchDeadlineCancelsRetryWait(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()
	mock.SetResponse("/slow", testutil.MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Headers:    map[string]string{"Retry-After": "5"},
	})

	cfg := DefaultConfig("httpwalk-test/1.0")
	cfg.Timeout = 50 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The derived deadline covers the Retry-After wait as well.
	_, err = c.Get(context.Background(), mock.URL()+"/slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get = %v, want context.DeadlineExceeded", err)
	}
	if got := mock.Requests("/slow"); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}
