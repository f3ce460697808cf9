package client

import (
	"net/http"

	"github.com/httpwalk/httpwalk/pkg/backoff"
)

// Unlimited disables the redirect budget.
const Unlimited = -1

// Doer is the external transport collaborator.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// RedirectMode selects who follows 3xx responses.
type RedirectMode string

const (
	// RedirectFollow lets the transport follow redirects on its own.
	RedirectFollow RedirectMode = "follow"

	// RedirectManual returns 3xx responses to the orchestrator, which
	// applies the redirect policy itself.
	RedirectManual RedirectMode = "manual"
)

// RequestOptions configure one orchestrated fetch. The zero value is a
// plain GET with transport-followed redirects.
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Header is sent on every attempt; a User-Agent entry suppresses
	// the client default.
	Header http.Header

	// Body is reissued verbatim on every redirect and retry attempt.
	Body []byte

	// Redirect defaults to RedirectFollow.
	Redirect RedirectMode
}

// RetryConfig bounds status-driven retries.
type RetryConfig struct {
	// MaxAttempts is the number of retries after the initial request.
	MaxAttempts int

	// Delay is the incrementing backoff range between retries; a
	// Retry-After response header takes precedence when present.
	Delay backoff.Range
}

// RedirectConfig bounds manual redirect following.
type RedirectConfig struct {
	// MaxRedirects caps followed redirects; Unlimited removes the cap
	// and zero returns the first redirect response untouched.
	MaxRedirects int

	// Delay is the non-incrementing wait before each redirect hop.
	Delay backoff.Range
}
