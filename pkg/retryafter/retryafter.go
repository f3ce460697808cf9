// Package retryafter resolves the Retry-After header into an absolute
// instant and derives the remaining wait time from it.
//
// The header carries either delta-seconds ("120") or an HTTP-date
// ("Wed, 21 Oct 2015 07:28:00 GMT"). Remaining-time derivations are
// recomputed against the clock on every call, never cached.
package retryafter

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

// FormatError is returned when a value parses as neither delta-seconds
// nor an HTTP-date.
type FormatError struct {
	Value string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("retryafter: cannot parse %q as delta-seconds or HTTP-date", e.Value)
}

// RetryAfter holds the absolute instant a server asked clients to wait
// until.
type RetryAfter struct {
	date time.Time
}

// FromSeconds interprets sec as delta-seconds from now.
func FromSeconds(sec float64) *RetryAfter {
	return &RetryAfter{date: timeNow().Add(time.Duration(sec * float64(time.Second)))}
}

// FromTime wraps an absolute instant.
func FromTime(t time.Time) *RetryAfter {
	return &RetryAfter{date: t}
}

// Parse resolves a raw header value: a numeric string counts as
// delta-seconds from now, anything else must be an HTTP-date. Numeric
// values must be finite and non-negative; NaN, infinities, and
// negatives fail like any other malformed value.
func Parse(value string) (*RetryAfter, error) {
	v := strings.TrimSpace(value)
	if sec, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
			return nil, &FormatError{Value: value}
		}
		return FromSeconds(sec), nil
	}
	if t, err := http.ParseTime(v); err == nil {
		return FromTime(t), nil
	}
	return nil, &FormatError{Value: value}
}

// FromHeader reads the Retry-After field of a header map. An absent
// field fails the same way a malformed one does; callers fall back to
// their computed backoff either way.
func FromHeader(h http.Header) (*RetryAfter, error) {
	return Parse(h.Get("Retry-After"))
}

// FromResponse reads the Retry-After header of a response.
func FromResponse(resp *http.Response) (*RetryAfter, error) {
	return FromHeader(resp.Header)
}

// Clone copies an existing resolver, keeping its instant.
func (r *RetryAfter) Clone() *RetryAfter {
	return &RetryAfter{date: r.date}
}

// Date returns the absolute instant.
func (r *RetryAfter) Date() time.Time {
	return r.date
}

// RemainingDuration returns how long is left until the instant,
// clamped at zero, computed against the clock at call time.
func (r *RetryAfter) RemainingDuration() time.Duration {
	if d := r.date.Sub(timeNow()); d > 0 {
		return d
	}
	return 0
}

// RemainingMilliseconds is RemainingDuration in whole milliseconds.
func (r *RetryAfter) RemainingMilliseconds() int64 {
	return r.RemainingDuration().Milliseconds()
}

// RemainingSeconds is the remaining time rounded up to whole seconds.
func (r *RetryAfter) RemainingSeconds() int {
	ms := r.RemainingMilliseconds()
	return int((ms + 999) / 1000)
}
