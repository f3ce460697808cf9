package client

import (
	"net/http"
	"sort"
)

// DefaultRetryStatuses is the initial retryable status-code set of a
// new client.
var DefaultRetryStatuses = []int{
	http.StatusRequestTimeout,        // 408
	http.StatusTooManyRequests,       // 429
	http.StatusInternalServerError,   // 500
	http.StatusBadGateway,            // 502
	http.StatusServiceUnavailable,    // 503
	http.StatusGatewayTimeout,        // 504
	http.StatusVariantAlsoNegotiates, // 506
	http.StatusInsufficientStorage,   // 507
	http.StatusLoopDetected,          // 508
}

// StatusSet is the mutable set of status codes a client retries. It is
// owned by exactly one Client and assumes single-writer discipline:
// concurrent Fetch calls may read it, but mutations must not race with
// in-flight requests. Callers needing concurrent mutation must
// synchronize externally.
type StatusSet struct {
	codes map[int]struct{}
}

// NewStatusSet builds a set from the given codes.
func NewStatusSet(codes ...int) *StatusSet {
	s := &StatusSet{codes: make(map[int]struct{}, len(codes))}
	for _, c := range codes {
		s.codes[c] = struct{}{}
	}
	return s
}

// Add marks a status code as retryable.
func (s *StatusSet) Add(code int) {
	s.codes[code] = struct{}{}
}

// Remove unmarks a status code.
func (s *StatusSet) Remove(code int) {
	delete(s.codes, code)
}

// Contains reports whether code is retryable.
func (s *StatusSet) Contains(code int) bool {
	_, ok := s.codes[code]
	return ok
}

// Statuses returns the current codes in ascending order.
func (s *StatusSet) Statuses() []int {
	out := make([]int, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
