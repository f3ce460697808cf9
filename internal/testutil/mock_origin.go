// Package testutil provides testing utilities for the httpwalk client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of a mocked endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockOrigin is a configurable origin server for testing the
// orchestrator and paginator against scripted status sequences,
// redirects, and Link chains.
type MockOrigin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockOrigin creates a started mock origin. Unconfigured paths
// answer 200 "ok".
func NewMockOrigin() *MockOrigin {
	mock := &MockOrigin{
		handlers:   make(map[string]http.HandlerFunc),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOrigin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOrigin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// Requests returns how many requests hit the given path.
func (m *MockOrigin) Requests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOrigin) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockOrigin) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		fmt.Fprint(w, resp.Body)
	})
}

// ScriptStatuses makes the nth request to path answer the nth status
// code; the last code repeats once the script runs out.
func (m *MockOrigin) ScriptStatuses(path string, codes ...int) {
	var mu sync.Mutex
	served := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		idx := served
		served++
		mu.Unlock()
		if idx >= len(codes) {
			idx = len(codes) - 1
		}
		w.WriteHeader(codes[idx])
		fmt.Fprintf(w, "attempt %d", idx+1)
	})
}

// SetRedirect makes path answer a redirect to location.
func (m *MockOrigin) SetRedirect(path, location string, code int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", location)
		w.WriteHeader(code)
	})
}

// SetLinkChain wires the given paths into a rel="next" chain: each
// page links to its successor, the last page carries no Link header.
func (m *MockOrigin) SetLinkChain(paths ...string) {
	for i, path := range paths {
		headers := map[string]string{}
		if i+1 < len(paths) {
			headers["Link"] = fmt.Sprintf("<%s>; rel=\"next\"", paths[i+1])
		}
		m.SetResponse(path, MockResponse{
			StatusCode: http.StatusOK,
			Body:       fmt.Sprintf("page %d", i+1),
			Headers:    headers,
		})
	}
}
