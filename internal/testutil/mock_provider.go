// Package testutil provides testing utilities for the paging client and provider.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// MockResponse defines a canned response for the images endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockProvider is a configurable image provider for testing.
// By default it pages over its records like the real provider.
type MockProvider struct {
	server *httptest.Server

	mu        sync.Mutex
	records   []paging.Record
	queued    []MockResponse
	requests  int
	lastQuery url.Values
	lastAgent string
}

// NewMockProvider starts a mock provider serving n generated image records.
func NewMockProvider(n int) *MockProvider {
	m := &MockProvider{records: GenerateRecords(n)}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// GenerateRecords returns n records named image00.jpg, image01.jpg, ...
func GenerateRecords(n int) []paging.Record {
	out := make([]paging.Record, n)
	for i := range out {
		name := fmt.Sprintf("image%02d.jpg", i)
		out[i] = paging.Record{
			ID:          fmt.Sprintf("img-%02d", i),
			Path:        "/pictures/" + name,
			DisplayName: name,
			Size:        int64(1024 * (i + 1)),
		}
	}
	return out
}

// URL returns the mock server URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// Enqueue makes the next requests return the given responses, in order,
// before falling back to normal paging.
func (m *MockProvider) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, responses...)
}

// SetRecords replaces the served collection.
func (m *MockProvider) SetRecords(records []paging.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

// RequestCount returns the number of requests received.
func (m *MockProvider) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// LastQuery returns the query of the most recent request.
func (m *MockProvider) LastQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockProvider) LastUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAgent
}

func (m *MockProvider) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests++
	m.lastQuery = r.URL.Query()
	m.lastAgent = r.UserAgent()
	var canned *MockResponse
	if len(m.queued) > 0 {
		canned = &m.queued[0]
		m.queued = m.queued[1:]
	}
	records := m.records
	m.mu.Unlock()

	if canned != nil {
		if canned.Delay > 0 {
			time.Sleep(canned.Delay)
		}
		for key, value := range canned.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(canned.StatusCode)
		if canned.Body != "" {
			w.Write([]byte(canned.Body))
		}
		return
	}

	if r.URL.Path != "/images" {
		http.NotFound(w, r)
		return
	}

	offset, err1 := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err2 := strconv.Atoi(r.URL.Query().Get("limit"))
	if err1 != nil || err2 != nil || offset < 0 || limit <= 0 {
		http.Error(w, "invalid offset or limit", http.StatusBadRequest)
		return
	}

	start := min(offset, len(records))
	end := start + min(limit, len(records)-start)
	page := paging.FetchResult{Records: records[start:end], TotalCount: len(records)}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Total-Count", strconv.Itoa(len(records)))
	json.NewEncoder(w).Encode(page)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "1"},
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "invalid offset or limit"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewMalformedResponse creates a 200 OK response whose body is not a page.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"records": "not-a-list"`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
