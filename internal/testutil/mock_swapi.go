// Package testutil provides testing utilities for the SWAPI loader.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSWAPI is a configurable mock SWAPI server for testing.
// Unknown paths answer 404 with {"detail":"Not found"} like the real API.
type MockSWAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requestCount int
	pathCounts   map[string]int
	lastHeader   http.Header
}

// NewMockSWAPI creates a new mock SWAPI server.
func NewMockSWAPI() *MockSWAPI {
	mock := &MockSWAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeJSON(w, http.StatusNotFound, `{"detail":"Not found"}`)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSWAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root, the equivalent of https://swapi.dev/api.
func (m *MockSWAPI) BaseURL() string {
	return m.server.URL + "/api"
}

// Ref returns the absolute URL of a resource, e.g. Ref("films", 1).
func (m *MockSWAPI) Ref(kind string, id int) string {
	return fmt.Sprintf("%s/%s/%d/", m.BaseURL(), kind, id)
}

// Close shuts down the mock server.
func (m *MockSWAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSWAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSWAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockSWAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetPerson serves doc as /api/people/{id}/.
func (m *MockSWAPI) SetPerson(id int, doc any) {
	m.SetResponse(fmt.Sprintf("/api/people/%d/", id), NewJSONResponse(doc))
}

// SetResource serves doc as /api/{kind}/{id}/.
func (m *MockSWAPI) SetResource(kind string, id int, doc any) {
	m.SetResponse(fmt.Sprintf("/api/%s/%d/", kind, id), NewJSONResponse(doc))
}

// RequestCount returns the number of requests made to the server.
func (m *MockSWAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockSWAPI) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockSWAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// PersonDoc returns a complete people document named name, with the given
// references already filled in.
func PersonDoc(name, homeworld string, films ...string) map[string]any {
	if films == nil {
		films = []string{}
	}
	return map[string]any{
		"name":       name,
		"height":     "172",
		"mass":       "77",
		"hair_color": "blond",
		"skin_color": "fair",
		"eye_color":  "blue",
		"birth_year": "19BBY",
		"gender":     "male",
		"homeworld":  homeworld,
		"films":      films,
		"species":    []string{},
		"vehicles":   []string{},
		"starships":  []string{},
		"created":    "2014-12-09T13:50:51.644000Z",
		"edited":     "2014-12-20T21:17:56.891000Z",
		"url":        "https://swapi.dev/api/people/1/",
	}
}

// NewJSONResponse creates a 200 OK response with doc encoded as JSON.
func NewJSONResponse(doc any) MockResponse {
	body, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock body: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewNotFoundResponse creates the upstream 404 document.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"detail":"Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail":"Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail":"Request was throttled."}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  "1",
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
