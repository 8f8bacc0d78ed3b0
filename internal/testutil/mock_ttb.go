// Package testutil provides testing utilities for the timetable proxy.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is what the mock upstream saw for one call.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// MockTTB is a configurable mock timetable API server for testing.
type MockTTB struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requests []RecordedRequest
}

// NewMockTTB creates a new mock upstream server.
func NewMockTTB() *MockTTB {
	mock := &MockTTB{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no handler for " + r.URL.Path))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTTB) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTTB) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockTTB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific upstream path (e.g. "/ttb/getPageableCourses").
func (m *MockTTB) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockTTB) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
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

// GetRequestCount returns the number of requests made to the server.
func (m *MockTTB) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns a copy of every recorded request.
func (m *MockTTB) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or false when none was made.
func (m *MockTTB) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// NewXMLResponse creates a 200 OK response with an XML body.
func NewXMLResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/xml;charset=UTF-8",
		},
	}
}

// NewErrorResponse creates an error response with a plain-text body.
func NewErrorResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "text/plain",
		},
	}
}

// SampleTitlesXML is a trimmed title search payload.
const SampleTitlesXML = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<payload><codesAndTitles><code>CSC108H1</code><name>Introduction to Computer Programming</name></codesAndTitles>` +
	`<codesAndTitles><code>CSC148H1</code><name>Introduction to Computer Science</name></codesAndTitles></payload>`

// SampleCoursesXML is a trimmed course detail payload with two courses.
// The leading junk mirrors what the upstream sometimes prepends.
const SampleCoursesXML = `)]}',` + "\n" + `<?xml version="1.0" encoding="UTF-8"?>
<payload>
  <pageableCourse>
    <courses>
      <courses>
        <code>CSC108H1</code>
        <sections>
          <sections>
            <name>LEC0201</name>
            <currentEnrolment>180</currentEnrolment>
            <maxEnrolment>200</maxEnrolment>
          </sections>
          <sections>
            <name>LEC0101</name>
            <currentEnrolment>200</currentEnrolment>
            <maxEnrolment>200</maxEnrolment>
          </sections>
        </sections>
      </courses>
      <courses>
        <code>CSC108H1</code>
        <sections>
          <sections>
            <name>TUT0101</name>
            <currentEnrolment>25</currentEnrolment>
            <maxEnrolment>30</maxEnrolment>
          </sections>
        </sections>
      </courses>
    </courses>
  </pageableCourse>
</payload>`
