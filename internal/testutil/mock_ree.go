// Package testutil provides testing utilities for the REE data client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockREEResponse defines the behavior for a mock apidatos response.
type MockREEResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockREE is a configurable mock apidatos server for testing.
//
// Handlers are looked up by geo_ids query value first, then by path, so
// one endpoint can answer differently per community.
type MockREE struct {
	server      *httptest.Server
	mu          sync.RWMutex
	handlers    map[string]http.HandlerFunc
	geoHandlers map[int]http.HandlerFunc

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
}

// NewMockREE creates a new mock apidatos server.
func NewMockREE() *MockREE {
	mock := &MockREE{
		handlers:    make(map[string]http.HandlerFunc),
		geoHandlers: make(map[int]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		if handler, ok := mock.lookup(r); ok {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

func (m *MockREE) lookup(r *http.Request) (http.HandlerFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if geo, err := strconv.Atoi(r.URL.Query().Get("geo_ids")); err == nil {
		if h, ok := m.geoHandlers[geo]; ok {
			return h, true
		}
	}
	h, ok := m.handlers[r.URL.Path]
	return h, ok
}

// URL returns the mock server URL.
func (m *MockREE) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockREE) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockREE) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockREE) SetResponse(path string, resp MockREEResponse) {
	m.SetHandler(path, responder(resp))
}

// SetGeoResponse configures the response for requests with geo_ids=geoID.
func (m *MockREE) SetGeoResponse(geoID int, resp MockREEResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geoHandlers[geoID] = responder(resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockREE) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockREE) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

func responder(resp MockREEResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
	}
}

// defaultHandler answers with a single-series document whose value is the
// requested geo id, so tests can check slot ordering.
func (m *MockREE) defaultHandler(w http.ResponseWriter, r *http.Request) {
	geo, _ := strconv.Atoi(r.URL.Query().Get("geo_ids"))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(GenerationBody(SeriesFixture{
		Type:  "Demanda",
		Color: "#000",
		Title: "Demanda",
		Values: []ValueFixture{
			{Value: float64(geo), Percentage: 1, Datetime: "2023-01-01T00:00:00.000+01:00"},
		},
	})))
}

// ValueFixture is one value-record in a fixture document.
type ValueFixture struct {
	Value      float64
	Percentage float64
	Datetime   string
}

// SeriesFixture is one included element in a fixture document.
type SeriesFixture struct {
	Type   string
	Color  string
	Title  string
	Values []ValueFixture
}

// GenerationBody renders an apidatos-style document with one included
// element per series.
func GenerationBody(series ...SeriesFixture) string {
	body := `{"data":{"type":"Estructura generación"},"included":[`
	for i, s := range series {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"type":%q,"id":"%d","groupId":null,"attributes":{"title":%q,"color":%q,"last-update":"2024-01-01T00:00:00.000+01:00","values":[`,
			s.Type, i, s.Title, s.Color)
		for j, v := range s.Values {
			if j > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"value":%g,"percentage":%g,"datetime":%q}`, v.Value, v.Percentage, v.Datetime)
		}
		body += `]}}`
	}
	return body + `]}`
}

// NewHealthyResponse creates a standard 200 OK response.
func NewHealthyResponse(data string) MockREEResponse {
	return MockREEResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates the 404 apidatos returns for unknown widgets.
func NewNotFoundResponse() MockREEResponse {
	return MockREEResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"errors":[{"code":404,"status":"404","title":"Not Found"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockREEResponse {
	return MockREEResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockREEResponse {
	return MockREEResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
