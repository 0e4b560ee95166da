// Package testutil provides a mock Semantic Scholar Graph API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path under which the mock serves the Graph API.
const APIPrefix = "/graph/v1/"

// Paging bounds enforced by the mock, mirroring the live API.
const (
	maxLimit     = 100
	rangeCeiling = 9999
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is one request received by the mock.
type RecordedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
}

// Offset returns the parsed offset query parameter, or -1.
func (r RecordedRequest) Offset() int {
	return intParam(r.Query, "offset", -1)
}

// Limit returns the parsed limit query parameter, or -1.
func (r RecordedRequest) Limit() int {
	return intParam(r.Query, "limit", -1)
}

// CorpusOptions shapes a paged corpus endpoint.
type CorpusOptions struct {
	// Search adds a total to every page.
	Search bool

	// Total overrides the reported total when non-zero.
	Total int

	// MaxPage caps the page size the server actually returns.
	MaxPage int
}

// MockScholar is a configurable mock Graph API server.
type MockScholar struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockScholar starts a new mock server.
func NewMockScholar() *MockScholar {
	mock := &MockScholar{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.EscapedPath(), APIPrefix)

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Path:   path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Paper/Author not found"})
			return
		}
		handler(w, r)
	}))

	return mock
}

// URL returns the API base URL, ending with a slash.
func (m *MockScholar) URL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockScholar) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockScholar) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for an API-relative path such as
// "paper/search".
func (m *MockScholar) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockScholar) SetResponse(path string, resp MockResponse) {
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

// SetSequence answers successive requests to path with the given
// responses, repeating the last one once exhausted.
func (m *MockScholar) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(next, len(responses)-1)]
		next++
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// SetCorpus serves items as a paginated list at path. It validates limit
// and offset the way the live API does and answers 400 otherwise.
func (m *MockScholar) SetCorpus(path string, items []any, opts CorpusOptions) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offset := intParam(q, "offset", 0)
		limit := intParam(q, "limit", maxLimit)

		if limit < 1 || limit > maxLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("Unacceptable query params: [limit=%d]", limit),
			})
			return
		}
		if offset < 0 || offset+limit > rangeCeiling {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "offset + limit must be < 10000",
			})
			return
		}

		size := limit
		if opts.MaxPage > 0 {
			size = min(size, opts.MaxPage)
		}
		start := min(offset, len(items))
		end := min(offset+size, len(items))

		page := map[string]any{
			"offset": offset,
			"data":   items[start:end],
		}
		if end < len(items) {
			page["next"] = end
		}
		if opts.Search {
			total := len(items)
			if opts.Total > 0 {
				total = opts.Total
			}
			page["total"] = total
		}
		writeJSON(w, http.StatusOK, page)
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockScholar) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestsTo returns the recorded requests for one path.
func (m *MockScholar) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockScholar) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// PaperCorpus returns n paper objects with ids p0000, p0001, ...
func PaperCorpus(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{
			"paperId":       fmt.Sprintf("p%04d", i),
			"title":         fmt.Sprintf("Paper %d", i),
			"year":          2000 + i%25,
			"citationCount": i,
			"authors": []map[string]any{
				{"authorId": fmt.Sprintf("a%04d", i), "name": fmt.Sprintf("Author %d", i)},
			},
		}
	}
	return items
}

// AuthorCorpus returns n author objects with ids a0000, a0001, ...
func AuthorCorpus(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{
			"authorId":   fmt.Sprintf("a%04d", i),
			"name":       fmt.Sprintf("Author %d", i),
			"paperCount": i,
			"hIndex":     i % 40,
		}
	}
	return items
}

// CitationCorpus returns n citation edges pointing at papers c0000, ...
func CitationCorpus(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{
			"contexts":      []string{fmt.Sprintf("as shown in [%d]", i)},
			"intents":       []string{"background"},
			"isInfluential": i%2 == 0,
			"citingPaper": map[string]any{
				"paperId": fmt.Sprintf("c%04d", i),
				"title":   fmt.Sprintf("Citing paper %d", i),
			},
		}
	}
	return items
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	headers := map[string]string{"Content-Type": "application/json"}
	if retryAfter != "" {
		headers["Retry-After"] = retryAfter
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Too Many Requests. Please wait and try again or apply for a key for higher rate limits."}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal Server Error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewNotFoundResponse creates a 404 response in the API's error format.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Paper with id not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intParam(q url.Values, key string, fallback int) int {
	v := q.Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
