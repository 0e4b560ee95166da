package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/scholars-client/internal/config"
	"github.com/Sternrassler/scholars-client/internal/testutil"
	"github.com/Sternrassler/scholars-client/pkg/client"
	"github.com/Sternrassler/scholars-client/pkg/graph"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, mock *testutil.MockScholar) http.Handler {
	t.Helper()
	return newKeyedTestRouter(t, mock, "")
}

func newKeyedTestRouter(t *testing.T, mock *testutil.MockScholar, apiKey string) http.Handler {
	t.Helper()

	cfg := client.DefaultConfig("scholars-proxy-test/1.0")
	cfg.BaseURL = mock.URL()
	cfg.APIKey = apiKey
	cfg.RateLimit = 0
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		BackoffMultiplier: 2,
	}

	api, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })

	return newRouter(&proxy{
		api: api,
		gateway: config.GatewayConfig{
			DefaultResults:    100,
			MaxResults:        1000,
			MaxIDs:            3,
			FanOutConcurrency: 2,
			RequestTimeout:    10 * time.Second,
		},
		logger: zerolog.Nop(),
	})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadyEndpoint_WithoutRedis(t *testing.T) {
	rec := httptest.NewRecorder()
	readyHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadyEndpoint_RedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	rec := httptest.NewRecorder()
	readyHandler(rdb)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()

	rec := get(t, newTestRouter(t, mock), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scholars_cache_misses_total")
}

func TestSearchPapers(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("paper/search", testutil.PaperCorpus(250), testutil.CorpusOptions{Search: true})

	rec := get(t, newTestRouter(t, mock), "/v1/papers/search?query=graph+neural&limit=150&fields=title,year")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[listResponse[graph.BasePaper]](t, rec)
	assert.Equal(t, 150, resp.Count)
	require.Len(t, resp.Data, 150)
	assert.Equal(t, "p0000", resp.Data[0].PaperID)
	assert.Equal(t, "p0149", resp.Data[149].PaperID)
	require.NotNil(t, resp.Total)
	assert.Equal(t, uint64(250), *resp.Total)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 0, reqs[0].Offset())
	assert.Equal(t, 100, reqs[0].Limit())
	assert.Equal(t, 100, reqs[1].Offset())
	assert.Equal(t, 50, reqs[1].Limit())
	assert.Equal(t, "graph neural", reqs[0].Query.Get("query"))
	assert.Equal(t, "title,year", reqs[0].Query.Get("fields"))
}

func TestSearchPapers_OffsetNearCeiling(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("paper/search", testutil.PaperCorpus(20), testutil.CorpusOptions{Search: true, Total: 50000})

	rec := get(t, newTestRouter(t, mock), "/v1/papers/search?query=x&offset=9950&limit=100")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[listResponse[graph.BasePaper]](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Data)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 9950, reqs[0].Offset())
	assert.Equal(t, 49, reqs[0].Limit())
}

func TestSearchPapers_BadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"limit not a number", "/v1/papers/search?query=x&limit=abc"},
		{"zero limit", "/v1/papers/search?query=x&limit=0"},
		{"limit above gateway max", "/v1/papers/search?query=x&limit=5000"},
		{"negative offset", "/v1/papers/search?query=x&offset=-1"},
		{"offset at ceiling", "/v1/papers/search?query=x&offset=9999"},
		{"unknown field", "/v1/papers/search?query=x&fields=bogus"},
		{"field not on search", "/v1/papers/search?query=x&fields=citations"},
	}

	mock := testutil.NewMockScholar()
	defer mock.Close()
	router := newTestRouter(t, mock)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeBody[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}

	assert.Zero(t, mock.GetRequestCount())
}

func TestGetPaper_DOI(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetResponse("paper/DOI:10.1000/xyz", testutil.NewJSONResponse(`{"paperId":"p1","title":"Escaped"}`))

	rec := get(t, newTestRouter(t, mock), "/v1/papers/DOI:10.1000%2Fxyz?fields=title")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	paper := decodeBody[graph.FullPaper](t, rec)
	assert.Equal(t, "p1", paper.PaperID)
	assert.Equal(t, "Escaped", paper.Title)
}

func TestGetPaper_UpstreamNotFound(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()

	rec := get(t, newTestRouter(t, mock), "/v1/papers/missing")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, float64(http.StatusNotFound), body["upstream_status"])
	assert.NotEmpty(t, body["error"])
}

func TestGetAuthor_RewritesBarePapersField(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetResponse("author/a7", testutil.NewJSONResponse(
		`{"authorId":"a7","name":"Ada","papers":[{"paperId":"p1","title":"Notes"}]}`))

	rec := get(t, newTestRouter(t, mock), "/v1/authors/a7?fields=name,papers")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	author := decodeBody[graph.AuthorWithPapers](t, rec)
	assert.Equal(t, "Ada", author.Name)
	require.Len(t, author.Papers, 1)
	assert.Equal(t, "Notes", author.Papers[0].Title)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "name,papers.title", reqs[0].Query.Get("fields"))
}

func TestPaperCitations(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("paper/p1/citations", testutil.CitationCorpus(30), testutil.CorpusOptions{})

	rec := get(t, newTestRouter(t, mock), "/v1/papers/p1/citations?limit=25")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), `"total"`)

	resp := decodeBody[listResponse[graph.Citation]](t, rec)
	assert.Equal(t, 25, resp.Count)
	assert.Nil(t, resp.Total)
	require.NotNil(t, resp.Data[0].CitingPaper)
	assert.Equal(t, "c0000", resp.Data[0].CitingPaper.PaperID)
}

func TestPaperReferencesAndAuthors(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("paper/p1/references", testutil.CitationCorpus(4), testutil.CorpusOptions{})
	mock.SetCorpus("paper/p1/authors", testutil.AuthorCorpus(3), testutil.CorpusOptions{})
	router := newTestRouter(t, mock)

	rec := get(t, router, "/v1/papers/p1/references")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decodeBody[listResponse[graph.Reference]](t, rec).Count)

	rec = get(t, router, "/v1/papers/p1/authors?fields=name,hIndex")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	authors := decodeBody[listResponse[graph.AuthorWithPapers]](t, rec)
	assert.Equal(t, 3, authors.Count)
	assert.Equal(t, "a0002", authors.Data[2].AuthorID)
}

func TestSearchAuthors(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("author/search", testutil.AuthorCorpus(10), testutil.CorpusOptions{Search: true})

	rec := get(t, newTestRouter(t, mock), "/v1/authors/search?query=ada")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[listResponse[graph.AuthorWithPapers]](t, rec)
	assert.Equal(t, 10, resp.Count)
	require.NotNil(t, resp.Total)
	assert.Equal(t, uint64(10), *resp.Total)
}

func TestAuthorPapers_Stream(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("author/a1/papers", testutil.PaperCorpus(120), testutil.CorpusOptions{MaxPage: 50})

	rec := get(t, newTestRouter(t, mock), "/v1/authors/a1/papers?limit=110")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[listResponse[graph.PaperWithLinks]](t, rec)
	assert.Equal(t, 110, resp.Count)
	assert.Equal(t, "p0109", resp.Data[109].PaperID)
}

func TestAuthorPapers_UpstreamFailure(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetResponse("author/a2/papers", testutil.NewServerErrorResponse())

	rec := get(t, newTestRouter(t, mock), "/v1/authors/a2/papers")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAuthorsPapers_FanOut(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	mock.SetCorpus("author/a1/papers", testutil.PaperCorpus(3), testutil.CorpusOptions{})
	mock.SetCorpus("author/a2/papers", testutil.PaperCorpus(5), testutil.CorpusOptions{})

	rec := get(t, newTestRouter(t, mock), "/v1/authors/papers?ids=a1,%20a2,a3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[struct {
		Results []fanOutEntry `json:"results"`
	}](t, rec)
	require.Len(t, body.Results, 3)

	assert.Equal(t, "a1", body.Results[0].ID)
	assert.Equal(t, 3, body.Results[0].Count)
	assert.Empty(t, body.Results[0].Error)

	assert.Equal(t, "a2", body.Results[1].ID)
	assert.Equal(t, 5, body.Results[1].Count)

	assert.Equal(t, "a3", body.Results[2].ID)
	assert.Zero(t, body.Results[2].Count)
	assert.NotNil(t, body.Results[2].Data)
	assert.True(t, strings.Contains(body.Results[2].Error, "404"), body.Results[2].Error)
}

func TestAuthorsPapers_BadIDs(t *testing.T) {
	mock := testutil.NewMockScholar()
	defer mock.Close()
	router := newTestRouter(t, mock)

	for _, target := range []string{
		"/v1/authors/papers",
		"/v1/authors/papers?ids=,,",
		"/v1/authors/papers?ids=a,b,c,d",
	} {
		rec := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Zero(t, mock.GetRequestCount())
}

func TestPathIDs_CannotLeaveAPIRoot(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"escaped traversal", "/v1/papers/..%2F..%2F..%2Fadmin%2Fsecret"},
		{"escaped dot-dot", "/v1/papers/%2E%2E/citations"},
		{"single dot", "/v1/papers/%2E/references"},
		{"author traversal", "/v1/authors/..%2F..%2Fx/papers"},
		{"empty segment", "/v1/authors/a%2F%2Fb"},
		{"fan-out traversal", "/v1/authors/papers?ids=a1,..%2Fadmin"},
	}

	mock := testutil.NewMockScholar()
	defer mock.Close()
	router := newKeyedTestRouter(t, mock, "secret-key")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decodeBody[map[string]string](t, rec)
			assert.Contains(t, body["error"], "invalid")
		})
	}

	assert.Zero(t, mock.GetRequestCount(), "no request may reach the API")
}
