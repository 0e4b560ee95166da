package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/scholars-client/internal/config"
	"github.com/Sternrassler/scholars-client/pkg/client"
	"github.com/Sternrassler/scholars-client/pkg/graph"
	"github.com/Sternrassler/scholars-client/pkg/metrics"
	"github.com/Sternrassler/scholars-client/pkg/pagination"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// proxy serves Graph API listings through the pagination engine.
type proxy struct {
	api     client.Requester
	redis   *redis.Client
	gateway config.GatewayConfig
	logger  zerolog.Logger
}

// listResponse is the body of every list route.
type listResponse[T any] struct {
	Total *uint64 `json:"total,omitempty"`
	Count int     `json:"count"`
	Data  []T     `json:"data"`
}

// fanOutEntry is one author's share of a fan-out response.
type fanOutEntry struct {
	ID    string                 `json:"id"`
	Count int                    `json:"count"`
	Data  []graph.PaperWithLinks `json:"data"`
	Error string                 `json:"error,omitempty"`
}

// badRequest marks errors caused by the caller's input.
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return &badRequest{err: fmt.Errorf(format, args...)}
}

func newRouter(p *proxy) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(p.requestLogger)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(p.redis))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(p.gateway.RequestTimeout))

		r.Get("/papers/search", p.searchPapers)
		r.Get("/papers/{id}", p.getPaper)
		r.Get("/papers/{id}/authors", p.paperAuthors)
		r.Get("/papers/{id}/citations", p.paperCitations)
		r.Get("/papers/{id}/references", p.paperReferences)

		r.Get("/authors/search", p.searchAuthors)
		r.Get("/authors/papers", p.authorsPapers)
		r.Get("/authors/{id}", p.getAuthor)
		r.Get("/authors/{id}/papers", p.authorPapers)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func (p *proxy) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		p.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func (p *proxy) searchPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, page, err := p.window(q)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewPaperSearchParams(q.Get("query"), page, fields(q)...)
	if err != nil {
		p.fail(w, err)
		return
	}
	collect(w, r, p, graph.GetPaperSearch(params).Paged(p.api, results))
}

func (p *proxy) searchAuthors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, page, err := p.window(q)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewAuthorSearchParams(q.Get("query"), page, fields(q)...)
	if err != nil {
		p.fail(w, err)
		return
	}
	collect(w, r, p, graph.GetAuthorSearch(params).Paged(p.api, results))
}

func (p *proxy) getPaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewPaperParams(fields(r.URL.Query())...)
	if err != nil {
		p.fail(w, err)
		return
	}
	paper, err := graph.GetPaper(id, params).Query(r.Context(), p.api)
	if err != nil {
		p.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

func (p *proxy) getAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewAuthorParams(fields(r.URL.Query())...)
	if err != nil {
		p.fail(w, err)
		return
	}
	author, err := graph.GetAuthor(id, params).Query(r.Context(), p.api)
	if err != nil {
		p.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

func (p *proxy) paperAuthors(w http.ResponseWriter, r *http.Request) {
	id, results, page, err := p.listing(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewPaperAuthorsParams(page, fields(r.URL.Query())...)
	if err != nil {
		p.fail(w, err)
		return
	}
	collect(w, r, p, graph.GetPaperAuthors(id, params).Paged(p.api, results))
}

func (p *proxy) paperCitations(w http.ResponseWriter, r *http.Request) {
	id, results, page, err := p.listing(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewPaperCitationsParams(page, fields(r.URL.Query())...)
	if err != nil {
		p.fail(w, err)
		return
	}
	collect(w, r, p, graph.GetPaperCitations(id, params).Paged(p.api, results))
}

func (p *proxy) paperReferences(w http.ResponseWriter, r *http.Request) {
	id, results, page, err := p.listing(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewPaperReferencesParams(page, fields(r.URL.Query())...)
	if err != nil {
		p.fail(w, err)
		return
	}
	collect(w, r, p, graph.GetPaperReferences(id, params).Paged(p.api, results))
}

// authorPapers drains a Stream and stops at the first page error.
func (p *proxy) authorPapers(w http.ResponseWriter, r *http.Request) {
	id, results, page, err := p.listing(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	params, err := graph.NewAuthorPapersParams(page, fields(r.URL.Query())...)
	if err != nil {
		p.fail(w, err)
		return
	}

	s := graph.GetAuthorPapers(id, params).Stream(r.Context(), p.api, results)
	defer s.Close()

	papers := []graph.PaperWithLinks{}
	for res := range s.Results() {
		if res.Err != nil {
			p.fail(w, res.Err)
			return
		}
		papers = append(papers, res.Item)
	}
	if err := r.Context().Err(); err != nil {
		p.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[graph.PaperWithLinks]{Count: len(papers), Data: papers})
}

// authorsPapers lists the papers of several authors concurrently.
func (p *proxy) authorsPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var ids []string
	for _, id := range strings.Split(q.Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			if err := graph.ValidateID(id); err != nil {
				p.fail(w, err)
				return
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		p.fail(w, invalid("ids is required"))
		return
	}
	if len(ids) > p.gateway.MaxIDs {
		p.fail(w, invalid("at most %d ids are accepted, got %d", p.gateway.MaxIDs, len(ids)))
		return
	}

	results, page, err := p.window(q)
	if err != nil {
		p.fail(w, err)
		return
	}

	jobs := make([]pagination.Job[graph.PaperWithLinks], 0, len(ids))
	for _, id := range ids {
		params, err := graph.NewAuthorPapersParams(page, fields(q)...)
		if err != nil {
			p.fail(w, err)
			return
		}
		jobs = append(jobs, pagination.Job[graph.PaperWithLinks]{
			Key:      id,
			Iterator: graph.GetAuthorPapers(id, params).Paged(p.api, results),
		})
	}

	cfg := pagination.DefaultFanOutConfig()
	cfg.MaxConcurrency = p.gateway.FanOutConcurrency

	entries := make([]fanOutEntry, 0, len(jobs))
	for _, res := range pagination.FanOut(r.Context(), cfg, jobs) {
		entry := fanOutEntry{ID: res.Key, Count: len(res.Items), Data: res.Items}
		if entry.Data == nil {
			entry.Data = []graph.PaperWithLinks{}
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": entries})
}

// collect drains it and writes the list response.
func collect[T any](w http.ResponseWriter, r *http.Request, p *proxy, it *pagination.Iterator[T]) {
	items, err := pagination.Collect(r.Context(), it)
	if err != nil {
		p.fail(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}

	resp := listResponse[T]{Count: len(items), Data: items}
	if total, ok := it.Total(); ok {
		resp.Total = &total
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p *proxy) listing(r *http.Request) (string, pagination.Results, pagination.Page, error) {
	id, err := pathID(r)
	if err != nil {
		return "", pagination.Results{}, pagination.Page{}, err
	}
	results, page, err := p.window(r.URL.Query())
	return id, results, page, err
}

// window reads limit and offset. limit caps the items returned and
// defaults to the gateway's DefaultResults.
func (p *proxy) window(q url.Values) (pagination.Results, pagination.Page, error) {
	n := p.gateway.DefaultResults
	if s := q.Get("limit"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil || v == 0 {
			return pagination.Results{}, pagination.Page{}, invalid("limit must be a positive integer")
		}
		if v > p.gateway.MaxResults {
			return pagination.Results{}, pagination.Page{}, invalid("limit must not exceed %d", p.gateway.MaxResults)
		}
		n = v
	}

	var offset uint64
	if s := q.Get("offset"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return pagination.Results{}, pagination.Page{}, invalid("offset must be a non-negative integer")
		}
		offset = v
	}

	page, err := pagination.NewPage(offset, min(n, pagination.LimitMax))
	var rangeErr *pagination.RangeBoundError
	if errors.As(err, &rangeErr) && rangeErr.HasAvailable() {
		page, err = pagination.NewPage(offset, rangeErr.Available)
	}
	if err != nil {
		return pagination.Results{}, pagination.Page{}, err
	}
	return pagination.Limit(n), page, nil
}

func pathID(r *http.Request) (string, error) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || strings.TrimSpace(id) == "" {
		return "", invalid("invalid id")
	}
	if err := graph.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

// fields splits the comma-separated fields parameter.
func fields(q url.Values) []graph.Field {
	var out []graph.Field
	for _, f := range strings.Split(q.Get("fields"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, graph.Field(f))
		}
	}
	return out
}

// fail maps err to a status code and writes a JSON error body.
func (p *proxy) fail(w http.ResponseWriter, err error) {
	var (
		bad     *badRequest
		respErr *client.ResponseError
	)

	switch {
	case errors.As(err, &bad),
		errors.Is(err, graph.ErrUnknownField),
		errors.Is(err, graph.ErrInvalidID),
		errors.Is(err, pagination.ErrRangeBound),
		errors.Is(err, pagination.ErrLimitBound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &respErr):
		p.logger.Warn().
			Int("status", respErr.StatusCode).
			Str("url", respErr.URL).
			Msg("Graph API error")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           respErr.Body.Text(),
			"upstream_status": respErr.StatusCode,
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream timed out")
	default:
		p.logger.Error().Err(err).Msg("Graph API request failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
