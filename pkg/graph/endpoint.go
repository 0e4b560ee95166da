package graph

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/scholars-client/pkg/client"
	"github.com/Sternrassler/scholars-client/pkg/pagination"
)

// Single is a single-value endpoint returning T.
type Single[T any, P Params] struct {
	path   string
	label  string
	params P
	err    error
}

// Method returns the HTTP method, always GET.
func (s *Single[T, P]) Method() string { return http.MethodGet }

// Path returns the request path relative to the API root.
func (s *Single[T, P]) Path() string { return s.path }

// Label returns the metrics label, free of request-specific ids.
func (s *Single[T, P]) Label() string { return s.label }

// Err returns the construction error, such as an invalid identifier.
func (s *Single[T, P]) Err() error { return s.err }

// Params returns the encoded query, or the construction error.
func (s *Single[T, P]) Params() (url.Values, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.params.Values(), nil
}

// Query performs the request and decodes the value.
func (s *Single[T, P]) Query(ctx context.Context, r client.Requester) (T, error) {
	return client.Query[T](ctx, r, s)
}

// QueryAsync performs the request in the background.
func (s *Single[T, P]) QueryAsync(ctx context.Context, r client.Requester) *client.Future[T] {
	return client.QueryAsync[T](ctx, r, s)
}

// List is a paginated endpoint whose pages hold T items.
//
// A List is immutable and may be used concurrently: Query sends the
// parameters as given, while Paged and Stream each work on their own copy.
type List[T any, P ListParams] struct {
	path   string
	label  string
	params P
	err    error
}

// Method returns the HTTP method, always GET.
func (l *List[T, P]) Method() string { return http.MethodGet }

// Path returns the request path relative to the API root.
func (l *List[T, P]) Path() string { return l.path }

// Label returns the metrics label, free of request-specific ids.
func (l *List[T, P]) Label() string { return l.label }

// Err returns the construction error, such as an invalid identifier.
// Every query and every page of an iteration fails with it.
func (l *List[T, P]) Err() error { return l.err }

// Params returns the encoded query of the first page, or the
// construction error.
func (l *List[T, P]) Params() (url.Values, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.params.Values(), nil
}

// Query fetches the single page described by the parameters.
func (l *List[T, P]) Query(ctx context.Context, r client.Requester) (pagination.Batch[T], error) {
	return client.Query[pagination.Batch[T]](ctx, r, l)
}

// QueryAsync fetches one page in the background.
func (l *List[T, P]) QueryAsync(ctx context.Context, r client.Requester) *client.Future[pagination.Batch[T]] {
	return client.QueryAsync[pagination.Batch[T]](ctx, r, l)
}

// Paged returns a blocking iterator starting at the parameters' page and
// stopping after results items.
func (l *List[T, P]) Paged(r client.Requester, results pagination.Results, opts ...pagination.Option) *pagination.Iterator[T] {
	return pagination.NewIterator[T](l.fetcher(r), results, l.options(opts)...)
}

// Stream starts a producer goroutine delivering the same items as Paged.
// Cancelling ctx or calling Close on the stream stops it.
func (l *List[T, P]) Stream(ctx context.Context, r client.Requester, results pagination.Results, opts ...pagination.Option) *pagination.Stream[T] {
	return pagination.NewStream[T](ctx, l.fetcher(r), results, l.options(opts)...)
}

func (l *List[T, P]) fetcher(r client.Requester) *pageFetcher[T] {
	return &pageFetcher[T]{
		ListParams: l.params.clone(),
		requester:  r,
		path:       l.path,
		label:      l.label,
		err:        l.err,
	}
}

func (l *List[T, P]) options(opts []pagination.Option) []pagination.Option {
	return append([]pagination.Option{pagination.WithLabel(l.label)}, opts...)
}

// pageFetcher drives one iteration. It owns a private copy of the
// parameters, which the engine advances page by page.
type pageFetcher[T any] struct {
	ListParams
	requester client.Requester
	path      string
	label     string
	err       error
}

func (f *pageFetcher[T]) Method() string { return http.MethodGet }
func (f *pageFetcher[T]) Path() string   { return f.path }
func (f *pageFetcher[T]) Label() string  { return f.label }

func (f *pageFetcher[T]) Params() (url.Values, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Values(), nil
}

func (f *pageFetcher[T]) Fetch(ctx context.Context) (pagination.Batch[T], error) {
	return client.Query[pagination.Batch[T]](ctx, f.requester, f)
}

// GetPaperSearch searches papers by plain-text query.
// Batches carry the total number of matches.
func GetPaperSearch(params *PaperSearchParams) *List[BasePaper, *PaperSearchParams] {
	if params == nil {
		params = &PaperSearchParams{}
	}
	return &List[BasePaper, *PaperSearchParams]{path: pathPaperSearch, label: "paper_search", params: params}
}

// GetPaper fetches the details of one paper.
func GetPaper(paperID string, params *PaperParams) *Single[FullPaper, *PaperParams] {
	if params == nil {
		params = &PaperParams{}
	}
	path, err := resourcePath(pathPaper, paperID, "")
	return &Single[FullPaper, *PaperParams]{
		path:   path,
		label:  "paper",
		params: params,
		err:    err,
	}
}

// GetPaperAuthors lists the authors of a paper.
func GetPaperAuthors(paperID string, params *PaperAuthorsParams) *List[AuthorWithPapers, *PaperAuthorsParams] {
	if params == nil {
		params = &PaperAuthorsParams{}
	}
	path, err := resourcePath(pathPaper, paperID, "authors")
	return &List[AuthorWithPapers, *PaperAuthorsParams]{
		path:   path,
		label:  "paper_authors",
		params: params,
		err:    err,
	}
}

// GetPaperCitations lists the papers citing a paper.
func GetPaperCitations(paperID string, params *PaperCitationsParams) *List[Citation, *PaperCitationsParams] {
	if params == nil {
		params = &PaperCitationsParams{}
	}
	path, err := resourcePath(pathPaper, paperID, "citations")
	return &List[Citation, *PaperCitationsParams]{
		path:   path,
		label:  "paper_citations",
		params: params,
		err:    err,
	}
}

// GetPaperReferences lists the papers a paper cites.
func GetPaperReferences(paperID string, params *PaperReferencesParams) *List[Reference, *PaperReferencesParams] {
	if params == nil {
		params = &PaperReferencesParams{}
	}
	path, err := resourcePath(pathPaper, paperID, "references")
	return &List[Reference, *PaperReferencesParams]{
		path:   path,
		label:  "paper_references",
		params: params,
		err:    err,
	}
}

// GetAuthorSearch searches authors by name.
// Batches carry the total number of matches.
func GetAuthorSearch(params *AuthorSearchParams) *List[AuthorWithPapers, *AuthorSearchParams] {
	if params == nil {
		params = &AuthorSearchParams{}
	}
	return &List[AuthorWithPapers, *AuthorSearchParams]{path: pathAuthorSearch, label: "author_search", params: params}
}

// GetAuthor fetches the details of one author.
func GetAuthor(authorID string, params *AuthorParams) *Single[AuthorWithPapers, *AuthorParams] {
	if params == nil {
		params = &AuthorParams{}
	}
	path, err := resourcePath(pathAuthor, authorID, "")
	return &Single[AuthorWithPapers, *AuthorParams]{
		path:   path,
		label:  "author",
		params: params,
		err:    err,
	}
}

// GetAuthorPapers lists the papers of an author.
func GetAuthorPapers(authorID string, params *AuthorPapersParams) *List[PaperWithLinks, *AuthorPapersParams] {
	if params == nil {
		params = &AuthorPapersParams{}
	}
	path, err := resourcePath(pathAuthor, authorID, "papers")
	return &List[PaperWithLinks, *AuthorPapersParams]{
		path:   path,
		label:  "author_papers",
		params: params,
		err:    err,
	}
}
