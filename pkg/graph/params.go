package graph

import (
	"net/url"
	"slices"
	"strings"

	"github.com/Sternrassler/scholars-client/pkg/pagination"
)

// Params is the query string of a single-value endpoint.
type Params interface {
	Values() url.Values
}

// ListParams is the query string of a paginated endpoint. The pagination
// engine advances its Page; clone gives the engine a private copy.
type ListParams interface {
	pagination.Paged
	Params
	clone() ListParams
}

// fieldsParam is the fields selection shared by every parameter type.
type fieldsParam struct {
	fields []string
}

func newFieldsParam(set FieldSet, fields []Field) (fieldsParam, error) {
	sel, err := selection(set, fields)
	if err != nil {
		return fieldsParam{}, err
	}
	return fieldsParam{fields: sel}, nil
}

// Fields returns the encoded selection.
func (p fieldsParam) Fields() []string {
	return slices.Clone(p.fields)
}

func (p fieldsParam) encode(v url.Values) {
	if len(p.fields) > 0 {
		v.Set("fields", strings.Join(p.fields, ","))
	}
}

// pagedParams adds the result window.
type pagedParams struct {
	pagination.Page
	fieldsParam
}

func (p *pagedParams) Values() url.Values {
	v := url.Values{}
	p.Page.Encode(v)
	p.fieldsParam.encode(v)
	return v
}

// searchParams adds the plain-text query.
type searchParams struct {
	pagedParams
	query string
}

// Query returns the trimmed search text.
func (p *searchParams) Query() string {
	return p.query
}

func (p *searchParams) Values() url.Values {
	v := p.pagedParams.Values()
	q := p.query
	if q == "" {
		// The API rejects an empty query parameter.
		q = " "
	}
	v.Set("query", q)
	return v
}

func newSearchParams(query string, page pagination.Page, set FieldSet, fields []Field) (searchParams, error) {
	fp, err := newFieldsParam(set, fields)
	if err != nil {
		return searchParams{}, err
	}
	return searchParams{
		pagedParams: pagedParams{Page: page, fieldsParam: fp},
		query:       strings.TrimSpace(query),
	}, nil
}

func newPagedParams(page pagination.Page, set FieldSet, fields []Field) (pagedParams, error) {
	fp, err := newFieldsParam(set, fields)
	if err != nil {
		return pagedParams{}, err
	}
	return pagedParams{Page: page, fieldsParam: fp}, nil
}

// PaperParams selects FullPaper fields for GetPaper.
type PaperParams struct {
	fieldsParam
}

// NewPaperParams validates fields against FullPaperFields.
func NewPaperParams(fields ...Field) (*PaperParams, error) {
	fp, err := newFieldsParam(FullPaperFields, fields)
	if err != nil {
		return nil, err
	}
	return &PaperParams{fp}, nil
}

func (p *PaperParams) Values() url.Values {
	v := url.Values{}
	p.encode(v)
	return v
}

// AuthorParams selects AuthorWithPapers fields for GetAuthor.
type AuthorParams struct {
	fieldsParam
}

// NewAuthorParams validates fields against AuthorWithPapersFields.
func NewAuthorParams(fields ...Field) (*AuthorParams, error) {
	fp, err := newFieldsParam(AuthorWithPapersFields, fields)
	if err != nil {
		return nil, err
	}
	return &AuthorParams{fp}, nil
}

func (p *AuthorParams) Values() url.Values {
	v := url.Values{}
	p.encode(v)
	return v
}

// PaperSearchParams is the query of GetPaperSearch.
type PaperSearchParams struct {
	searchParams
}

// NewPaperSearchParams validates fields against BasePaperFields.
// The query is trimmed of surrounding whitespace.
func NewPaperSearchParams(query string, page pagination.Page, fields ...Field) (*PaperSearchParams, error) {
	sp, err := newSearchParams(query, page, BasePaperFields, fields)
	if err != nil {
		return nil, err
	}
	return &PaperSearchParams{sp}, nil
}

func (p *PaperSearchParams) clone() ListParams {
	c := *p
	return &c
}

// AuthorSearchParams is the query of GetAuthorSearch.
type AuthorSearchParams struct {
	searchParams
}

// NewAuthorSearchParams validates fields against AuthorWithPapersFields.
func NewAuthorSearchParams(query string, page pagination.Page, fields ...Field) (*AuthorSearchParams, error) {
	sp, err := newSearchParams(query, page, AuthorWithPapersFields, fields)
	if err != nil {
		return nil, err
	}
	return &AuthorSearchParams{sp}, nil
}

func (p *AuthorSearchParams) clone() ListParams {
	c := *p
	return &c
}

// PaperAuthorsParams is the query of GetPaperAuthors.
type PaperAuthorsParams struct {
	pagedParams
}

// NewPaperAuthorsParams validates fields against AuthorWithPapersFields.
func NewPaperAuthorsParams(page pagination.Page, fields ...Field) (*PaperAuthorsParams, error) {
	pp, err := newPagedParams(page, AuthorWithPapersFields, fields)
	if err != nil {
		return nil, err
	}
	return &PaperAuthorsParams{pp}, nil
}

func (p *PaperAuthorsParams) clone() ListParams {
	c := *p
	return &c
}

// PaperCitationsParams is the query of GetPaperCitations.
type PaperCitationsParams struct {
	pagedParams
}

// NewPaperCitationsParams validates fields against PaperFields.
func NewPaperCitationsParams(page pagination.Page, fields ...Field) (*PaperCitationsParams, error) {
	pp, err := newPagedParams(page, PaperFields, fields)
	if err != nil {
		return nil, err
	}
	return &PaperCitationsParams{pp}, nil
}

func (p *PaperCitationsParams) clone() ListParams {
	c := *p
	return &c
}

// PaperReferencesParams is the query of GetPaperReferences.
type PaperReferencesParams struct {
	pagedParams
}

// NewPaperReferencesParams validates fields against PaperFields.
func NewPaperReferencesParams(page pagination.Page, fields ...Field) (*PaperReferencesParams, error) {
	pp, err := newPagedParams(page, PaperFields, fields)
	if err != nil {
		return nil, err
	}
	return &PaperReferencesParams{pp}, nil
}

func (p *PaperReferencesParams) clone() ListParams {
	c := *p
	return &c
}

// AuthorPapersParams is the query of GetAuthorPapers.
type AuthorPapersParams struct {
	pagedParams
}

// NewAuthorPapersParams validates fields against PaperWithLinksFields.
func NewAuthorPapersParams(page pagination.Page, fields ...Field) (*AuthorPapersParams, error) {
	pp, err := newPagedParams(page, PaperWithLinksFields, fields)
	if err != nil {
		return nil, err
	}
	return &AuthorPapersParams{pp}, nil
}

func (p *AuthorPapersParams) clone() ListParams {
	c := *p
	return &c
}
