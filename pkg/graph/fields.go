package graph

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownField is wrapped by *FieldError.
var ErrUnknownField = errors.New("unknown field")

// Field names one selectable response attribute, as written in the
// fields query parameter.
type Field string

// Paper attributes.
const (
	FieldPaperID                  Field = "paperId"
	FieldURL                      Field = "url"
	FieldTitle                    Field = "title"
	FieldVenue                    Field = "venue"
	FieldYear                     Field = "year"
	FieldAuthors                  Field = "authors"
	FieldAbstract                 Field = "abstract"
	FieldExternalIDs              Field = "externalIds"
	FieldReferenceCount           Field = "referenceCount"
	FieldCitationCount            Field = "citationCount"
	FieldInfluentialCitationCount Field = "influentialCitationCount"
	FieldIsOpenAccess             Field = "isOpenAccess"
	FieldFieldsOfStudy            Field = "fieldsOfStudy"
	FieldCitations                Field = "citations"
	FieldReferences               Field = "references"
	FieldEmbedding                Field = "embedding"
	FieldTldr                     Field = "tldr"
)

// Citation and reference edge attributes.
const (
	FieldContexts      Field = "contexts"
	FieldIntents       Field = "intents"
	FieldIsInfluential Field = "isInfluential"
)

// Author attributes. FieldURL, FieldExternalIDs and FieldCitationCount
// apply to authors too.
const (
	FieldAuthorID     Field = "authorId"
	FieldName         Field = "name"
	FieldAliases      Field = "aliases"
	FieldAffiliations Field = "affiliations"
	FieldHomepage     Field = "homepage"
	FieldPaperCount   Field = "paperCount"
	FieldHIndex       Field = "hIndex"
	FieldPapers       Field = "papers"
)

// Nested selects sub on the objects f refers to, e.g.
// FieldCitations.Nested(FieldTitle) is "citations.title".
func (f Field) Nested(sub Field) Field {
	return f + "." + sub
}

// String implements fmt.Stringer.
func (f Field) String() string {
	return string(f)
}

// FieldError reports a field that the target response type cannot select.
type FieldError struct {
	Field Field
	Set   string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q is not selectable on %s", e.Field, e.Set)
}

// Unwrap returns ErrUnknownField for use with errors.Is.
func (e *FieldError) Unwrap() error {
	return ErrUnknownField
}

// FieldSet is the selection vocabulary of one response type.
type FieldSet struct {
	name   string
	fields []Field
	index  map[Field]struct{}
}

func newFieldSet(name string, groups ...[]Field) FieldSet {
	s := FieldSet{name: name, index: make(map[Field]struct{})}
	for _, group := range groups {
		for _, f := range group {
			if _, ok := s.index[f]; ok {
				continue
			}
			s.index[f] = struct{}{}
			s.fields = append(s.fields, f)
		}
	}
	return s
}

// Name returns the response type the set belongs to.
func (s FieldSet) Name() string {
	return s.name
}

// Contains reports whether f is selectable.
func (s FieldSet) Contains(f Field) bool {
	_, ok := s.index[f]
	return ok
}

// Fields returns every selectable field in declaration order.
func (s FieldSet) Fields() []Field {
	return slices.Clone(s.fields)
}

var (
	paperInfoFields = []Field{
		FieldPaperID, FieldURL, FieldTitle, FieldVenue, FieldYear, FieldAuthors,
	}
	authorInfoFields = []Field{FieldAuthorID, FieldName}

	basePaperOnly = []Field{
		FieldExternalIDs, FieldAbstract, FieldReferenceCount, FieldCitationCount,
		FieldInfluentialCitationCount, FieldIsOpenAccess, FieldFieldsOfStudy,
	}
	authorOnly = []Field{
		FieldExternalIDs, FieldURL, FieldAliases, FieldAffiliations,
		FieldHomepage, FieldPaperCount, FieldCitationCount, FieldHIndex,
	}
	edgeOnly = []Field{FieldContexts, FieldIntents, FieldIsInfluential}
)

func nested(parent Field, subs []Field) []Field {
	out := make([]Field, len(subs))
	for i, sub := range subs {
		out[i] = parent.Nested(sub)
	}
	return out
}

// Field sets per response type.
var (
	PaperInfoFields = newFieldSet("PaperInfo", paperInfoFields)
	BasePaperFields = newFieldSet("BasePaper", paperInfoFields, basePaperOnly)

	// PaperFields selects on citation and reference edges.
	PaperFields = newFieldSet("Paper", edgeOnly, BasePaperFields.fields)

	PaperWithLinksFields = newFieldSet("PaperWithLinks",
		BasePaperFields.fields,
		nested(FieldAuthors, authorInfoFields),
		[]Field{FieldCitations}, nested(FieldCitations, paperInfoFields),
		[]Field{FieldReferences}, nested(FieldReferences, paperInfoFields),
	)

	AuthorInfoFields = newFieldSet("AuthorInfo", authorInfoFields)
	AuthorFields     = newFieldSet("Author", authorInfoFields, authorOnly)

	FullPaperFields = newFieldSet("FullPaper",
		[]Field{FieldEmbedding, FieldTldr},
		nested(FieldAuthors, AuthorFields.fields),
		BasePaperFields.fields,
		[]Field{FieldCitations}, nested(FieldCitations, paperInfoFields),
		[]Field{FieldReferences}, nested(FieldReferences, paperInfoFields),
	)

	AuthorWithPapersFields = newFieldSet("AuthorWithPapers",
		AuthorFields.fields,
		[]Field{FieldPapers},
		nested(FieldPapers, BasePaperFields.fields),
	)
)

// AllPaperInfoFields returns every field of PaperInfo.
func AllPaperInfoFields() []Field { return PaperInfoFields.Fields() }

// AllBasePaperFields returns every field of BasePaper.
func AllBasePaperFields() []Field { return BasePaperFields.Fields() }

// AllPaperFields returns every field selectable on citations and references.
func AllPaperFields() []Field { return PaperFields.Fields() }

// AllPaperWithLinksFields returns every field of PaperWithLinks.
func AllPaperWithLinksFields() []Field { return PaperWithLinksFields.Fields() }

// AllFullPaperFields returns every field of FullPaper.
func AllFullPaperFields() []Field { return FullPaperFields.Fields() }

// AllAuthorInfoFields returns every field of AuthorInfo.
func AllAuthorInfoFields() []Field { return AuthorInfoFields.Fields() }

// AllAuthorFields returns every field of Author.
func AllAuthorFields() []Field { return AuthorFields.Fields() }

// AllAuthorWithPapersFields returns every author field plus every nested
// paper field.
func AllAuthorWithPapersFields() []Field {
	fields := AuthorFields.Fields()
	return append(fields, nested(FieldPapers, BasePaperFields.fields)...)
}

// PaperFieldsWith returns the citation edge fields plus the given paper
// fields.
func PaperFieldsWith(base ...Field) []Field {
	return append(slices.Clone(edgeOnly), base...)
}

// AuthorWithPapersFieldsWith returns every author field plus the given
// paper fields nested under papers.
func AuthorWithPapersFieldsWith(base ...Field) []Field {
	return append(AuthorFields.Fields(), nested(FieldPapers, base)...)
}

// selection checks fields against set and returns their wire form,
// de-duplicated in first-seen order.
func selection(set FieldSet, fields []Field) ([]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(fields))
	seen := make(map[Field]struct{}, len(fields))
	for _, f := range fields {
		if !set.Contains(f) {
			return nil, &FieldError{Field: f, Set: set.name}
		}
		// The API answers 500 to a bare papers selection.
		if f == FieldPapers {
			f = FieldPapers.Nested(FieldTitle)
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, string(f))
	}
	return out, nil
}
