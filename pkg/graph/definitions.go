package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString is an identifier the API sends either as a JSON string or
// as a JSON number.
type FlexString string

// UnmarshalJSON accepts strings, numbers and null.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or a number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// AuthorInfo is the minimal author record.
// AuthorID may be empty: the API sends null for unresolved authors.
type AuthorInfo struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name,omitempty"`
}

// AuthorExternalIDs holds ORCID/DBLP identifiers.
type AuthorExternalIDs struct {
	DBLP  []string   `json:"DBLP,omitempty"`
	ORCID FlexString `json:"ORCID,omitempty"`
}

// Author is a full author record.
type Author struct {
	AuthorInfo
	ExternalIDs   *AuthorExternalIDs `json:"externalIds,omitempty"`
	URL           string             `json:"url,omitempty"`
	Aliases       []string           `json:"aliases,omitempty"`
	Affiliations  []string           `json:"affiliations,omitempty"`
	Homepage      string             `json:"homepage,omitempty"`
	PaperCount    int                `json:"paperCount,omitempty"`
	CitationCount int                `json:"citationCount,omitempty"`
	HIndex        int                `json:"hIndex,omitempty"`
}

// Info narrows the author to its minimal record.
func (a Author) Info() AuthorInfo {
	return a.AuthorInfo
}

// AuthorWithPapers is an author with an optional list of papers.
// The embedded Author is its narrowed form.
type AuthorWithPapers struct {
	Author
	Papers []BasePaper `json:"papers,omitempty"`
}

// PaperExternalIDs holds the catalog identifiers of a paper.
type PaperExternalIDs struct {
	ArXiv         FlexString `json:"ArXiv,omitempty"`
	MAG           FlexString `json:"MAG,omitempty"`
	ACL           FlexString `json:"ACL,omitempty"`
	PubMed        FlexString `json:"PubMed,omitempty"`
	Medline       FlexString `json:"Medline,omitempty"`
	PubMedCentral FlexString `json:"PubMedCentral,omitempty"`
	DBLP          FlexString `json:"DBLP,omitempty"`
	DOI           FlexString `json:"DOI,omitempty"`
	CorpusID      FlexString `json:"CorpusId,omitempty"`
}

// PaperInfo is the minimal paper record.
// PaperID may be empty: the API sends null for unresolved papers.
type PaperInfo struct {
	PaperID string       `json:"paperId,omitempty"`
	URL     string       `json:"url,omitempty"`
	Title   string       `json:"title,omitempty"`
	Venue   string       `json:"venue,omitempty"`
	Year    int          `json:"year,omitempty"`
	Authors []AuthorInfo `json:"authors,omitempty"`
}

// BasePaper is a paper without links to other papers.
type BasePaper struct {
	PaperInfo
	ExternalIDs              *PaperExternalIDs `json:"externalIds,omitempty"`
	Abstract                 string            `json:"abstract,omitempty"`
	ReferenceCount           int               `json:"referenceCount,omitempty"`
	CitationCount            int               `json:"citationCount,omitempty"`
	InfluentialCitationCount int               `json:"influentialCitationCount,omitempty"`
	IsOpenAccess             *bool             `json:"isOpenAccess,omitempty"`
	FieldsOfStudy            []string          `json:"fieldsOfStudy,omitempty"`
}

// Info narrows the paper to its minimal record.
func (p BasePaper) Info() PaperInfo {
	return p.PaperInfo
}

// PaperWithLinks is a paper with its authors, citations and references.
type PaperWithLinks struct {
	BasePaper
	Authors    []AuthorInfo `json:"authors,omitempty"`
	Citations  []PaperInfo  `json:"citations,omitempty"`
	References []PaperInfo  `json:"references,omitempty"`
}

// Base narrows the paper to a BasePaper.
func (p PaperWithLinks) Base() BasePaper {
	b := p.BasePaper
	b.PaperInfo.Authors = p.Authors
	return b
}

// Info narrows the paper to its minimal record.
func (p PaperWithLinks) Info() PaperInfo {
	return p.Base().PaperInfo
}

// Embedding is a numerical representation of a paper.
type Embedding struct {
	Model  string    `json:"model,omitempty"`
	Vector []float64 `json:"vector,omitempty"`
}

// Tldr is a generated one-sentence summary.
type Tldr struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text,omitempty"`
}

// FullPaper is the detailed paper record returned by GetPaper.
type FullPaper struct {
	BasePaper
	Authors    []Author    `json:"authors,omitempty"`
	Citations  []PaperInfo `json:"citations,omitempty"`
	References []PaperInfo `json:"references,omitempty"`
	Embedding  *Embedding  `json:"embedding,omitempty"`
	Tldr       *Tldr       `json:"tldr,omitempty"`
}

// Base narrows the paper to a BasePaper.
func (p FullPaper) Base() BasePaper {
	b := p.BasePaper
	if len(p.Authors) > 0 {
		b.PaperInfo.Authors = make([]AuthorInfo, len(p.Authors))
		for i, a := range p.Authors {
			b.PaperInfo.Authors[i] = a.AuthorInfo
		}
	}
	return b
}

// Info narrows the paper to its minimal record.
func (p FullPaper) Info() PaperInfo {
	return p.Base().PaperInfo
}

// WithLinks narrows the paper to a PaperWithLinks.
func (p FullPaper) WithLinks() PaperWithLinks {
	base := p.Base()
	return PaperWithLinks{
		BasePaper:  p.BasePaper,
		Authors:    base.Authors,
		Citations:  p.Citations,
		References: p.References,
	}
}

// Citation is an edge to a paper citing the queried one.
type Citation struct {
	CitingPaper   *BasePaper `json:"citingPaper,omitempty"`
	Contexts      []string   `json:"contexts,omitempty"`
	Intents       []string   `json:"intents,omitempty"`
	IsInfluential *bool      `json:"isInfluential,omitempty"`
}

// Reference is an edge to a paper the queried one cites.
type Reference struct {
	CitedPaper    *BasePaper `json:"citedPaper,omitempty"`
	Contexts      []string   `json:"contexts,omitempty"`
	Intents       []string   `json:"intents,omitempty"`
	IsInfluential *bool      `json:"isInfluential,omitempty"`
}
