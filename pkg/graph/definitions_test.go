package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FlexString
		wantErr bool
	}{
		{"string", `"10.1093/mind/lix.236.433"`, "10.1093/mind/lix.236.433", false},
		{"number", `49313245`, "49313245", false},
		{"null", `null`, "", false},
		{"bool", `true`, "", true},
		{"object", `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FlexString
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBasePaper_Decode(t *testing.T) {
	body := `{
		"paperId": "649def34f8be52c8b66281af98ae884c09aef38b",
		"url": "https://www.semanticscholar.org/paper/649def34",
		"title": "Construction of the Literature Graph in Semantic Scholar",
		"venue": "NAACL",
		"year": 2018,
		"authors": [{"authorId": "1741101", "name": "Oren Etzioni"}, {"authorId": null, "name": "Unknown"}],
		"externalIds": {"MAG": 2963341956, "DOI": "10.18653/v1/N18-3011", "CorpusId": 19170988},
		"abstract": null,
		"referenceCount": 27,
		"citationCount": 118,
		"influentialCitationCount": 6,
		"isOpenAccess": true,
		"fieldsOfStudy": ["Computer Science"]
	}`

	var p BasePaper
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, "649def34f8be52c8b66281af98ae884c09aef38b", p.PaperID)
	assert.Equal(t, 2018, p.Year)
	require.Len(t, p.Authors, 2)
	assert.Equal(t, "", p.Authors[1].AuthorID)
	require.NotNil(t, p.ExternalIDs)
	assert.Equal(t, FlexString("2963341956"), p.ExternalIDs.MAG)
	assert.Equal(t, FlexString("19170988"), p.ExternalIDs.CorpusID)
	assert.Equal(t, FlexString("10.18653/v1/N18-3011"), p.ExternalIDs.DOI)
	assert.Empty(t, p.Abstract)
	require.NotNil(t, p.IsOpenAccess)
	assert.True(t, *p.IsOpenAccess)
	assert.Equal(t, p.PaperInfo, p.Info())
}

func TestPaperWithLinks_DecodeAndNarrow(t *testing.T) {
	body := `{
		"paperId": "p1",
		"title": "Linked",
		"authors": [{"authorId": "a1", "name": "Ada"}],
		"citations": [{"paperId": "c1", "title": "Citing"}],
		"references": [{"paperId": "r1"}, {"paperId": null, "title": "Lost"}]
	}`

	var p PaperWithLinks
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	assert.Equal(t, []AuthorInfo{{AuthorID: "a1", Name: "Ada"}}, p.Authors)
	assert.Len(t, p.Citations, 1)
	assert.Len(t, p.References, 2)

	info := p.Info()
	assert.Equal(t, "p1", info.PaperID)
	assert.Equal(t, p.Authors, info.Authors)
	assert.Equal(t, "Linked", p.Base().Title)
}

func TestFullPaper_DecodeAndNarrow(t *testing.T) {
	body := `{
		"paperId": "p1",
		"title": "Full",
		"authors": [{"authorId": "a1", "name": "Ada", "hIndex": 12, "externalIds": {"DBLP": ["Ada L."], "ORCID": "0000-0001"}}],
		"embedding": {"model": "specter@v0.1.1", "vector": [0.5, -1.25]},
		"tldr": {"model": "tldr@v2.0.0", "text": "A short summary."}
	}`

	var p FullPaper
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	require.Len(t, p.Authors, 1)
	assert.Equal(t, 12, p.Authors[0].HIndex)
	require.NotNil(t, p.Authors[0].ExternalIDs)
	assert.Equal(t, []string{"Ada L."}, p.Authors[0].ExternalIDs.DBLP)
	require.NotNil(t, p.Embedding)
	assert.Equal(t, []float64{0.5, -1.25}, p.Embedding.Vector)
	require.NotNil(t, p.Tldr)
	assert.Equal(t, "A short summary.", p.Tldr.Text)

	assert.Equal(t, []AuthorInfo{{AuthorID: "a1", Name: "Ada"}}, p.Info().Authors)
	assert.Equal(t, []AuthorInfo{{AuthorID: "a1", Name: "Ada"}}, p.WithLinks().Authors)
	assert.Equal(t, "Full", p.Base().Title)
}

func TestAuthorWithPapers_Decode(t *testing.T) {
	body := `{
		"authorId": "1741101",
		"name": "Oren Etzioni",
		"aliases": ["O. Etzioni"],
		"paperCount": 400,
		"papers": [{"paperId": "p1", "title": "One"}, {"paperId": "p2", "title": "Two"}]
	}`

	var a AuthorWithPapers
	require.NoError(t, json.Unmarshal([]byte(body), &a))

	assert.Equal(t, AuthorInfo{AuthorID: "1741101", Name: "Oren Etzioni"}, a.Info())
	assert.Equal(t, 400, a.Author.PaperCount)
	require.Len(t, a.Papers, 2)
	assert.Equal(t, "Two", a.Papers[1].Title)
}

func TestCitationAndReference_Decode(t *testing.T) {
	var c Citation
	require.NoError(t, json.Unmarshal([]byte(`{
		"citingPaper": {"paperId": "c1", "title": "Citing"},
		"contexts": ["as shown in [3]"],
		"intents": ["background"],
		"isInfluential": false
	}`), &c))
	require.NotNil(t, c.CitingPaper)
	assert.Equal(t, "c1", c.CitingPaper.PaperID)
	require.NotNil(t, c.IsInfluential)
	assert.False(t, *c.IsInfluential)

	var r Reference
	require.NoError(t, json.Unmarshal([]byte(`{"citedPaper": {"paperId": null, "title": "Lost"}}`), &r))
	require.NotNil(t, r.CitedPaper)
	assert.Empty(t, r.CitedPaper.PaperID)
	assert.Nil(t, r.IsInfluential)
}

func TestPaperWithLinks_EncodesOnlyOuterAuthors(t *testing.T) {
	p := PaperWithLinks{Authors: []AuthorInfo{{AuthorID: "a1"}}}
	p.PaperInfo.Authors = []AuthorInfo{{AuthorID: "hidden"}}

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"authors":[{"authorId":"a1"}]}`, string(out))
}
