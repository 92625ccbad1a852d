// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

func TestDatasets(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{
			name: "two datasets",
			body: "BraTS 2021: <https://www.synapse.org/brats>\nISIC: <https://challenge.isic-archive.com/data/>",
			want: map[string]string{
				"BraTS 2021": "https://www.synapse.org/brats",
				"ISIC":       "https://challenge.isic-archive.com/data/",
			},
		},
		{
			name: "trims names and urls",
			body: "  LIDC :   < https://wiki.cancerimagingarchive.net/lidc >",
			want: map[string]string{"LIDC": "https://wiki.cancerimagingarchive.net/lidc"},
		},
		{name: "no markers", body: "N/A", want: nil},
		{name: "empty body", body: "", want: nil},
		{name: "url without brackets", body: "Private: https://example.org/data", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &types.Paper{}
			Datasets(p, tt.body)
			assert.Equal(t, tt.want, p.Datasets)
		})
	}
}

func TestDatasets_Idempotent(t *testing.T) {
	body := "BraTS: <https://brats.example>\nKiTS: <https://kits.example>"
	a, b := &types.Paper{}, &types.Paper{}
	Datasets(a, body)
	Datasets(b, body)
	assert.Equal(t, a.Datasets, b.Datasets)

	// Re-applying to the same record is stable too.
	Datasets(a, body)
	assert.Equal(t, b.Datasets, a.Datasets)
}

func TestDatasets_NoMarkersSerializesAsNull(t *testing.T) {
	p := &types.Paper{}
	Datasets(p, "N/A")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"datasets":null`)
}

func TestCodeURL(t *testing.T) {
	p := &types.Paper{}
	CodeURL(p, "Our code: <https://github.com/example/repo> (MIT)")
	require.NotNil(t, p.CodeURL)
	assert.Equal(t, "https://github.com/example/repo", *p.CodeURL)

	CodeURL(p, "N/A")
	assert.Nil(t, p.CodeURL)
}

func TestLinks(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantDOI  *string
		wantPDF  *string
		wantSupp *string
	}{
		{
			name: "all present",
			body: "Main Paper (Open Access Version): <https://papers.example.org/0308_paper.pdf>\n" +
				"SpringerLink (DOI): https://doi.org/10.1007/978-3-032-04947-6_1\n" +
				"Supplementary Material: <https://papers.example.org/0308_supp.zip>",
			wantDOI:  types.Str("https://doi.org/10.1007/978-3-032-04947-6_1"),
			wantPDF:  types.Str("https://papers.example.org/0308_paper.pdf"),
			wantSupp: types.Str("https://papers.example.org/0308_supp.zip"),
		},
		{
			name: "doi not yet available",
			body: "Main Paper (Open Access Version): <https://papers.example.org/p.pdf>\n" +
				"SpringerLink (DOI): Not yet available\n" +
				"Supplementary Material: Not Submitted",
			wantDOI:  nil,
			wantPDF:  types.Str("https://papers.example.org/p.pdf"),
			wantSupp: nil,
		},
		{
			name: "sentinel is case insensitive",
			body: "SpringerLink (DOI): NOT AVAILABLE",
		},
		{
			name: "nothing matches",
			body: "no links here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &types.Paper{PDFURL: types.Str("stale"), DOI: types.Str("stale")}
			Links(p, tt.body)
			assert.Equal(t, tt.wantDOI, p.DOI)
			assert.Equal(t, tt.wantPDF, p.PDFURL)
			assert.Equal(t, tt.wantSupp, p.SuppMaterials)
		})
	}
}

func TestLinks_DOINotYetAvailableIsNull(t *testing.T) {
	p := &types.Paper{}
	Links(p, "SpringerLink (DOI): Not yet available")
	assert.Nil(t, p.DOI)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"doi":null`)
	assert.NotContains(t, string(data), "Not yet available")
}

func TestMetaReview(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"Good paper. [**back to top**] Section X", "Good paper."},
		{"Accept.\n\n[**back to top**]\n# trailing\nmore", "Accept."},
		{"  No marker here  ", "No marker here"},
		{"[**back to top**]", ""},
	}
	for _, tt := range tests {
		p := &types.Paper{}
		MetaReview(p, tt.body)
		assert.Equal(t, tt.want, p.MetaReview, tt.body)
	}
}

func TestAuthors(t *testing.T) {
	var entries types.AuthorList
	require.NoError(t, json.Unmarshal([]byte(`[{"author":"Smith, J."},{"author":"Doe, A."}]`), &entries))
	assert.Equal(t, "Smith J, Doe A", Authors(entries))

	tests := []struct {
		name    string
		entries types.AuthorList
		want    string
	}{
		{"empty", nil, ""},
		{"plain names", types.AuthorList{{Author: "Ada Lovelace"}, {Author: "Alan Turing"}}, "Ada Lovelace, Alan Turing"},
		{"skips blanks", types.AuthorList{{Author: " "}, {Author: "Grace Hopper"}}, "Grace Hopper"},
		{"collapses spaces", types.AuthorList{{Author: "Li,  Wei"}}, "Li Wei"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authors(tt.entries))
		})
	}
}

func TestRegistry_Apply(t *testing.T) {
	r := NewRegistry()
	p := &types.Paper{}

	r.Apply(p, SectionAbstract, "We segment tumours. [**back to top**]")
	r.Apply(p, SectionReviews, "Review #1 ...")
	r.Apply(p, SectionAuthorFeedback, "Thanks.")
	r.Apply(p, SectionCode, "<https://github.com/x/y>")
	r.Apply(p, SectionDatasets, "N/A")
	r.Apply(p, "bibtex_info", "@inproceedings{...}")

	assert.Equal(t, "We segment tumours.", p.Abstract)
	assert.Equal(t, "Review #1 ...", p.Reviews)
	assert.Equal(t, "Thanks.", p.AuthorFeedback)
	assert.Equal(t, "https://github.com/x/y", types.Deref(p.CodeURL))
	assert.Nil(t, p.Datasets)
	assert.Equal(t, map[string]string{"bibtex_info": "@inproceedings{...}"}, p.Extra)
}

func TestRegistry_AuthorsSection(t *testing.T) {
	r := NewRegistry()
	p := &types.Paper{}
	r.Apply(p, SectionAuthors, "- Smith, J.\n- Doe, A.\n")
	assert.Equal(t, "Smith J, Doe A", p.Authors)
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := NewRegistry()
	r.Register(SectionAbstract, RuleFunc(func(p *types.Paper, body string) {
		p.Abstract = "custom"
	}))
	p := &types.Paper{}
	r.Apply(p, SectionAbstract, "ignored")
	assert.Equal(t, "custom", p.Abstract)

	_, ok := r.Lookup(SectionMetaReview)
	assert.True(t, ok)
	_, ok = r.Lookup("unknown")
	assert.False(t, ok)
}
