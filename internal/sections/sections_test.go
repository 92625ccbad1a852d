// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sections

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `[**back to top**]
# Abstract
We propose a method.

It works.
# Links to Paper and Supplementary Materials
Main Paper (Open Access Version): <https://papers.example.org/0308_paper.pdf>
SpringerLink (DOI): Not yet available
## Not a top-level heading
still part of links
# Meta-review
Good paper. [**back to top**]
`

func TestExtract(t *testing.T) {
	m := Extract(samplePage)

	require.Equal(t, 3, m.Len())
	assert.Equal(t, []string{
		"abstract",
		"links_to_paper_and_supplementary_materials",
		"meta-review",
	}, m.Keys())

	abstract, ok := m.Get("abstract")
	require.True(t, ok)
	assert.Equal(t, "We propose a method.\n\nIt works.", abstract)

	links, _ := m.Get("links_to_paper_and_supplementary_materials")
	assert.Contains(t, links, "## Not a top-level heading")
	assert.True(t, strings.HasSuffix(links, "still part of links"))

	meta, _ := m.Get("meta-review")
	assert.Equal(t, "Good paper. [**back to top**]", meta)
}

func TestExtract_NoHeadings(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"plain text", "just some text\nwith lines"},
		{"only subheadings", "## Sub\nbody\n### Deeper\nmore"},
		{"hash without space", "#NoSpace\nbody"},
		{"indented heading", "  # Indented\nbody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Extract(tt.doc)
			assert.Equal(t, 0, m.Len())
			assert.Empty(t, m.Keys())
		})
	}
}

func TestExtract_RepeatedHeadingOverwrites(t *testing.T) {
	doc := "# Reviews\nfirst\n# Abstract\nabs\n# Reviews\nsecond"
	m := Extract(doc)

	assert.Equal(t, []string{"reviews", "abstract"}, m.Keys())
	body, _ := m.Get("reviews")
	assert.Equal(t, "second", body)
}

func TestExtract_CountAndReconstruction(t *testing.T) {
	bodies := []string{"alpha body", "beta\nbody", "gamma"}
	names := []string{"Alpha", "Beta Section", "Gamma Rays Here"}

	var b strings.Builder
	b.WriteString("preamble is dropped\n")
	for i := range names {
		b.WriteString("# " + names[i] + "\n\n")
		b.WriteString(bodies[i] + "\n\n")
	}
	m := Extract(b.String())

	require.Equal(t, len(names), m.Len())
	var rebuilt []string
	for _, k := range m.Keys() {
		body, _ := m.Get(k)
		rebuilt = append(rebuilt, body)
	}
	assert.Equal(t, bodies, rebuilt)
	assert.Equal(t, []string{"alpha", "beta_section", "gamma_rays_here"}, m.Keys())
}

func TestExtract_CRLF(t *testing.T) {
	m := Extract("# Abstract\r\nbody text\r\n# Reviews\r\nok\r\n")
	require.Equal(t, 2, m.Len())
	body, _ := m.Get("abstract")
	assert.Equal(t, "body text", body)
}

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Abstract", "abstract"},
		{"Link to the Dataset(s)", "link_to_the_dataset(s)"},
		{"Meta-Review", "meta-review"},
		{"  Author Feedback ", "author_feedback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.in), tt.in)
	}
}

func TestNilMap(t *testing.T) {
	var m *Map
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	_, ok := m.Get("x")
	assert.False(t, ok)
}
