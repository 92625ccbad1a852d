// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AuthorEntry is one element of the raw author list produced by the listing
// page extraction schema.
type AuthorEntry struct {
	Author string `json:"author" yaml:"author"`
}

// AuthorList is the raw, pre-normalization author list of a PaperStub. The
// listing extraction is model-generated, so the field arrives either as a
// list of {"author": name} objects, a list of plain names, or one string.
type AuthorList []AuthorEntry

// UnmarshalJSON accepts all three shapes the listing extraction produces.
func (a *AuthorList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*a = nil
		return nil
	}

	var entries []AuthorEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		*a = entries
		return nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		out := make(AuthorList, 0, len(names))
		for _, n := range names {
			out = append(out, AuthorEntry{Author: n})
		}
		*a = out
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*a = nil
			return nil
		}
		*a = AuthorList{{Author: single}}
		return nil
	}

	return fmt.Errorf("authors: unsupported JSON shape %s", truncateJSON(trimmed))
}

func truncateJSON(s string) string {
	if len(s) <= 40 {
		return s
	}
	return s[:37] + "..."
}

// PaperStub is a paper record as it comes off the conference listing page.
// PaperURL identifies the paper; it may be relative to the conference site.
type PaperStub struct {
	Title    string     `json:"title" yaml:"title"`
	Authors  AuthorList `json:"authors" yaml:"authors"`
	PaperURL string     `json:"paper_url" yaml:"paper_url"`
	PDFURL   string     `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
}

// Paper is a PaperStub enriched with the normalized sections of its detail
// page. Pointer and map fields use nil as the explicit absence marker, which
// serializes as JSON null.
type Paper struct {
	Title    string `json:"title" yaml:"title"`
	Authors  string `json:"authors" yaml:"authors"`
	PaperURL string `json:"paper_url" yaml:"paper_url"`

	// Datasets maps dataset name to URL. Nil when the page carries no
	// dataset markers.
	Datasets map[string]string `json:"datasets" yaml:"datasets"`

	CodeURL       *string `json:"code_url" yaml:"code_url"`
	DOI           *string `json:"doi" yaml:"doi"`
	PDFURL        *string `json:"pdf_url" yaml:"pdf_url"`
	SuppMaterials *string `json:"supp_materials" yaml:"supp_materials"`

	Abstract       string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Reviews        string `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	AuthorFeedback string `json:"author_feedback,omitempty" yaml:"author_feedback,omitempty"`
	MetaReview     string `json:"meta_review,omitempty" yaml:"meta_review,omitempty"`

	// Extra holds sections without a dedicated rule, keyed by section name.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewPaper copies the stub fields into a fresh working record. Authors are
// left empty; the orchestrator normalizes them separately.
func NewPaper(stub PaperStub) *Paper {
	p := &Paper{
		Title:    strings.TrimSpace(stub.Title),
		PaperURL: stub.PaperURL,
	}
	if u := strings.TrimSpace(stub.PDFURL); u != "" {
		p.PDFURL = &u
	}
	return p
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Conference identifies the venue a batch of papers is loaded under.
type Conference struct {
	ID   int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name" yaml:"name"`
	Year int    `json:"year" yaml:"year"`
	URL  string `json:"url" yaml:"url"`
}

// String renders the conference the way it is labelled in file names.
func (c Conference) String() string {
	return fmt.Sprintf("%s%d", c.Name, c.Year)
}

// Dataset is a named dataset link attached to one or more papers.
type Dataset struct {
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url" yaml:"url"`
	FromPDF bool   `json:"from_pdf" yaml:"from_pdf"`
}

// PaperInfo holds the fields an AI backend extracts from a paper's full text.
type PaperInfo struct {
	// AuthorsMail maps e-mail address to author name, in paper order.
	AuthorsMail map[string]string `json:"authors_mail" yaml:"authors_mail"`
	Datasets    map[string]string `json:"datasets" yaml:"datasets"`
	CodeURL     *string           `json:"code_url" yaml:"code_url"`
}
