// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts raw detail-page sections into typed,
// absence-aware paper fields. Each section name maps to an independent Rule
// held in a Registry; names without a rule fall back to Default.
package normalize

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Section names produced by the conference detail pages.
const (
	SectionAbstract       = "abstract"
	SectionLinks          = "links_to_paper_and_supplementary_materials"
	SectionCode           = "link_to_the_code_repository"
	SectionDatasets       = "link_to_the_dataset(s)"
	SectionReviews        = "reviews"
	SectionAuthorFeedback = "author_feedback"
	SectionMetaReview     = "meta-review"
	SectionAuthors        = "authors"
)

// DefaultSections lists the detail-page sections merged by a standard crawl.
var DefaultSections = []string{
	SectionAbstract,
	SectionLinks,
	SectionCode,
	SectionDatasets,
	SectionReviews,
	SectionAuthorFeedback,
	SectionMetaReview,
}

// Rule applies one section body to a paper record. Rules never fail: a
// missing sub-pattern is written as an explicit absence.
type Rule interface {
	Apply(p *types.Paper, body string)
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(p *types.Paper, body string)

// Apply calls f(p, body).
func (f RuleFunc) Apply(p *types.Paper, body string) { f(p, body) }

// Registry maps section names to rules.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry returns a registry holding the standard conference rules.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]Rule)}
	r.Register(SectionDatasets, RuleFunc(Datasets))
	r.Register(SectionCode, RuleFunc(CodeURL))
	r.Register(SectionLinks, RuleFunc(Links))
	r.Register(SectionMetaReview, RuleFunc(MetaReview))
	r.Register(SectionAuthors, RuleFunc(authorLines))
	r.Register(SectionAbstract, RuleFunc(func(p *types.Paper, body string) {
		p.Abstract = stripBackToTop(body)
	}))
	r.Register(SectionReviews, RuleFunc(func(p *types.Paper, body string) {
		p.Reviews = stripBackToTop(body)
	}))
	r.Register(SectionAuthorFeedback, RuleFunc(func(p *types.Paper, body string) {
		p.AuthorFeedback = stripBackToTop(body)
	}))
	return r
}

// Register installs rule under name, replacing any existing rule.
func (r *Registry) Register(name string, rule Rule) {
	r.rules[name] = rule
}

// Lookup returns the rule for name and whether one is registered.
func (r *Registry) Lookup(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// Apply normalizes one section into p, using Default for unknown names.
func (r *Registry) Apply(p *types.Paper, name, body string) {
	if rule, ok := r.rules[name]; ok {
		rule.Apply(p, body)
		return
	}
	Default(p, name, body)
}

// Default stores body verbatim under name in the paper's extra sections.
func Default(p *types.Paper, name, body string) {
	if p.Extra == nil {
		p.Extra = make(map[string]string)
	}
	p.Extra[name] = body
}

var datasetPattern = regexp.MustCompile(`([^:]+):\s*<([^>]+)>`)

// Datasets parses repeated "name: <url>" entries. No entries leaves the
// field nil rather than an empty map.
func Datasets(p *types.Paper, body string) {
	matches := datasetPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		p.Datasets = nil
		return
	}
	datasets := make(map[string]string, len(matches))
	for _, m := range matches {
		datasets[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
	}
	p.Datasets = datasets
}

var bracketedURLPattern = regexp.MustCompile(`<([^>]+)>`)

// CodeURL takes the first bracketed URL in body.
func CodeURL(p *types.Paper, body string) {
	m := bracketedURLPattern.FindStringSubmatch(body)
	if m == nil {
		p.CodeURL = nil
		return
	}
	p.CodeURL = types.Str(strings.TrimSpace(m[1]))
}

var (
	doiPattern  = regexp.MustCompile(`SpringerLink \(DOI\):\s*(.+?)(?:\n|$)`)
	pdfPattern  = regexp.MustCompile(`Main Paper \(Open Access Version\):\s*<([^>]+)>`)
	suppPattern = regexp.MustCompile(`Supplementary Material:\s*<?([^>\n]+)>?`)
)

// Links extracts the DOI, open-access PDF and supplementary material lines.
// Each is matched independently; "Not available" style values become nil.
func Links(p *types.Paper, body string) {
	p.DOI = linkValue(doiPattern, body)
	p.PDFURL = linkValue(pdfPattern, body)
	p.SuppMaterials = linkValue(suppPattern, body)
}

func linkValue(re *regexp.Regexp, body string) *string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "<>"))
	if isSentinel(v) {
		return nil
	}
	return types.Str(v)
}

// isSentinel reports values such as "Not yet available".
func isSentinel(v string) bool {
	return strings.HasPrefix(strings.ToLower(v), "not")
}

const backToTop = "[**back to top**]"

// MetaReview keeps the text before the "back to top" navigation marker.
func MetaReview(p *types.Paper, body string) {
	p.MetaReview = stripBackToTop(body)
}

func stripBackToTop(body string) string {
	if i := strings.Index(body, backToTop); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// Authors joins the raw author list into "A, B, C". Commas inside a name
// would corrupt the delimiter, so they are removed along with a trailing
// period left over from an initial ("Smith, J." becomes "Smith J").
func Authors(entries types.AuthorList) string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := strings.ReplaceAll(e.Author, ",", "")
		name = strings.TrimSpace(name)
		name = strings.TrimSuffix(name, ".")
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// authorLines handles an "authors" section on a detail page, one name per line.
func authorLines(p *types.Paper, body string) {
	var entries types.AuthorList
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "*-"))
		if line != "" {
			entries = append(entries, types.AuthorEntry{Author: line})
		}
	}
	p.Authors = Authors(entries)
}
