// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skipTags are elements whose content never reaches the markdown.
var skipTags = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true,
	"template": true, "svg": true, "iframe": true, "nav": true,
}

// blockTags are rendered on their own paragraph.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "blockquote": true, "table": true,
	"ul": true, "ol": true, "dl": true, "figure": true, "form": true,
}

var (
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	trailingWS  = regexp.MustCompile(`[ \t]+\n`)
	headingTags = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}
)

// Markdown renders the document body as markdown. Headings become "#"
// lines, links whose text is their own target become <url> autolinks and
// other links become [text](url). Relative links are resolved against base
// when base is non-nil.
func Markdown(doc *goquery.Document, base *url.URL) string {
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	r := renderer{base: base}
	r.children(root)
	out := trailingWS.ReplaceAllString(r.b.String(), "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out) + "\n"
}

type renderer struct {
	b    strings.Builder
	base *url.URL
}

func (r *renderer) children(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		r.node(s)
	})
}

func (r *renderer) node(s *goquery.Selection) {
	name := goquery.NodeName(s)
	switch {
	case name == "#text":
		r.text(s.Text())
	case name == "#comment" || skipTags[name]:
	case headingTags[name] > 0:
		text := cleanText(r.inline(s))
		if text == "" {
			return
		}
		r.block()
		r.b.WriteString(strings.Repeat("#", headingTags[name]) + " " + text)
		r.block()
	case name == "a":
		r.b.WriteString(r.link(s))
	case name == "strong" || name == "b":
		r.wrap(s, "**")
	case name == "em" || name == "i":
		r.wrap(s, "*")
	case name == "code":
		r.wrap(s, "`")
	case name == "br":
		r.b.WriteString("\n")
	case name == "hr":
		r.block()
		r.b.WriteString("---")
		r.block()
	case name == "pre":
		r.block()
		r.b.WriteString("```\n" + strings.Trim(s.Text(), "\n") + "\n```")
		r.block()
	case name == "li":
		r.line()
		r.b.WriteString("- ")
		r.children(s)
		r.line()
	case name == "tr":
		r.line()
		r.children(s)
		r.line()
	case name == "td" || name == "th":
		r.children(s)
		r.b.WriteString(" ")
	case blockTags[name]:
		r.block()
		r.children(s)
		r.block()
	default:
		r.children(s)
	}
}

// inline renders s into a detached buffer and returns the result.
func (r *renderer) inline(s *goquery.Selection) string {
	sub := renderer{base: r.base}
	sub.children(s)
	return sub.b.String()
}

func (r *renderer) wrap(s *goquery.Selection, mark string) {
	text := cleanText(r.inline(s))
	if text == "" {
		return
	}
	r.b.WriteString(mark + text + mark)
}

func (r *renderer) link(s *goquery.Selection) string {
	text := cleanText(r.inline(s))
	href, _ := s.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		return text
	}
	resolved := r.resolve(href)
	if text == "" || text == href || text == resolved {
		return "<" + resolved + ">"
	}
	return "[" + text + "](" + resolved + ")"
}

func (r *renderer) resolve(href string) string {
	if r.base == nil || strings.HasPrefix(href, "#") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return r.base.ResolveReference(u).String()
}

func (r *renderer) text(t string) {
	if strings.TrimSpace(t) == "" {
		if t != "" && !r.atBreak() {
			r.b.WriteString(" ")
		}
		return
	}
	collapsed := cleanText(t)
	if startsWithSpace(t) && !r.atBreak() {
		r.b.WriteString(" ")
	}
	r.b.WriteString(collapsed)
	if endsWithSpace(t) {
		r.b.WriteString(" ")
	}
}

// atBreak reports whether the buffer is empty or ends in whitespace.
func (r *renderer) atBreak() bool {
	s := r.b.String()
	return s == "" || endsWithSpace(s)
}

func (r *renderer) line() {
	if s := r.b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		r.b.WriteString("\n")
	}
}

func (r *renderer) block() {
	r.line()
	if s := r.b.String(); s != "" && !strings.HasSuffix(s, "\n\n") {
		r.b.WriteString("\n")
	}
}

func startsWithSpace(s string) bool {
	return s != "" && strings.ContainsAny(s[:1], " \t\r\n")
}

func endsWithSpace(s string) bool {
	return s != "" && strings.ContainsAny(s[len(s)-1:], " \t\r\n")
}
