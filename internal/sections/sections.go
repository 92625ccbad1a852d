// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sections splits a paper detail page's markdown into named sections.
package sections

import "strings"

// Map is an ordered mapping from section key to section body. A repeated
// heading overwrites the earlier body but keeps its original position.
type Map struct {
	keys   []string
	bodies map[string]string
}

// Len returns the number of distinct sections.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the section keys in first-seen document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the body stored under key.
func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	body, ok := m.bodies[key]
	return body, ok
}

func (m *Map) set(key, body string) {
	if m.bodies == nil {
		m.bodies = make(map[string]string)
	}
	if _, ok := m.bodies[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.bodies[key] = body
}

// heading is a top-level heading found in a document.
type heading struct {
	key        string
	start, end int // byte offsets of the heading line, end excludes the newline
}

// Extract builds a Map from the top-level headings of markdown. A top-level
// heading is a line starting with a single '#' followed by a space. Each
// section body runs from the line after its heading up to the next
// top-level heading, trimmed of surrounding whitespace.
func Extract(markdown string) *Map {
	m := &Map{}
	hs := findHeadings(markdown)
	for i, h := range hs {
		bodyEnd := len(markdown)
		if i+1 < len(hs) {
			bodyEnd = hs[i+1].start
		}
		m.set(h.key, strings.TrimSpace(markdown[h.end:bodyEnd]))
	}
	return m
}

func findHeadings(doc string) []heading {
	var hs []heading
	offset := 0
	for offset <= len(doc) {
		lineEnd := strings.IndexByte(doc[offset:], '\n')
		next := len(doc) + 1
		if lineEnd < 0 {
			lineEnd = len(doc)
		} else {
			lineEnd += offset
			next = lineEnd + 1
		}
		line := strings.TrimSuffix(doc[offset:lineEnd], "\r")
		if text, ok := headingText(line); ok {
			hs = append(hs, heading{key: Key(text), start: offset, end: lineEnd})
		}
		offset = next
	}
	return hs
}

// headingText returns the text of a "# " heading line.
func headingText(line string) (string, bool) {
	if !strings.HasPrefix(line, "# ") {
		return "", false
	}
	text := strings.TrimSpace(line[2:])
	if text == "" {
		return "", false
	}
	return text, true
}

// Key converts heading text to a section key: lower-cased, spaces joined
// with underscores.
func Key(headingText string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(headingText)), " ", "_")
}
