// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field types understood by the JSON-CSS extractor.
const (
	FieldText       = "text"
	FieldAttribute  = "attribute"
	FieldHTML       = "html"
	FieldNested     = "nested"
	FieldList       = "list"
	FieldNestedList = "nested_list"
)

// Schema is a JSON-CSS extraction descriptor: every element matching
// BaseSelector becomes one record whose keys are the Fields' names.
type Schema struct {
	Name         string  `json:"name"`
	BaseSelector string  `json:"baseSelector"`
	BaseFields   []Field `json:"baseFields,omitempty"`
	Fields       []Field `json:"fields"`
}

// Field selects one value relative to its parent element.
type Field struct {
	Name      string  `json:"name"`
	Selector  string  `json:"selector,omitempty"`
	Type      string  `json:"type"`
	Attribute string  `json:"attribute,omitempty"`
	Default   any     `json:"default,omitempty"`
	Fields    []Field `json:"fields,omitempty"`
}

// ParseSchema decodes and validates a JSON-CSS descriptor.
func ParseSchema(raw json.RawMessage) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding extraction schema: %w", err)
	}
	if strings.TrimSpace(s.BaseSelector) == "" {
		return nil, fmt.Errorf("extraction schema %q has no baseSelector", s.Name)
	}
	if len(s.Fields) == 0 && len(s.BaseFields) == 0 {
		return nil, fmt.Errorf("extraction schema %q has no fields", s.Name)
	}
	return &s, nil
}

// Extract runs the schema over doc and returns one record per base element.
// Records with no extracted values are dropped.
func (s *Schema) Extract(doc *goquery.Document) []map[string]any {
	records := []map[string]any{}
	doc.Find(s.BaseSelector).Each(func(_ int, base *goquery.Selection) {
		rec := make(map[string]any)
		extractFields(base, s.BaseFields, rec)
		extractFields(base, s.Fields, rec)
		if len(rec) > 0 {
			records = append(records, rec)
		}
	})
	return records
}

func extractFields(sel *goquery.Selection, fields []Field, into map[string]any) {
	for _, f := range fields {
		v := extractField(sel, f)
		if v == nil {
			if f.Default != nil {
				into[f.Name] = f.Default
			}
			continue
		}
		into[f.Name] = v
	}
}

// find resolves a field selector against sel; an empty selector is sel itself.
func find(sel *goquery.Selection, selector string) *goquery.Selection {
	if strings.TrimSpace(selector) == "" {
		return sel
	}
	return sel.Find(selector)
}

func extractField(sel *goquery.Selection, f Field) any {
	matches := find(sel, f.Selector)
	if matches.Length() == 0 {
		return nil
	}

	switch f.Type {
	case FieldNested:
		rec := make(map[string]any)
		extractFields(matches.First(), f.Fields, rec)
		if len(rec) == 0 {
			return nil
		}
		return rec

	case FieldList, FieldNestedList:
		var items []any
		matches.Each(func(_ int, el *goquery.Selection) {
			if len(f.Fields) == 0 {
				if text := cleanText(el.Text()); text != "" {
					items = append(items, text)
				}
				return
			}
			rec := make(map[string]any)
			extractFields(el, f.Fields, rec)
			if len(rec) > 0 {
				items = append(items, rec)
			}
		})
		if len(items) == 0 {
			return nil
		}
		return items

	default:
		return singleValue(matches.First(), f)
	}
}

func singleValue(el *goquery.Selection, f Field) any {
	switch f.Type {
	case FieldAttribute:
		v, ok := el.Attr(f.Attribute)
		if !ok {
			return nil
		}
		return strings.TrimSpace(v)
	case FieldHTML:
		html, err := goquery.OuterHtml(el)
		if err != nil {
			return nil
		}
		return html
	default:
		text := cleanText(el.Text())
		if text == "" {
			return nil
		}
		return text
	}
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
