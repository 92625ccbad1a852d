// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine defines the crawling-engine boundary used by the crawl
// stage and provides an HTTP implementation built on goquery. Any engine
// that loads a page, runs a JSON-CSS extraction schema over it, and renders
// its markdown can be substituted.
package engine

import (
	"context"
	"encoding/json"
)

// ExtractionConfig configures one page load.
type ExtractionConfig struct {
	// Schema is a JSON-CSS extraction descriptor. Empty disables structured
	// extraction; the page markdown is still produced.
	Schema json.RawMessage
}

// Result is the outcome of one page load. Success is false when the page
// could not be loaded or extraction could not run; Error says why.
type Result struct {
	URL              string
	Success          bool
	StatusCode       int
	ExtractedContent json.RawMessage
	Markdown         string
	HTML             string
	Error            string
}

// Engine loads a page and runs structured extraction over it.
type Engine interface {
	Fetch(ctx context.Context, url string, cfg ExtractionConfig) (*Result, error)
}

// Func adapts a function to Engine.
type Func func(ctx context.Context, url string, cfg ExtractionConfig) (*Result, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, url string, cfg ExtractionConfig) (*Result, error) {
	return f(ctx, url, cfg)
}
