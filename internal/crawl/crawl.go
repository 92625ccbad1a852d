// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl reads a conference listing into paper stubs and enriches
// each stub from its detail page.
package crawl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/paper-harvest/internal/cache"
	"github.com/pdiddy/paper-harvest/internal/engine"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// CrawlFailure reports a page that could not be loaded.
type CrawlFailure struct {
	URL    string
	Reason string
	Err    error
}

func (e *CrawlFailure) Error() string {
	msg := "crawling failed for " + e.URL
	switch {
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	case e.Reason != "":
		return msg + ": " + e.Reason
	}
	return msg
}

func (e *CrawlFailure) Unwrap() error { return e.Err }

// Crawler loads listing and detail pages through an engine.
type Crawler struct {
	Engine engine.Engine
	Cache  cache.Store
}

// Listing returns the paper stubs on the listing page at url. A cached
// listing for variant is returned without fetching; a malformed cache entry
// is treated as a miss. A fresh extraction is cached before it is returned.
func (c *Crawler) Listing(ctx context.Context, url string, schema json.RawMessage, variant string) ([]types.PaperStub, error) {
	key := cache.Key(cache.ListingKey, variant)

	var cached []types.PaperStub
	if err := cache.GetJSON(ctx, c.Cache, key, &cached); err == nil {
		return cached, nil
	}

	res, err := c.fetch(ctx, url, schema)
	if err != nil {
		return nil, err
	}

	stubs := []types.PaperStub{}
	if len(res.ExtractedContent) > 0 {
		if err := json.Unmarshal(res.ExtractedContent, &stubs); err != nil {
			return nil, fmt.Errorf("decoding listing extraction from %s: %w", url, err)
		}
	}

	if err := cache.PutJSON(ctx, c.Cache, key, stubs); err != nil {
		return nil, fmt.Errorf("caching listing: %w", err)
	}
	return stubs, nil
}

// Page loads one detail page with schema configured and returns its
// markdown. Detail pages are never cached.
func (c *Crawler) Page(ctx context.Context, url string, schema json.RawMessage) (string, error) {
	res, err := c.fetch(ctx, url, schema)
	if err != nil {
		return "", err
	}
	return res.Markdown, nil
}

func (c *Crawler) fetch(ctx context.Context, url string, schema json.RawMessage) (*engine.Result, error) {
	res, err := c.Engine.Fetch(ctx, url, engine.ExtractionConfig{Schema: schema})
	if err != nil {
		return nil, &CrawlFailure{URL: url, Err: err}
	}
	if res == nil || !res.Success {
		reason := ""
		if res != nil {
			reason = res.Error
		}
		return nil, &CrawlFailure{URL: url, Reason: reason}
	}
	return res, nil
}
