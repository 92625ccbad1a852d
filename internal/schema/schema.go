// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema supplies the JSON-CSS extraction schema used to read a
// conference listing. A schema is generated once per variant by a
// Generator and cached; later runs reuse the cached copy.
package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-harvest/internal/cache"
	"github.com/pdiddy/paper-harvest/internal/engine"
)

var (
	// ErrGeneration marks a failure of the schema generator. It is fatal
	// to a run.
	ErrGeneration = errors.New("schema generation failed")

	// ErrMalformedCache marks a cached schema that exists but cannot be
	// decoded.
	ErrMalformedCache = errors.New("malformed schema cache")
)

// goalTemplate describes what the generated schema must extract.
const goalTemplate = "From %s, i shared a sample html structure of a paper listing. " +
	"Please generate a schema for this div extracting only the paper title, " +
	"authors list, and the link to the paper information and reviews"

// Goal returns the natural-language generation goal for a listing URL.
func Goal(listingURL string) string {
	return fmt.Sprintf(goalTemplate, listingURL)
}

// Generator produces a JSON-CSS schema from an HTML sample.
type Generator interface {
	GenerateSchema(ctx context.Context, htmlSample, goal string) (json.RawMessage, error)
}

// Provider returns the cached schema for a variant, generating it on a miss.
type Provider struct {
	Store     cache.Store
	Generator Generator
	Engine    engine.Engine

	// ListingURL is interpolated into the generation goal.
	ListingURL string
}

// Get returns the schema for variant. A cached entry is returned without
// calling the generator; a malformed entry yields ErrMalformedCache. On a
// miss with an empty htmlSample, the listing page is sampled through Engine.
func (p *Provider) Get(ctx context.Context, htmlSample, variant string) (json.RawMessage, error) {
	key := cache.Key(cache.SchemaKey, variant)

	var cached json.RawMessage
	err := cache.GetJSON(ctx, p.Store, key, &cached)
	switch {
	case err == nil:
		if !isObject(cached) {
			return nil, fmt.Errorf("%w: %s is not a JSON object", ErrMalformedCache, key)
		}
		return cached, nil
	case !errors.Is(err, cache.ErrNotFound):
		return nil, fmt.Errorf("%w: %v", ErrMalformedCache, err)
	}

	if p.Generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", ErrGeneration)
	}
	if htmlSample == "" && p.Engine != nil && p.ListingURL != "" {
		if htmlSample, err = p.Sample(ctx, p.ListingURL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
	}
	generated, err := p.Generator.GenerateSchema(ctx, htmlSample, Goal(p.ListingURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if !isObject(generated) {
		return nil, fmt.Errorf("%w: generator returned %q", ErrGeneration, truncate(string(generated), 80))
	}

	if err := cache.PutJSON(ctx, p.Store, key, generated); err != nil {
		return nil, fmt.Errorf("caching schema: %w", err)
	}
	return generated, nil
}

// Sample fetches url through the engine and returns its HTML for use as a
// generation sample.
func (p *Provider) Sample(ctx context.Context, url string) (string, error) {
	if p.Engine == nil {
		return "", errors.New("no engine configured for sampling")
	}
	res, err := p.Engine.Fetch(ctx, url, engine.ExtractionConfig{})
	if err != nil {
		return "", fmt.Errorf("sampling %s: %w", url, err)
	}
	if !res.Success {
		return "", fmt.Errorf("sampling %s: %s", url, res.Error)
	}
	return res.HTML, nil
}

func isObject(raw json.RawMessage) bool {
	var m map[string]json.RawMessage
	return json.Unmarshal(raw, &m) == nil && m != nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
