// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

const acceptHTML = "text/html,application/xhtml+xml"

// HTTP is an Engine that loads pages over plain HTTP and parses them with
// goquery. It does not execute JavaScript.
type HTTP struct {
	Client *http.Client
	Config types.HTTPConfig
}

// NewHTTP returns an HTTP engine using cfg's timeout and user agent.
func NewHTTP(cfg types.HTTPConfig) *HTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTP{Client: &http.Client{Timeout: timeout}, Config: cfg}
}

// Fetch loads pageURL, renders its markdown and, when cfg carries a schema,
// runs JSON-CSS extraction. Transport failures are returned as errors;
// non-2xx responses and bad schemas yield a Result with Success false.
func (e *HTTP) Fetch(ctx context.Context, pageURL string, cfg ExtractionConfig) (*Result, error) {
	page, err := httputil.Fetch(ctx, e.Client, pageURL, e.Config, acceptHTML)
	if err != nil {
		return nil, err
	}

	res := &Result{
		URL:        pageURL,
		StatusCode: page.StatusCode,
		HTML:       string(page.Body),
	}
	if !page.OK() {
		res.Error = fmt.Sprintf("HTTP %d", page.StatusCode)
		return res, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		res.Error = fmt.Sprintf("parsing HTML: %v", err)
		return res, nil
	}

	base, _ := url.Parse(page.URL)
	res.Markdown = Markdown(doc, base)

	if len(cfg.Schema) > 0 {
		extracted, err := extract(doc, cfg.Schema)
		if err != nil {
			res.Error = err.Error()
			return res, nil
		}
		res.ExtractedContent = extracted
	}

	res.Success = true
	return res, nil
}

func extract(doc *goquery.Document, raw json.RawMessage) (json.RawMessage, error) {
	schema, err := ParseSchema(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(schema.Extract(doc))
	if err != nil {
		return nil, fmt.Errorf("encoding extracted content: %w", err)
	}
	return data, nil
}
