// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdiddy/paper-harvest/internal/normalize"
	"github.com/pdiddy/paper-harvest/internal/parallel"
	"github.com/pdiddy/paper-harvest/internal/schema"
	"github.com/pdiddy/paper-harvest/internal/sections"
	"github.com/pdiddy/paper-harvest/internal/sink"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// DefaultConcurrency bounds detail-page fetches when no limit is configured.
const DefaultConcurrency = 5

var errNoPaperURL = errors.New("no paper_url")

// Failure is a stub whose pipeline did not produce a paper.
type Failure struct {
	Index int
	URL   string
	Err   error
}

// Result is the outcome of a batch. Papers keep the order of their stubs.
type Result struct {
	Papers   []*types.Paper
	Skipped  int
	Failures []Failure
}

// Pipeline enriches listing stubs from their detail pages.
type Pipeline struct {
	Crawler  *Crawler
	Registry *normalize.Registry

	// Sections limits which detail-page sections are merged. Empty merges
	// all of them.
	Sections []string

	// Out receives progress lines. Nil discards them.
	Out io.Writer
}

// ProcessAll runs one pipeline per stub with at most limit detail-page
// fetches in flight. Stubs without a paper_url are skipped; a failing stub
// is recorded in Failures and does not affect the others.
func (p *Pipeline) ProcessAll(ctx context.Context, stubs []types.PaperStub, baseURL string, sch json.RawMessage, limit int) *Result {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	w := p.writer()
	allowed := sectionSet(p.Sections)
	if p.Registry == nil {
		p.Registry = normalize.NewRegistry()
	}

	outcomes := parallel.Map(ctx, stubs, limit, func(ctx context.Context, _ int, stub types.PaperStub) (*types.Paper, error) {
		return p.process(ctx, w, stub, baseURL, sch, allowed)
	})

	res := &Result{Papers: []*types.Paper{}}
	for i, o := range outcomes {
		switch {
		case errors.Is(o.Err, errNoPaperURL):
			fmt.Fprintf(w, "skipped: %s (no paper_url)\n", stubs[i].Title)
			res.Skipped++
		case o.Err != nil:
			url := ResolveURL(baseURL, stubs[i].PaperURL)
			fmt.Fprintf(w, "failed:  %s (%v)\n", url, o.Err)
			res.Failures = append(res.Failures, Failure{Index: i, URL: url, Err: o.Err})
		default:
			res.Papers = append(res.Papers, o.Value)
		}
	}
	return res
}

func (p *Pipeline) process(ctx context.Context, w io.Writer, stub types.PaperStub, baseURL string, sch json.RawMessage, allowed map[string]bool) (*types.Paper, error) {
	if strings.TrimSpace(stub.PaperURL) == "" {
		return nil, errNoPaperURL
	}

	paper := types.NewPaper(stub)
	paper.PaperURL = ResolveURL(baseURL, stub.PaperURL)
	paper.Authors = normalize.Authors(stub.Authors)

	fmt.Fprintf(w, "fetching: %s\n", paper.PaperURL)
	markdown, err := p.Crawler.Page(ctx, paper.PaperURL, sch)
	if err != nil {
		return nil, err
	}

	secs := sections.Extract(markdown)
	for _, key := range secs.Keys() {
		if allowed != nil && !allowed[key] {
			continue
		}
		body, _ := secs.Get(key)
		p.Registry.Apply(paper, key, body)
	}
	return paper, nil
}

func (p *Pipeline) writer() io.Writer {
	if p.Out == nil {
		return io.Discard
	}
	return &syncWriter{w: p.Out}
}

// syncWriter serializes writes from concurrent pipelines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

func sectionSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// ResolveURL prefixes a relative paper URL with baseURL. URLs that already
// start with http:// or https:// are returned unchanged.
func ResolveURL(baseURL, paperURL string) string {
	paperURL = strings.TrimSpace(paperURL)
	if strings.HasPrefix(paperURL, "http://") || strings.HasPrefix(paperURL, "https://") {
		return paperURL
	}
	if baseURL == "" {
		return paperURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(paperURL, "/")
}

// Run executes a full crawl: schema, listing, per-paper pipelines and the
// papers_info.json result file under cfg.MediaDir. Schema and listing
// failures are fatal; per-paper failures are reported in the Result.
func (p *Pipeline) Run(ctx context.Context, cfg types.CrawlConfig, provider *schema.Provider) (*Result, error) {
	w := p.writer()

	sample := ""
	if cfg.HTMLSample != "" {
		data, err := os.ReadFile(cfg.HTMLSample)
		if err != nil {
			return nil, fmt.Errorf("reading HTML sample: %w", err)
		}
		sample = string(data)
	}

	sch, err := provider.Get(ctx, sample, cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	stubs, err := p.Crawler.Listing(ctx, cfg.ListingURL, sch, cfg.Variant)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	fmt.Fprintf(w, "listing: %d papers\n", len(stubs))

	if cfg.MaxPapers > 0 && len(stubs) > cfg.MaxPapers {
		stubs = stubs[:cfg.MaxPapers]
	}

	res := p.ProcessAll(ctx, stubs, cfg.BaseURL, sch, cfg.Concurrency)

	out := filepath.Join(cfg.MediaDir, sink.PapersFile)
	if err := sink.WriteJSON(out, res.Papers); err != nil {
		return res, fmt.Errorf("writing results: %w", err)
	}

	fmt.Fprintf(w, "\nCrawl summary: %d papers, %d skipped, %d failed (total: %d)\n",
		len(res.Papers), res.Skipped, len(res.Failures), len(stubs))
	fmt.Fprintf(w, "Wrote %s\n", out)
	return res, nil
}
