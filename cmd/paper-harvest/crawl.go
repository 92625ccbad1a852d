// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-harvest/internal/cache"
	"github.com/pdiddy/paper-harvest/internal/crawl"
	"github.com/pdiddy/paper-harvest/internal/engine"
	"github.com/pdiddy/paper-harvest/internal/llm"
	"github.com/pdiddy/paper-harvest/internal/normalize"
	"github.com/pdiddy/paper-harvest/internal/schema"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl a conference listing and every paper's detail page",
	Long: `Crawl reads the conference listing with a cached extraction schema
(generated by the configured model on first use), fetches every paper's
detail page with bounded concurrency, normalizes the abstract, links,
reviews and feedback sections, and writes papers_info.json to the media
directory.

The listing and schema are cached as home[_<variant>].json and
home_schema[_<variant>].json; delete them to force a fresh crawl.`,
	RunE: runCrawl,
}

var crawlSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the listing extraction schema, generating it if needed",
	RunE:  runCrawlSchema,
}

func init() {
	pf := crawlCmd.PersistentFlags()
	pf.String("base-url", "", "prefix for relative paper URLs")
	pf.String("url", "", "conference listing URL")
	pf.String("variant", "", "cache variant tag (e.g. gemini)")
	pf.String("html-sample", "", "file holding one listing entry's HTML for schema generation")
	bindFlag(pf, "crawl.base_url", "base-url")
	bindFlag(pf, "crawl.listing_url", "url")
	bindFlag(pf, "crawl.variant", "variant")
	bindFlag(pf, "crawl.html_sample", "html-sample")

	f := crawlCmd.Flags()
	f.Int("concurrency", 0, "maximum detail pages fetched at once (default 5)")
	f.Int("max-papers", 0, "process only the first N listing entries (0 = all)")
	f.StringSlice("sections", nil, "detail-page sections to merge (default: abstract, links, code, datasets, reviews, feedback, meta-review)")
	f.Bool("all-sections", false, "merge every detail-page section, unknown ones into extra")
	bindFlag(f, "crawl.concurrency", "concurrency")
	bindFlag(f, "crawl.max_papers", "max-papers")
	bindFlag(f, "crawl.sections", "sections")

	crawlCmd.AddCommand(crawlSchemaCmd)
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if all, _ := cmd.Flags().GetBool("all-sections"); all {
		cfg.Crawl.Sections = nil
	}

	eng := engine.NewHTTP(cfg.Crawl.HTTPConfig)
	store := cache.NewFile(cfg.Crawl.MediaDir)

	p := &crawl.Pipeline{
		Crawler:  &crawl.Crawler{Engine: eng, Cache: store},
		Registry: normalize.NewRegistry(),
		Sections: cfg.Crawl.Sections,
		Out:      os.Stdout,
	}

	res, err := p.Run(cmd.Context(), cfg.Crawl, schemaProvider(cfg, eng, store))
	if err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d paper(s) failed crawling", len(res.Failures))
	}
	return nil
}

func runCrawlSchema(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	eng := engine.NewHTTP(cfg.Crawl.HTTPConfig)
	store := cache.NewFile(cfg.Crawl.MediaDir)

	sample := ""
	if cfg.Crawl.HTMLSample != "" {
		data, err := os.ReadFile(cfg.Crawl.HTMLSample)
		if err != nil {
			return fmt.Errorf("reading HTML sample: %w", err)
		}
		sample = string(data)
	}

	raw, err := schemaProvider(cfg, eng, store).Get(cmd.Context(), sample, cfg.Crawl.Variant)
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	fmt.Fprintln(os.Stderr, "Schema file:", store.Path(cache.Key(cache.SchemaKey, cfg.Crawl.Variant)))
	return nil
}

// schemaProvider wires the schema cache to the configured model. Without an
// API key the provider can still serve a cached schema.
func schemaProvider(cfg types.PipelineConfig, eng engine.Engine, store cache.Store) *schema.Provider {
	p := &schema.Provider{Store: store, Engine: eng, ListingURL: cfg.Crawl.ListingURL}
	client, err := llm.New(cfg.AI, &http.Client{Timeout: 5 * cfg.Crawl.Timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: schema generation unavailable: %v\n", err)
		return p
	}
	p.Generator = client
	return p
}
