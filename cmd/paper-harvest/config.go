// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-harvest/internal/crawl"
	"github.com/pdiddy/paper-harvest/internal/normalize"
	"github.com/pdiddy/paper-harvest/internal/secrets"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "paper-harvest/0.1"
	defaultMediaDir  = "media"
)

func setDefaults() {
	viper.SetDefault("crawl.base_url", "https://papers.miccai.org")
	viper.SetDefault("crawl.listing_url", "https://papers.miccai.org/miccai-2025/")
	viper.SetDefault("crawl.variant", "")
	viper.SetDefault("crawl.media_dir", defaultMediaDir)
	viper.SetDefault("crawl.concurrency", crawl.DefaultConcurrency)
	viper.SetDefault("crawl.max_papers", 0)
	viper.SetDefault("crawl.sections", normalize.DefaultSections)
	viper.SetDefault("crawl.html_sample", "")

	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.user_agent", defaultUserAgent)
	viper.SetDefault("http.max_retries", 5)

	viper.SetDefault("ai.provider", string(types.ProviderGemini))
	viper.SetDefault("ai.model", "gemini-2.5-pro")
	viper.SetDefault("ai.max_retries", 5)
	viper.SetDefault("ai.max_backoff", 30*time.Second)

	viper.SetDefault("store.db_path", defaultMediaDir+"/papers.db")
	viper.SetDefault("store.pdf_dir", defaultMediaDir+"/pdf")
	viper.SetDefault("store.download_pdfs", true)
	viper.SetDefault("store.max_results", 20)
}

// loadConfig assembles the effective configuration from defaults, the
// config file, PAPER_HARVEST_* environment variables and bound flags.
func loadConfig() types.PipelineConfig {
	httpCfg := types.HTTPConfig{
		Timeout:    viper.GetDuration("http.timeout"),
		UserAgent:  viper.GetString("http.user_agent"),
		MaxRetries: viper.GetInt("http.max_retries"),
	}

	provider := types.AIProvider(viper.GetString("ai.provider"))
	apiKey := viper.GetString("ai.api_key")
	if apiKey == "" {
		apiKey = secrets.APIKey(loadedSecrets, provider)
	}

	return types.PipelineConfig{
		Crawl: types.CrawlConfig{
			HTTPConfig:  httpCfg,
			BaseURL:     viper.GetString("crawl.base_url"),
			ListingURL:  viper.GetString("crawl.listing_url"),
			Variant:     viper.GetString("crawl.variant"),
			MediaDir:    viper.GetString("crawl.media_dir"),
			Concurrency: viper.GetInt("crawl.concurrency"),
			MaxPapers:   viper.GetInt("crawl.max_papers"),
			Sections:    viper.GetStringSlice("crawl.sections"),
			HTMLSample:  viper.GetString("crawl.html_sample"),
		},
		AI: types.AIConfig{
			Provider:   provider,
			Model:      viper.GetString("ai.model"),
			APIKey:     apiKey,
			MaxRetries: viper.GetInt("ai.max_retries"),
			MaxBackoff: viper.GetDuration("ai.max_backoff"),
		},
		Store: types.StoreConfig{
			HTTPConfig:   httpCfg,
			DBPath:       viper.GetString("store.db_path"),
			PDFDir:       viper.GetString("store.pdf_dir"),
			DownloadPDFs: viper.GetBool("store.download_pdfs"),
			MaxResults:   viper.GetInt("store.max_results"),
		},
	}
}

// bindFlag ties a flag to a viper key so the flag overrides the config
// file and environment when set. Each key is bound to one flag only.
func bindFlag(flags *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.AI.APIKey != "" {
			cfg.AI.APIKey = "********"
		}
		return printYAML(cfg)
	},
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("media-dir", defaultMediaDir, "directory for cache files and papers_info.json")
	pf.String("db", "", "SQLite database file (default media/papers.db)")
	pf.String("provider", "", "AI provider: claude or gemini (default gemini)")
	pf.String("model", "", "AI model identifier")
	bindFlag(pf, "crawl.media_dir", "media-dir")
	bindFlag(pf, "store.db_path", "db")
	bindFlag(pf, "ai.provider", "provider")
	bindFlag(pf, "ai.model", "model")

	rootCmd.AddCommand(configCmd)
}
