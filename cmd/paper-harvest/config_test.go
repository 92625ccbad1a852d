// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/paper-harvest/internal/normalize"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

func TestLoadConfig_Defaults(t *testing.T) {
	setDefaults()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg := loadConfig()
	assert.Equal(t, "https://papers.miccai.org", cfg.Crawl.BaseURL)
	assert.Equal(t, "media", cfg.Crawl.MediaDir)
	assert.Equal(t, 5, cfg.Crawl.Concurrency)
	assert.Equal(t, normalize.DefaultSections, cfg.Crawl.Sections)
	assert.Equal(t, 60*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, types.ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "media/papers.db", cfg.Store.DBPath)
	assert.True(t, cfg.Store.DownloadPDFs)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setDefaults()
	viper.Set("crawl.concurrency", 2)
	viper.Set("ai.provider", "claude")
	t.Cleanup(viper.Reset)

	loadedSecrets = map[string]string{"anthropic-api-key": "ak_file"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg := loadConfig()
	assert.Equal(t, 2, cfg.Crawl.Concurrency)
	assert.Equal(t, types.ProviderClaude, cfg.AI.Provider)
	assert.Equal(t, "ak_file", cfg.AI.APIKey)
}
