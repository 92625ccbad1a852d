package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds the retries on HTTP 429 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CrawlConfig holds settings for the listing crawl and the per-paper pipeline.
type CrawlConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is prefixed to relative paper URLs (e.g. "https://papers.miccai.org").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// ListingURL is the conference page that lists every paper.
	ListingURL string `json:"listing_url" yaml:"listing_url"`

	// Variant tags the cache files (home_<variant>.json). Empty uses the
	// untagged files.
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`

	// MediaDir holds cache files and the papers_info.json output.
	MediaDir string `json:"media_dir" yaml:"media_dir"`

	// Concurrency is the maximum number of detail pages fetched at once (default 5).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxPapers limits how many listing entries are processed. Zero means all.
	MaxPapers int `json:"max_papers" yaml:"max_papers"`

	// Sections restricts which detail-page sections are merged into the
	// record. Empty merges every section.
	Sections []string `json:"sections,omitempty" yaml:"sections,omitempty"`

	// HTMLSample is an optional file holding one listing entry's HTML, sent
	// to the schema generator on a schema cache miss.
	HTMLSample string `json:"html_sample,omitempty" yaml:"html_sample,omitempty"`
}

// AIProvider selects the generative AI backend.
type AIProvider string

const (
	ProviderClaude AIProvider = "claude"
	ProviderGemini AIProvider = "gemini"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider is "claude" or "gemini".
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gemini-2.5-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxBackoff caps the delay between retries (default 30s).
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// StoreConfig holds settings for the relational store and PDF attachments.
type StoreConfig struct {
	HTTPConfig `yaml:",inline"`

	// DBPath is the SQLite database file (default "media/papers.db").
	DBPath string `json:"db_path" yaml:"db_path"`

	// PDFDir receives downloaded PDFs (default "media/pdf").
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir"`

	// DownloadPDFs controls whether Load fetches pdf_url attachments.
	DownloadPDFs bool `json:"download_pdfs" yaml:"download_pdfs"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Crawl CrawlConfig `json:"crawl" yaml:"crawl"`
	AI    AIConfig    `json:"ai" yaml:"ai"`
	Store StoreConfig `json:"store" yaml:"store"`
}
