// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls generative AI APIs for the two model-backed steps of
// the harvest: generating a listing extraction schema and reading author
// e-mails, datasets and code links out of a paper's full text.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Completer sends one prompt to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// backoffBase is the first retry delay. Tests override it to avoid sleeps.
var backoffBase = time.Second

const (
	defaultMaxRetries = 5
	defaultMaxBackoff = 30 * time.Second
)

// Client wraps a Completer with bounded retries and response parsing.
type Client struct {
	Backend    Completer
	MaxRetries int
	MaxBackoff time.Duration
}

// New returns a client for the provider named in cfg.
func New(cfg types.AIConfig, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for %s", cfg.Provider)
	}

	var backend Completer
	switch cfg.Provider {
	case types.ProviderClaude, "":
		backend = &Claude{APIKey: cfg.APIKey, Model: cfg.Model, Client: httpClient}
	case types.ProviderGemini:
		backend = &Gemini{APIKey: cfg.APIKey, Model: cfg.Model, Client: httpClient}
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	return &Client{Backend: backend, MaxRetries: cfg.MaxRetries, MaxBackoff: cfg.MaxBackoff}, nil
}

// GenerateSchema asks the model for a JSON-CSS schema that reads the
// listing in htmlSample according to goal.
func (c *Client) GenerateSchema(ctx context.Context, htmlSample, goal string) (json.RawMessage, error) {
	prompt, err := render(schemaPromptTmpl, schemaPromptData{Goal: goal, HTML: truncate(htmlSample, maxSampleBytes)})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var probe struct {
		BaseSelector string            `json:"baseSelector"`
		Fields       []json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.BaseSelector == "" || len(probe.Fields) == 0 {
		return nil, fmt.Errorf("model reply is not a JSON-CSS schema: %s", truncate(string(raw), 120))
	}
	return raw, nil
}

// ExtractPaperInfo asks the model for author e-mails, datasets and the code
// URL found in a paper's full text.
func (c *Client) ExtractPaperInfo(ctx context.Context, text string) (*types.PaperInfo, error) {
	prompt, err := render(paperInfoPromptTmpl, paperInfoPromptData{Paper: truncate(text, maxPaperBytes)})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	reply, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}
	var info types.PaperInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parsing paper info JSON: %w", err)
	}
	if info.CodeURL != nil && strings.TrimSpace(*info.CodeURL) == "" {
		info.CodeURL = nil
	}
	return &info, nil
}

// complete calls the backend, retrying failures with exponential backoff
// capped at MaxBackoff, up to MaxRetries retries.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	maxBackoff := c.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(httputil.Backoff(attempt-1, backoffBase, maxBackoff)):
			}
		}

		text, err := c.Backend.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// extractJSON returns the outermost JSON object in a model reply, which may
// be wrapped in a markdown code fence or surrounded by prose.
func extractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model reply: %s", truncate(text, 120))
	}
	raw := json.RawMessage(text[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON in model reply: %s", truncate(string(raw), 120))
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
