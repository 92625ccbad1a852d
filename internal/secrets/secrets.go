// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files and
// from dotenv files. In a secrets directory each file is one secret: the
// filename is the key name and the trimmed contents are the value.
//
// Recognized keys: anthropic-api-key, gemini-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name := entry.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// LoadEnv reads dotenv files into the process environment. Variables that
// are already set win over file values. Missing files are skipped; the
// names of files that were read are returned.
func LoadEnv(files ...string) ([]string, error) {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

var (
	keyFiles = map[types.AIProvider]string{
		types.ProviderClaude: "anthropic-api-key",
		types.ProviderGemini: "gemini-api-key",
	}
	keyEnv = map[types.AIProvider][]string{
		types.ProviderClaude: {"ANTHROPIC_API_KEY"},
		types.ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}
)

// APIKey returns the key for provider from the loaded secrets, falling back
// to the provider's environment variables. Empty means not found.
func APIKey(secrets map[string]string, provider types.AIProvider) string {
	if provider == "" {
		provider = types.ProviderClaude
	}
	if v := secrets[keyFiles[provider]]; v != "" {
		return v
	}
	for _, name := range keyEnv[provider] {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
