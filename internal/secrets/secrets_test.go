// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "  ak_abc123  \n")
				writeFile(t, dir, "gemini-api-key", "gk_xyz789")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_abc123",
				"gemini-api-key":    "gk_xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "gemini-api-key", "valid-key")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				return dir
			},
			want: map[string]string{
				"gemini-api-key": "valid-key",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PAPER_HARVEST_TEST_A=from-file\nPAPER_HARVEST_TEST_B=file-b\n")
	t.Setenv("PAPER_HARVEST_TEST_A", "")
	os.Unsetenv("PAPER_HARVEST_TEST_A")
	t.Setenv("PAPER_HARVEST_TEST_B", "from-env")

	loaded, err := LoadEnv(filepath.Join(dir, ".env"), filepath.Join(dir, ".env.llm"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, loaded)
	assert.Equal(t, "from-file", os.Getenv("PAPER_HARVEST_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("PAPER_HARVEST_TEST_B"))
}

func TestAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-env")

	s := map[string]string{"anthropic-api-key": "ak_file"}
	assert.Equal(t, "ak_file", APIKey(s, types.ProviderClaude))
	assert.Equal(t, "ak_file", APIKey(s, ""))
	assert.Equal(t, "google-env", APIKey(s, types.ProviderGemini))

	t.Setenv("GEMINI_API_KEY", "gemini-env")
	assert.Equal(t, "gemini-env", APIKey(nil, types.ProviderGemini))
	assert.Empty(t, APIKey(nil, "unknown"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
