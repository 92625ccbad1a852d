// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink delivers crawled papers: to the papers_info.json result file,
// and from there into the paper database together with their PDFs.
package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-harvest/internal/cache"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// PapersFile is the result file name written under the media directory.
const PapersFile = "papers_info.json"

// WriteJSON writes papers to path as an indented UTF-8 JSON array. The file
// is replaced atomically.
func WriteJSON(path string, papers []*types.Paper) error {
	if papers == nil {
		papers = []*types.Paper{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding papers: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return cache.WriteFileAtomic(path, buf.Bytes())
}

// ReadJSON reads a papers file written by WriteJSON.
func ReadJSON(path string) ([]*types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var papers []*types.Paper
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return papers, nil
}
