// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the papers matching opts to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, path string, opts QueryOptions) (int, error) {
	records, err := s.exportRecords(ctx, opts)
	if err != nil {
		return 0, err
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("marshaling YAML: %w", err)
	}
	return len(records), writeExport(path, data)
}

// ExportJSON writes the papers matching opts to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, path string, opts QueryOptions) (int, error) {
	records, err := s.exportRecords(ctx, opts)
	if err != nil {
		return 0, err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshaling JSON: %w", err)
	}
	return len(records), writeExport(path, append(data, '\n'))
}

func (s *Store) exportRecords(ctx context.Context, opts QueryOptions) ([]PaperRecord, error) {
	opts.Limit = exportLimit
	records, err := s.ListPapers(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []PaperRecord{}
	}
	return records, nil
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
