// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists the JSON snapshots that let a crawl skip repeat
// expensive work: the listing page extraction and the generated schema.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Base names of the well-known cache entries.
const (
	ListingKey = "home"
	SchemaKey  = "home_schema"
)

// ErrNotFound is returned by Get when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// Store reads and writes cache entries by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Key returns the cache key for base tagged with an optional variant,
// e.g. Key("home", "gemini") is "home_gemini".
func Key(base, variant string) string {
	if variant == "" {
		return base
	}
	return base + "_" + variant
}

// GetJSON decodes the entry at key into v. It returns ErrNotFound on a miss
// and a wrapped decode error for a malformed entry.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding cache entry %s: %w", key, err)
	}
	return nil
}

// PutJSON stores v at key as indented JSON.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return s.Put(ctx, key, append(data, '\n'))
}

// File stores entries as <dir>/<key>.json.
type File struct {
	Dir string
}

// NewFile returns a file-backed store rooted at dir.
func NewFile(dir string) *File {
	return &File{Dir: dir}
}

// Path returns the file backing key.
func (f *File) Path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}

// Get reads the file for key.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading cache %s: %w", f.Path(key), err)
	}
	return data, nil
}

// Put writes data for key through a temporary file and rename, so a crash
// never leaves a half-written cache entry behind.
func (f *File) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", f.Dir, err)
	}
	return WriteFileAtomic(f.Path(key), data)
}

// WriteFileAtomic writes data to path via a temp file in the same directory.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Memory is an in-process Store, used by tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	puts    int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get returns a copy of the entry for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data under key.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.entries[key] = append([]byte(nil), data...)
	return nil
}

// Puts reports how many writes the store has received.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
