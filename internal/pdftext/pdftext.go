// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext extracts plain text from downloaded paper PDFs and feeds
// it to a model that reads author e-mails, datasets and code links.
package pdftext

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/paper-harvest/internal/cache"
)

// ErrNoText is returned when a PDF holds no extractable text, as with
// scanned documents.
var ErrNoText = errors.New("no extractable text in PDF")

// Extract returns the plain text of the PDF at path.
func Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, reader); err != nil {
		return "", fmt.Errorf("reading text from %s: %w", path, err)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// TextPath returns the .txt file that ExtractToFile writes for path.
func TextPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
}

// ExtractToFile extracts the text of the PDF at path into a .txt file next
// to it and returns the text file's path.
func ExtractToFile(path string) (string, error) {
	text, err := Extract(path)
	if err != nil {
		return "", err
	}
	out := TextPath(path)
	if err := cache.WriteFileAtomic(out, []byte(text+"\n")); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return out, nil
}

// Read returns the text for path: a .txt file is read as is, anything else
// is extracted as a PDF. A .txt file previously written next to a PDF is
// preferred over re-extraction.
func Read(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if data, err := os.ReadFile(TextPath(path)); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return string(data), nil
	}
	return Extract(path)
}
