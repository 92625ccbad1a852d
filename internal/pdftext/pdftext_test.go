// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/internal/store"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

func TestTextPath(t *testing.T) {
	assert.Equal(t, "media/pdf/MICCAI_2025_paper.txt", TextPath("media/pdf/MICCAI_2025_paper.pdf"))
	assert.Equal(t, "paper.txt", TextPath("paper"))
}

func TestExtract_Errors(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("<html>not a pdf</html>"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.pdf")},
		{name: "not a pdf", path: notPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.path)
			require.Error(t, err)

			_, err = ExtractToFile(tt.path)
			require.Error(t, err)
			_, statErr := os.Stat(TextPath(tt.path))
			assert.True(t, os.IsNotExist(statErr), "no text file on failure")
		})
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))
	got, err := Read(txt)
	require.NoError(t, err)
	assert.Equal(t, "plain text", got)

	// A sibling .txt written by an earlier extraction is used instead of
	// parsing the PDF again.
	pdfPath := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 broken"), 0o644))
	require.NoError(t, os.WriteFile(TextPath(pdfPath), []byte("extracted earlier\n"), 0o644))
	got, err = Read(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "extracted earlier\n", got)

	_, err = Read(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}

// --- enricher ---

type fakeModel struct {
	texts []string
	err   error
}

func (f *fakeModel) ExtractPaperInfo(_ context.Context, text string) (*types.PaperInfo, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return &types.PaperInfo{
		AuthorsMail: map[string]string{"ada@uni.edu": "Ada Lovelace"},
		Datasets:    map[string]string{"ISIC": "https://isic-archive.com"},
		CodeURL:     types.Str("https://github.com/ada/engine"),
	}, nil
}

func seed(t *testing.T, titles ...string) (*store.Store, []int64, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	s, err := store.Open(types.StoreConfig{DBPath: filepath.Join(dir, "papers.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	confID, _, err := s.UpsertConference(ctx, types.Conference{Name: "MICCAI", Year: 2025, URL: "https://papers.miccai.org"})
	require.NoError(t, err)

	var ids []int64
	for i, title := range titles {
		id, _, err := s.UpsertPaper(ctx, confID, &types.Paper{
			Title:    title,
			PaperURL: fmt.Sprintf("https://papers.miccai.org/%d.html", i),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return s, ids, dir
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()
	s, ids, dir := seed(t, "Paper A")

	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Ada Lovelace ada@uni.edu"), 0o644))

	model := &fakeModel{}
	e := &Enricher{Store: s, Model: model}
	info, err := e.Enrich(ctx, fmt.Sprint(ids[0]), txt)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", info.AuthorsMail["ada@uni.edu"])
	assert.Equal(t, []string{"Ada Lovelace ada@uni.edu"}, model.texts)

	rec, err := s.GetPaper(ctx, fmt.Sprint(ids[0]))
	require.NoError(t, err)
	require.NotNil(t, rec.Info)
	assert.Equal(t, "https://github.com/ada/engine", *rec.Info.CodeURL)
}

func TestEnrich_Errors(t *testing.T) {
	ctx := context.Background()
	s, ids, dir := seed(t, "Paper A")
	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("text"), 0o644))

	e := &Enricher{Store: s, Model: &fakeModel{}}
	_, err := e.Enrich(ctx, "9999", txt)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.Enrich(ctx, fmt.Sprint(ids[0]), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no PDF")

	e.Model = &fakeModel{err: errors.New("quota exceeded")}
	_, err = e.Enrich(ctx, fmt.Sprint(ids[0]), txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestEnrichAll(t *testing.T) {
	ctx := context.Background()
	s, ids, dir := seed(t, "Paper A", "Paper B", "Paper C")

	// A and B have PDFs with pre-extracted text; C has none.
	for i, id := range ids[:2] {
		pdfPath := filepath.Join(dir, fmt.Sprintf("p%d.pdf", i))
		require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644))
		require.NoError(t, os.WriteFile(TextPath(pdfPath), []byte(fmt.Sprintf("text %d", i)), 0o644))
		require.NoError(t, s.SetPDFPath(ctx, id, pdfPath))
	}

	model := &fakeModel{}
	e := &Enricher{Store: s, Model: model}
	var out bytes.Buffer
	done, failed, err := e.EnrichAll(ctx, store.QueryOptions{}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, done)
	assert.Equal(t, 0, failed)
	assert.Len(t, model.texts, 2)
	assert.Contains(t, out.String(), "Info summary: 2 enriched, 0 failed")

	// Papers with stored info are not sent again.
	done, _, err = e.EnrichAll(ctx, store.QueryOptions{}, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, done)
	assert.Len(t, model.texts, 2)
}
