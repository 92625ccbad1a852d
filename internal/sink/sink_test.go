// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-harvest/internal/store"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

func TestWriteReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media", PapersFile)
	papers := []*types.Paper{
		{
			Title:    "Segmenting Everything",
			Authors:  "Smith J, Doe A",
			PaperURL: "https://conf.example/p/1.html?a=1&b=2",
			DOI:      nil,
			Datasets: map[string]string{"BraTS": "https://brats.org"},
		},
		{Title: "Ünïcode Title", PaperURL: "https://conf.example/p/2.html"},
	}

	require.NoError(t, WriteJSON(path, papers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "[\n    {"), "indented array")
	assert.Contains(t, text, `"doi": null`)
	assert.Contains(t, text, "a=1&b=2", "URLs are not HTML-escaped")
	assert.Contains(t, text, "Ünïcode Title")

	got, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, papers, got)
}

func TestWriteJSON_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), PapersFile)
	require.NoError(t, WriteJSON(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestReadJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = ReadJSON(bad)
	assert.ErrorContains(t, err, "parsing")
}

func TestPDFName(t *testing.T) {
	conf := types.Conference{Name: "MICCAI", Year: 2025}

	name, err := PDFName(conf, "https://papers.miccai.org/pdf/0001_paper.pdf?dl=1")
	require.NoError(t, err)
	assert.Equal(t, "MICCAI_2025_0001_paper.pdf", name)

	_, err = PDFName(conf, "https://papers.miccai.org/")
	assert.Error(t, err)
}

func pdfServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.pdf":
			w.Write([]byte("%PDF-1.7\nfake pdf body"))
		case "/html.pdf":
			w.Write([]byte("<html>login required</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadPDF(t *testing.T) {
	srv := pdfServer(t)
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		dest := filepath.Join(dir, "ok.pdf")
		require.NoError(t, DownloadPDF(ctx, srv.Client(), srv.URL+"/ok.pdf", dest, types.HTTPConfig{}))
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	})

	t.Run("not a pdf", func(t *testing.T) {
		dest := filepath.Join(dir, "html.pdf")
		err := DownloadPDF(ctx, srv.Client(), srv.URL+"/html.pdf", dest, types.HTTPConfig{})
		assert.ErrorIs(t, err, ErrNotPDF)
		assert.NoFileExists(t, dest)
	})

	t.Run("http error", func(t *testing.T) {
		err := DownloadPDF(ctx, srv.Client(), srv.URL+"/missing.pdf", filepath.Join(dir, "m.pdf"), types.HTTPConfig{})
		assert.ErrorContains(t, err, "HTTP 404")
	})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLoader_Load(t *testing.T) {
	srv := pdfServer(t)
	dir := t.TempDir()
	ctx := context.Background()

	cfg := types.StoreConfig{
		DBPath:       filepath.Join(dir, "papers.db"),
		PDFDir:       filepath.Join(dir, "pdf"),
		DownloadPDFs: true,
	}
	st, err := store.Open(cfg)
	require.NoError(t, err)
	defer st.Close()

	loader := NewLoader(st, cfg)
	loader.Client = srv.Client()
	conf := types.Conference{Name: "MICCAI", Year: 2025, URL: "https://papers.miccai.org/miccai-2025"}

	papers := []*types.Paper{
		{Title: "With PDF", PaperURL: "https://x/1", PDFURL: types.Str(srv.URL + "/ok.pdf"), DOI: types.Str("10.1/a")},
		{Title: "Bad PDF", PaperURL: "https://x/2", PDFURL: types.Str(srv.URL + "/html.pdf")},
		{Title: "No PDF", PaperURL: "https://x/3"},
		{Title: "Duplicate DOI", PaperURL: "https://x/4", DOI: types.Str("10.1/a")},
	}

	var buf bytes.Buffer
	run, err := loader.Load(ctx, conf, papers, "papers_info.json", &buf)
	require.NoError(t, err)

	assert.Equal(t, 3, run.Created)
	assert.Equal(t, 1, run.Updated, "a DOI match updates the existing paper")
	assert.Equal(t, 1, run.PDFs)
	assert.Equal(t, 0, run.Failed)

	out := buf.String()
	assert.Contains(t, out, "created conference: MICCAI 2025")
	assert.Contains(t, out, "warning: no PDF attached")
	assert.Contains(t, out, "Load summary: 3 created, 1 updated, 1 PDFs, 0 failed (total: 4)")
	assert.FileExists(t, filepath.Join(cfg.PDFDir, "MICCAI_2025_ok.pdf"))

	rec, err := st.GetPaper(ctx, "10.1/a")
	require.NoError(t, err)
	assert.Equal(t, "Duplicate DOI", rec.Title)
	assert.Equal(t, filepath.Join(cfg.PDFDir, "MICCAI_2025_ok.pdf"), rec.PDFPath)

	// A second load reuses the conference and existing PDF files.
	buf.Reset()
	run, err = loader.Load(ctx, conf, papers[:1], "papers_info.json", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Updated)
	assert.Equal(t, 1, run.PDFs)
	assert.Contains(t, buf.String(), "using conference:")
	assert.Contains(t, buf.String(), "skipped: MICCAI_2025_ok.pdf (already exists)")

	runs, err := st.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
