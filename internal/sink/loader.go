// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/internal/store"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// ErrNotPDF is returned when a downloaded body does not start with the PDF
// magic bytes.
var ErrNotPDF = errors.New("downloaded file is not a valid PDF")

var pdfMagic = []byte("%PDF")

// Loader upserts papers into the store and attaches their PDFs.
type Loader struct {
	Store  *store.Store
	Client *http.Client
	Config types.StoreConfig
}

// NewLoader returns a loader with an HTTP client using cfg's timeout.
func NewLoader(st *store.Store, cfg types.StoreConfig) *Loader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{Store: st, Client: &http.Client{Timeout: timeout}, Config: cfg}
}

// Load stores papers under conf and records the run. Per-paper failures are
// logged to w and counted; they do not stop the batch. PDF download
// problems leave the paper without an attached file.
func (l *Loader) Load(ctx context.Context, conf types.Conference, papers []*types.Paper, source string, w io.Writer) (*store.LoadRun, error) {
	fmt.Fprintf(w, "Loading %d papers for %s %d...\n", len(papers), conf.Name, conf.Year)

	confID, created, err := l.Store.UpsertConference(ctx, conf)
	if err != nil {
		return nil, err
	}
	if created {
		fmt.Fprintf(w, "created conference: %s %d\n", conf.Name, conf.Year)
	} else {
		fmt.Fprintf(w, "using conference:   %s %d\n", conf.Name, conf.Year)
	}

	run, err := l.Store.StartRun(ctx, confID, source)
	if err != nil {
		return nil, err
	}

	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			l.Store.FinishRun(context.WithoutCancel(ctx), run)
			return run, err
		}

		id, created, err := l.Store.UpsertPaper(ctx, confID, p)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", p.Title, err)
			run.Failed++
			continue
		}
		if created {
			fmt.Fprintf(w, "created: %s\n", p.Title)
			run.Created++
		} else {
			fmt.Fprintf(w, "updated: %s\n", p.Title)
			run.Updated++
		}

		if !l.Config.DownloadPDFs || p.PDFURL == nil {
			continue
		}
		pdfPath, err := l.attachPDF(ctx, conf, *p.PDFURL, w)
		if err != nil {
			fmt.Fprintf(w, "  warning: no PDF attached: %v\n", err)
			continue
		}
		if err := l.Store.SetPDFPath(ctx, id, pdfPath); err != nil {
			fmt.Fprintf(w, "  warning: %v\n", err)
			continue
		}
		run.PDFs++
	}

	if err := l.Store.FinishRun(ctx, run); err != nil {
		return run, err
	}

	fmt.Fprintf(w, "\nLoad summary: %d created, %d updated, %d PDFs, %d failed (total: %d)\n",
		run.Created, run.Updated, run.PDFs, run.Failed, len(papers))
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	return run, nil
}

func (l *Loader) attachPDF(ctx context.Context, conf types.Conference, pdfURL string, w io.Writer) (string, error) {
	name, err := PDFName(conf, pdfURL)
	if err != nil {
		return "", err
	}
	destPath := filepath.Join(l.Config.PDFDir, name)

	if _, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(w, "  skipped: %s (already exists)\n", name)
		return destPath, nil
	}

	if err := os.MkdirAll(l.Config.PDFDir, 0o755); err != nil {
		return "", fmt.Errorf("creating PDF directory: %w", err)
	}

	fmt.Fprintf(w, "  downloading: %s\n", pdfURL)
	if err := DownloadPDF(ctx, l.Client, pdfURL, destPath, l.Config.HTTPConfig); err != nil {
		return "", err
	}
	fmt.Fprintf(w, "  saved: %s\n", destPath)
	return destPath, nil
}

// PDFName returns the local file name for a PDF of conf:
// <name>_<year>_<basename of the URL path>.
func PDFName(conf types.Conference, pdfURL string) (string, error) {
	u, err := url.Parse(pdfURL)
	if err != nil {
		return "", fmt.Errorf("parsing PDF URL: %w", err)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("PDF URL %s has no file name", pdfURL)
	}
	return fmt.Sprintf("%s_%d_%s", conf.Name, conf.Year, base), nil
}

// DownloadPDF streams url to destPath through a temp file. The body must
// start with %PDF; otherwise ErrNotPDF is returned and nothing is written.
func DownloadPDF(ctx context.Context, client *http.Client, url, destPath string, cfg types.HTTPConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	head, _ := body.Peek(len(pdfMagic))
	if string(head) != string(pdfMagic) {
		return fmt.Errorf("%w: %s", ErrNotPDF, url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
