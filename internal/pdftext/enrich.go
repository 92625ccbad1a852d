// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/paper-harvest/internal/store"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// InfoExtractor reads structured fields out of a paper's full text.
type InfoExtractor interface {
	ExtractPaperInfo(ctx context.Context, text string) (*types.PaperInfo, error)
}

// Enricher stores model-extracted paper info for papers with a PDF.
type Enricher struct {
	Store *store.Store
	Model InfoExtractor
}

// Enrich reads the text at path (a PDF or .txt) and saves the extracted
// info for the paper identified by ref (id, DOI or paper URL). An empty
// path uses the paper's stored PDF.
func (e *Enricher) Enrich(ctx context.Context, ref, path string) (*types.PaperInfo, error) {
	rec, err := e.Store.GetPaper(ctx, ref)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = rec.PDFPath
	}
	if path == "" {
		return nil, fmt.Errorf("paper %d has no PDF", rec.ID)
	}

	text, err := Read(path)
	if err != nil {
		return nil, err
	}
	info, err := e.Model.ExtractPaperInfo(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extracting info for paper %d: %w", rec.ID, err)
	}
	if err := e.Store.SavePaperInfo(ctx, rec.ID, info); err != nil {
		return nil, err
	}
	return info, nil
}

// EnrichAll runs Enrich for every paper matching opts that has a PDF and no
// stored info. Failures are reported to w and counted; they do not stop the
// batch.
func (e *Enricher) EnrichAll(ctx context.Context, opts store.QueryOptions, w io.Writer) (done, failed int, err error) {
	recs, err := e.Store.ListPapers(ctx, opts)
	if err != nil {
		return 0, 0, err
	}

	for _, rec := range recs {
		if rec.PDFPath == "" || rec.Info != nil {
			continue
		}
		if ctx.Err() != nil {
			return done, failed, ctx.Err()
		}
		ref := fmt.Sprint(rec.ID)
		if _, err := e.Enrich(ctx, ref, rec.PDFPath); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", rec.Title, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "enriched: %s\n", rec.Title)
		done++
	}
	fmt.Fprintf(w, "\nInfo summary: %d enriched, %d failed\n", done, failed)
	return done, failed, nil
}
