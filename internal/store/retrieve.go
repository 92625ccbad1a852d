// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// QueryOptions holds parameters for paper queries.
type QueryOptions struct {
	// Conference filters by conference name (case-insensitive).
	Conference string

	// Year filters by conference year. Zero means any year.
	Year int

	// Query is an FTS5 full-text search over title, abstract and reviews.
	Query string

	// HasCode keeps papers with a code repository link.
	HasCode bool

	// HasDataset keeps papers linked to at least one dataset.
	HasDataset bool

	// Limit caps the result count. Zero uses the store default.
	Limit int
}

// PaperRecord is a stored paper with its conference and local artifacts.
type PaperRecord struct {
	types.Paper `yaml:",inline"`

	ID         int64            `json:"id" yaml:"id"`
	Conference string           `json:"conference,omitempty" yaml:"conference,omitempty"`
	Year       int              `json:"year,omitempty" yaml:"year,omitempty"`
	PDFPath    string           `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`
	Info       *types.PaperInfo `json:"info,omitempty" yaml:"info,omitempty"`
}

const paperColumns = `p.id, p.title, p.authors, p.paper_url, p.doi, p.abstract, p.pdf_url,
	p.code_url, p.supp_materials, p.reviews, p.author_feedback, p.meta_review, p.extra,
	p.pdf_path, c.name, c.year`

// ListPapers returns stored papers matching opts. Full-text queries are
// ranked by relevance; other queries are ordered by conference and title.
func (s *Store) ListPapers(ctx context.Context, opts QueryOptions) ([]PaperRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(`SELECT ` + paperColumns + `
			FROM papers_fts
			JOIN papers p ON p.id = papers_fts.rowid
			LEFT JOIN conferences c ON c.id = p.conference_id
			WHERE papers_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + paperColumns + `
			FROM papers p
			LEFT JOIN conferences c ON c.id = p.conference_id
			WHERE 1=1`)
	}

	if opts.Conference != "" {
		qb.WriteString(` AND lower(c.name) = lower(?)`)
		args = append(args, opts.Conference)
	}
	if opts.Year != 0 {
		qb.WriteString(` AND c.year = ?`)
		args = append(args, opts.Year)
	}
	if opts.HasCode {
		qb.WriteString(` AND p.code_url IS NOT NULL AND p.code_url != ''`)
	}
	if opts.HasDataset {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM paper_datasets pd WHERE pd.paper_id = p.id)`)
	}

	if useFTS {
		qb.WriteString(` ORDER BY papers_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.name, c.year, p.title`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}

	var records []PaperRecord
	for rows.Next() {
		rec, err := scanPaper(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range records {
		if err := s.loadRelations(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// GetPaper looks a paper up by numeric id, DOI or paper URL.
func (s *Store) GetPaper(ctx context.Context, ref string) (*PaperRecord, error) {
	base := `SELECT ` + paperColumns + ` FROM papers p
		LEFT JOIN conferences c ON c.id = p.conference_id WHERE `

	var row *sql.Row
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		row = s.db.QueryRowContext(ctx, base+`p.id = ?`, id)
	} else {
		row = s.db.QueryRowContext(ctx, base+`p.doi = ? OR p.paper_url = ? LIMIT 1`, ref, ref)
	}

	rec, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*PaperRecord, error) {
	var (
		rec                                  PaperRecord
		authors, paperURL, doi, abstract     sql.NullString
		pdfURL, codeURL, supp, reviews       sql.NullString
		feedback, metaReview, extra, pdfPath sql.NullString
		confName                             sql.NullString
		confYear                             sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.Title, &authors, &paperURL, &doi, &abstract, &pdfURL,
		&codeURL, &supp, &reviews, &feedback, &metaReview, &extra,
		&pdfPath, &confName, &confYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning paper: %w", err)
	}

	rec.Authors = authors.String
	rec.PaperURL = paperURL.String
	rec.DOI = ptr(doi)
	rec.Abstract = abstract.String
	rec.PDFURL = ptr(pdfURL)
	rec.CodeURL = ptr(codeURL)
	rec.SuppMaterials = ptr(supp)
	rec.Reviews = reviews.String
	rec.AuthorFeedback = feedback.String
	rec.MetaReview = metaReview.String
	if extra.Valid && extra.String != "" {
		json.Unmarshal([]byte(extra.String), &rec.Extra)
	}
	rec.PDFPath = pdfPath.String
	rec.Conference = confName.String
	rec.Year = int(confYear.Int64)
	return &rec, nil
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return types.Str(ns.String)
}

// loadRelations fills the dataset map and paper_info of rec.
func (s *Store) loadRelations(ctx context.Context, rec *PaperRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.name, d.url FROM datasets d
		 JOIN paper_datasets pd ON pd.dataset_id = d.id
		 WHERE pd.paper_id = ? AND d.from_pdf = 0
		 ORDER BY d.name`, rec.ID)
	if err != nil {
		return fmt.Errorf("querying datasets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, url string
		if err := rows.Scan(&name, &url); err != nil {
			return fmt.Errorf("scanning dataset: %w", err)
		}
		if rec.Datasets == nil {
			rec.Datasets = make(map[string]string)
		}
		rec.Datasets[name] = url
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var mailJSON, datasetsJSON, codeURL sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT authors_mail, datasets, code_url FROM paper_info WHERE paper_id = ?`, rec.ID,
	).Scan(&mailJSON, &datasetsJSON, &codeURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("querying paper info: %w", err)
	}

	info := &types.PaperInfo{CodeURL: ptr(codeURL)}
	if mailJSON.Valid {
		json.Unmarshal([]byte(mailJSON.String), &info.AuthorsMail)
	}
	if datasetsJSON.Valid {
		json.Unmarshal([]byte(datasetsJSON.String), &info.Datasets)
	}
	rec.Info = info
	return nil
}
