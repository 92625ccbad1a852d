// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists conferences, normalized papers, their datasets and
// AI-extracted PDF fields in SQLite, and answers queries over them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-harvest/pkg/types"
)

// ErrNotFound is returned when a paper lookup matches nothing.
var ErrNotFound = errors.New("paper not found")

const defaultMaxResults = 20

// Store manages the paper database.
type Store struct {
	db         *sql.DB
	path       string
	maxResults int
}

// Open opens or creates the database at cfg.DBPath and creates the schema
// if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, path: cfg.DBPath, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conferences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			year INTEGER NOT NULL,
			url TEXT,
			last_update TEXT,
			UNIQUE(name, year)
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			authors TEXT,
			paper_url TEXT UNIQUE,
			doi TEXT UNIQUE,
			abstract TEXT,
			pdf_url TEXT,
			code_url TEXT,
			supp_materials TEXT,
			reviews TEXT,
			author_feedback TEXT,
			meta_review TEXT,
			extra TEXT,
			conference_id INTEGER REFERENCES conferences(id),
			pdf_path TEXT,
			last_update TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_conference ON papers(conference_id)`,
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			from_pdf INTEGER NOT NULL DEFAULT 0,
			last_update TEXT,
			UNIQUE(name, url)
		)`,
		`CREATE TABLE IF NOT EXISTS paper_datasets (
			paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
			dataset_id INTEGER NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			PRIMARY KEY (paper_id, dataset_id)
		)`,
		`CREATE TABLE IF NOT EXISTS paper_info (
			paper_id INTEGER PRIMARY KEY REFERENCES papers(id) ON DELETE CASCADE,
			authors_mail TEXT,
			datasets TEXT,
			code_url TEXT,
			last_update TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS load_runs (
			id TEXT PRIMARY KEY,
			conference_id INTEGER REFERENCES conferences(id),
			source TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			created INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			pdfs INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, reviews, content=papers, content_rowid=id)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract, reviews)
				VALUES (new.id, new.title, new.abstract, new.reviews);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, reviews)
				VALUES ('delete', old.id, old.title, old.abstract, old.reviews);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract, reviews)
				VALUES ('delete', old.id, old.title, old.abstract, old.reviews);
				INSERT INTO papers_fts(rowid, title, abstract, reviews)
				VALUES (new.id, new.title, new.abstract, new.reviews);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// nullable maps "" to NULL so UNIQUE columns tolerate missing values.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullablePtr(s *string) any {
	if s == nil {
		return nil
	}
	return nullable(*s)
}

// UpsertConference returns the id of the conference with c's name and
// year, creating it when absent. The second result reports creation.
func (s *Store) UpsertConference(ctx context.Context, c types.Conference) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conferences WHERE name = ? AND year = ?`, c.Name, c.Year,
	).Scan(&id)
	switch {
	case err == nil:
		_, err = s.db.ExecContext(ctx,
			`UPDATE conferences SET url = ?, last_update = ? WHERE id = ?`, c.URL, now(), id)
		if err != nil {
			return 0, false, fmt.Errorf("updating conference %s: %w", c, err)
		}
		return id, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("looking up conference %s: %w", c, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conferences (name, year, url, last_update) VALUES (?, ?, ?, ?)`,
		c.Name, c.Year, c.URL, now())
	if err != nil {
		return 0, false, fmt.Errorf("inserting conference %s: %w", c, err)
	}
	id, err = res.LastInsertId()
	return id, true, err
}

// UpsertPaper stores p under conferenceID. An existing row is matched by
// paper_url first, then by DOI, and overwritten; otherwise a row is created.
// Datasets are linked in the same transaction, replacing earlier links.
func (s *Store) UpsertPaper(ctx context.Context, conferenceID int64, p *types.Paper) (id int64, created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err = findPaper(ctx, tx, p)
	if err != nil {
		return 0, false, err
	}

	extra := ""
	if len(p.Extra) > 0 {
		data, _ := json.Marshal(p.Extra)
		extra = string(data)
	}
	args := []any{
		p.Title, p.Authors, nullable(p.PaperURL), nullablePtr(p.DOI), p.Abstract,
		nullablePtr(p.PDFURL), nullablePtr(p.CodeURL), nullablePtr(p.SuppMaterials),
		p.Reviews, p.AuthorFeedback, p.MetaReview, nullable(extra), conferenceID, now(),
	}

	if id != 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE papers SET title=?, authors=?, paper_url=?, doi=?, abstract=?,
				pdf_url=?, code_url=?, supp_materials=?, reviews=?, author_feedback=?,
				meta_review=?, extra=?, conference_id=?, last_update=?
			 WHERE id = ?`,
			append(args, id)...)
		if err != nil {
			return 0, false, fmt.Errorf("updating paper %q: %w", p.Title, err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO papers (title, authors, paper_url, doi, abstract, pdf_url, code_url,
				supp_materials, reviews, author_feedback, meta_review, extra, conference_id, last_update)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			args...)
		if err != nil {
			return 0, false, fmt.Errorf("inserting paper %q: %w", p.Title, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, false, err
		}
		created = true
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM paper_datasets WHERE paper_id = ?`, id); err != nil {
		return 0, false, fmt.Errorf("clearing dataset links: %w", err)
	}
	for name, url := range p.Datasets {
		if err := linkDataset(ctx, tx, id, types.Dataset{Name: name, URL: url}); err != nil {
			return 0, false, err
		}
	}

	return id, created, tx.Commit()
}

func findPaper(ctx context.Context, tx *sql.Tx, p *types.Paper) (int64, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"paper_url", p.PaperURL},
		{"doi", types.Deref(p.DOI)},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM papers WHERE `+l.column+` = ?`, l.value).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("looking up paper by %s: %w", l.column, err)
		}
	}
	return 0, nil
}

func linkDataset(ctx context.Context, tx *sql.Tx, paperID int64, d types.Dataset) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, url, from_pdf, last_update) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name, url) DO UPDATE SET last_update=excluded.last_update`,
		d.Name, d.URL, d.FromPDF, now())
	if err != nil {
		return fmt.Errorf("upserting dataset %s: %w", d.Name, err)
	}

	var datasetID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM datasets WHERE name = ? AND url = ?`, d.Name, d.URL,
	).Scan(&datasetID); err != nil {
		return fmt.Errorf("looking up dataset %s: %w", d.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO paper_datasets (paper_id, dataset_id) VALUES (?, ?)`,
		paperID, datasetID); err != nil {
		return fmt.Errorf("linking dataset %s: %w", d.Name, err)
	}
	return nil
}

// SetPDFPath records the local file downloaded for a paper.
func (s *Store) SetPDFPath(ctx context.Context, paperID int64, path string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE papers SET pdf_path = ?, last_update = ? WHERE id = ?`, path, now(), paperID)
	if err != nil {
		return fmt.Errorf("setting pdf path: %w", err)
	}
	return nil
}

// SavePaperInfo stores AI-extracted PDF fields for a paper and links the
// datasets it names, flagged as coming from the PDF.
func (s *Store) SavePaperInfo(ctx context.Context, paperID int64, info *types.PaperInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	mailJSON, _ := json.Marshal(info.AuthorsMail)
	datasetsJSON, _ := json.Marshal(info.Datasets)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO paper_info (paper_id, authors_mail, datasets, code_url, last_update)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET
			authors_mail=excluded.authors_mail, datasets=excluded.datasets,
			code_url=excluded.code_url, last_update=excluded.last_update`,
		paperID, string(mailJSON), string(datasetsJSON), nullablePtr(info.CodeURL), now())
	if err != nil {
		return fmt.Errorf("upserting paper info: %w", err)
	}

	for name, url := range info.Datasets {
		if err := linkDataset(ctx, tx, paperID, types.Dataset{Name: name, URL: url, FromPDF: true}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRun records one execution of the loader.
type LoadRun struct {
	ID           string `json:"id" yaml:"id"`
	ConferenceID int64  `json:"conference_id" yaml:"conference_id"`
	Source       string `json:"source" yaml:"source"`
	StartedAt    string `json:"started_at" yaml:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Created      int    `json:"created" yaml:"created"`
	Updated      int    `json:"updated" yaml:"updated"`
	PDFs         int    `json:"pdfs" yaml:"pdfs"`
	Failed       int    `json:"failed" yaml:"failed"`
}

// StartRun opens a load run for conferenceID and returns it with a fresh id.
func (s *Store) StartRun(ctx context.Context, conferenceID int64, source string) (*LoadRun, error) {
	run := &LoadRun{ID: uuid.NewString(), ConferenceID: conferenceID, Source: source, StartedAt: now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO load_runs (id, conference_id, source, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.ConferenceID, run.Source, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("starting load run: %w", err)
	}
	return run, nil
}

// FinishRun stores the final counts of run.
func (s *Store) FinishRun(ctx context.Context, run *LoadRun) error {
	run.FinishedAt = now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE load_runs SET finished_at=?, created=?, updated=?, pdfs=?, failed=? WHERE id=?`,
		run.FinishedAt, run.Created, run.Updated, run.PDFs, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("finishing load run %s: %w", run.ID, err)
	}
	return nil
}

// Runs returns the most recent load runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]LoadRun, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conference_id, source, started_at, finished_at, created, updated, pdfs, failed
		 FROM load_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying load runs: %w", err)
	}
	defer rows.Close()

	var runs []LoadRun
	for rows.Next() {
		var (
			r        LoadRun
			source   sql.NullString
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ConferenceID, &source, &r.StartedAt, &finished,
			&r.Created, &r.Updated, &r.PDFs, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning load run: %w", err)
		}
		r.Source = source.String
		r.FinishedAt = finished.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
