package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Aman-CERP/findex/internal/features"
)

// SQLiteIndex stores records in an SQLite database with an FTS5 table for
// matching. WAL mode lets a search process read while a scan writes.
type SQLiteIndex struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ DocumentIndex = (*SQLiteIndex)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	name        TEXT NOT NULL,
	size        INTEGER NOT NULL,
	modified    INTEGER NOT NULL,
	created     INTEGER NOT NULL,
	extension   TEXT NOT NULL,
	is_text     INTEGER NOT NULL,
	is_dir      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_extension ON documents(extension);

-- doc_id is stored, not searchable. Text columns hold pre-tokenized terms.
CREATE VIRTUAL TABLE IF NOT EXISTS fts_content USING fts5(
	doc_id UNINDEXED,
	path,
	name,
	content,
	extension,
	trigrams,
	tokenize='unicode61'
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// validateSQLiteIntegrity checks an existing database before it is opened
// for writing. A missing database is valid.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open(SQLiteDriverName, path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name IN ('fts_content', 'documents')`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count != 2 {
		return fmt.Errorf("schema incomplete")
	}
	return nil
}

// NewSQLiteIndex opens or creates the database at path. An empty path
// creates an in-memory database. A corrupt database is removed first.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}

		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("sqlite_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
		dsn = path
	}

	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: a single writer, and :memory: stays one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteIndex{db: db, path: path}, nil
}

// Reset deletes every row in one transaction.
func (s *SQLiteIndex) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM fts_content", "DELETE FROM documents"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	}
	return tx.Commit()
}

// AddDocuments writes docs in one transaction. Existing rows for the same
// path are replaced.
func (s *SQLiteIndex) AddDocuments(ctx context.Context, docs []features.Record) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	docStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO documents
		(id, path, name, size, modified, created, extension, is_text, is_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare document statement: %w", err)
	}
	defer docStmt.Close()

	// FTS5 has no REPLACE, so delete first.
	delStmt, err := tx.PrepareContext(ctx, `DELETE FROM fts_content WHERE doc_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer delStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT INTO fts_content
		(doc_id, path, name, content, extension, trigrams) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS statement: %w", err)
	}
	defer ftsStmt.Close()

	for _, r := range docs {
		id := DocID(r.Path)
		if _, err := docStmt.ExecContext(ctx, id, r.Path, r.Name, r.Size,
			r.Modified.UnixNano(), r.Created.UnixNano(), r.Extension,
			boolInt(r.IsTextFile), boolInt(r.IsDir)); err != nil {
			return fmt.Errorf("failed to store document %s: %w", r.Path, err)
		}
		if _, err := delStmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to delete existing document %s: %w", r.Path, err)
		}

		content := ""
		if r.Content != nil {
			content = strings.Join(Tokenize(*r.Content), " ")
		}
		if _, err := ftsStmt.ExecContext(ctx, id,
			strings.Join(Tokenize(r.Path), " "),
			strings.Join(Tokenize(r.Name), " "),
			content,
			r.Extension,
			strings.Join(r.Trigrams, " ")); err != nil {
			return fmt.Errorf("failed to index document %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}

// Search runs an FTS5 MATCH ranked by bm25. Column weights favour the name.
func (s *SQLiteIndex) Search(ctx context.Context, q string, opts SearchOptions) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	match := ftsMatchExpr(q)
	if match == "" {
		return []Hit{}, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT d.path, d.name, d.size, d.modified, d.extension,
		bm25(fts_content, 0.0, 1.5, 3.0, 1.0, 2.0, 0.5) AS score
		FROM fts_content JOIN documents d ON d.id = fts_content.doc_id
		WHERE fts_content MATCH ?`)
	args := []any{match}
	if ext := opts.extension(); ext != "" {
		sb.WriteString(" AND d.extension = ?")
		args = append(args, ext)
	}
	if opts.TextOnly {
		sb.WriteString(" AND d.is_text = 1")
	}
	sb.WriteString(" ORDER BY score LIMIT ?")
	args = append(args, opts.limit())

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		// Malformed MATCH expressions are reported as no results.
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []Hit{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var (
			h        Hit
			modified int64
			score    float64
		)
		if err := rows.Scan(&h.Path, &h.Name, &h.Size, &modified, &h.Extension, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		h.Modified = time.Unix(0, modified)
		// bm25() is negative, lower is better.
		h.Score = -score
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsMatchExpr turns a free-text query into an FTS5 expression: every term
// as a prefix match, or every query trigram present.
func ftsMatchExpr(q string) string {
	terms := Tokenize(q)
	if len(terms) == 0 {
		return ""
	}

	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = ftsQuote(t) + "*"
	}
	expr := "(" + strings.Join(parts, " AND ") + ")"

	if grams := features.Trigrams(q); len(grams) > 0 {
		gparts := make([]string, len(grams))
		for i, g := range grams {
			gparts[i] = "trigrams : " + ftsQuote(g)
		}
		expr += " OR (" + strings.Join(gparts, " AND ") + ")"
	}
	return expr
}

func ftsQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Count returns the number of stored documents.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
