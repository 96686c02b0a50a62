package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"modernc.org/sqlite"

	"github.com/lehigh-university-libraries/coverscan/internal/models"
	"github.com/lehigh-university-libraries/coverscan/internal/textsim"
)

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	authors TEXT NOT NULL DEFAULT '[]',
	cover_url TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	year TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	search_title TEXT NOT NULL DEFAULT '',
	search_authors TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
`

// SQLite's LIKE folds ASCII only, so matching runs against lower-cased
// copies of title and authors kept next to the display values.
var searchColumns = []string{"search_title", "search_authors"}

var registerFuncs = sync.OnceValue(func() error {
	return sqlite.RegisterDeterministicScalarFunction("title_similarity", 2,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			a, _ := args[0].(string)
			b, _ := args[1].(string)
			return textsim.Similarity(a, b), nil
		})
})

// SQLiteStore implements the Store interface for local SQLite storage
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
	}
}

// Connect opens a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	if err := registerFuncs(); err != nil {
		return fmt.Errorf("failed to register sqlite functions: %w", err)
	}
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	return nil
}

// EnsureSchema creates the books table if it doesn't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, booksSchema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return s.migrateSearchColumns(ctx)
}

// migrateSearchColumns adds and backfills the search columns on databases
// created before they existed.
func (s *SQLiteStore) migrateSearchColumns(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('books')`)
	if err != nil {
		return fmt.Errorf("failed to inspect table: %w", err)
	}
	existing := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to inspect table: %w", err)
		}
		existing[name] = true
	}
	rows.Close()

	added := false
	for _, col := range searchColumns {
		if existing[col] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE books ADD COLUMN %s TEXT NOT NULL DEFAULT ''`, col)); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
		added = true
	}
	if !added {
		return nil
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, title, authors FROM books`)
	if err != nil {
		return fmt.Errorf("failed to read books: %w", err)
	}
	type backfill struct{ id, title, authors string }
	var pending []backfill
	for rows.Next() {
		var id, title, authorsJSON string
		if err := rows.Scan(&id, &title, &authorsJSON); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan book: %w", err)
		}
		var authors []string
		if err := json.Unmarshal([]byte(authorsJSON), &authors); err != nil {
			rows.Close()
			return fmt.Errorf("failed to decode authors for %s: %w", id, err)
		}
		pending = append(pending, backfill{id: id, title: strings.ToLower(title), authors: searchAuthors(authors)})
	}
	rows.Close()

	for _, b := range pending {
		if _, err := s.db.ExecContext(ctx, `UPDATE books SET search_title = ?, search_authors = ? WHERE id = ?`,
			b.title, b.authors, b.id); err != nil {
			return fmt.Errorf("failed to backfill %s: %w", b.id, err)
		}
	}
	return nil
}

// ImportRecords upserts records in one transaction. Records without a
// status are imported as approved.
func (s *SQLiteStore) ImportRecords(ctx context.Context, records []models.CatalogRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO books
		(id, title, authors, cover_url, isbn, publisher, year, description, status, search_title, search_authors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if rec.ID == "" {
			return 0, fmt.Errorf("failed to insert record %q: missing id", rec.Title)
		}
		authors := rec.Authors
		if authors == nil {
			authors = []string{}
		}
		authorsJSON, err := encodeAuthors(authors)
		if err != nil {
			return 0, fmt.Errorf("failed to encode authors: %w", err)
		}
		status := rec.Status
		if status == "" {
			status = models.StatusApproved
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Title, authorsJSON, rec.CoverURL,
			rec.ISBN, rec.Publisher, rec.Year, rec.Description, status,
			strings.ToLower(rec.Title), searchAuthors(authors)); err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(records), nil
}

// FindApproved implements Store. Terms match the lower-cased search
// columns; titles also match by similarity like MemoryStore.
func (s *SQLiteStore) FindApproved(ctx context.Context, p Predicates) ([]models.CatalogRecord, error) {
	var clauses []string
	var args []any
	if p.Title != "" {
		clauses = append(clauses, `search_title LIKE ? ESCAPE '\'`, `title_similarity(title, ?) >= ?`)
		args = append(args, likePattern(strings.ToLower(p.Title)), p.Title, FuzzyTitleThreshold)
	}
	if p.Author != "" {
		clauses = append(clauses, `search_authors LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(strings.ToLower(p.Author)))
	}
	if p.AlternativeTitle != "" {
		clauses = append(clauses, `search_title LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(strings.ToLower(p.AlternativeTitle)))
	}
	if len(clauses) == 0 {
		return []models.CatalogRecord{}, nil
	}

	query := fmt.Sprintf(`SELECT id, title, authors, cover_url, isbn, publisher, year, description, status
		FROM books WHERE status = ? AND (%s) ORDER BY rowid LIMIT %d`, strings.Join(clauses, " OR "), MaxResults)
	args = append([]any{models.StatusApproved}, args...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	records := []models.CatalogRecord{}
	for rows.Next() {
		var rec models.CatalogRecord
		var authorsJSON string
		if err := rows.Scan(&rec.ID, &rec.Title, &authorsJSON, &rec.CoverURL, &rec.ISBN,
			&rec.Publisher, &rec.Year, &rec.Description, &rec.Status); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if err := json.Unmarshal([]byte(authorsJSON), &rec.Authors); err != nil {
			return nil, fmt.Errorf("failed to decode authors for %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	return records, nil
}

// Count returns the number of stored books.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// encodeAuthors keeps &, < and > literal so stored authors read as imported.
func encodeAuthors(authors []string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(authors); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// searchAuthors is one lower-cased author per line, so a term never spans
// two names.
func searchAuthors(authors []string) string {
	lowered := make([]string, len(authors))
	for i, a := range authors {
		lowered[i] = strings.ToLower(a)
	}
	return strings.Join(lowered, "\n")
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
