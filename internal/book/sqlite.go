package book

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unalkalkan/NovelShelf/pkg/types"
)

// SQLiteRepository stores records in a SQLite table. Updates compare and
// swap on the revision column inside a transaction.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at path
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes ordered.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply pragma: %w", err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS novels (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	original_title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	cover_image TEXT NOT NULL DEFAULT '',
	publish_date TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT '',
	epub_file TEXT NOT NULL DEFAULT '',
	chapter_count INTEGER NOT NULL DEFAULT 0,
	revision INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL DEFAULT '',
	extra TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_novels_position ON novels(position);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Tables created before the extra column existed
	var hasExtra int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('novels') WHERE name = 'extra'`).Scan(&hasExtra); err != nil {
		return fmt.Errorf("failed to inspect novels table: %w", err)
	}
	if hasExtra == 0 {
		if _, err := db.Exec(`ALTER TABLE novels ADD COLUMN extra TEXT NOT NULL DEFAULT '{}'`); err != nil {
			return fmt.Errorf("failed to add extra column: %w", err)
		}
	}
	return nil
}

const selectColumns = `id, title, original_title, author, description, cover_image,
	publish_date, publisher, epub_file, chapter_count, revision, updated_at, extra`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*types.NovelRecord, error) {
	var (
		rec     types.NovelRecord
		updated string
		extra   string
	)
	err := row.Scan(&rec.ID, &rec.Title, &rec.OriginalTitle, &rec.Author, &rec.Description,
		&rec.CoverImage, &rec.PublishDate, &rec.Publisher, &rec.EpubFile,
		&rec.ChapterCount, &rec.Revision, &updated, &extra)
	if err != nil {
		return nil, err
	}
	if updated != "" {
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			rec.UpdatedAt = &t
		}
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &rec.Extra); err != nil {
			return nil, fmt.Errorf("failed to decode extra fields of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatExtra(extra map[string]json.RawMessage) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("failed to encode extra fields: %w", err)
	}
	return string(data), nil
}

// Seed inserts records when the table is empty and reports how many were
// written. A populated table is left alone.
func (s *SQLiteRepository) Seed(ctx context.Context, records []*types.NovelRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM novels`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count novels: %w", err)
	}
	if count > 0 || len(records) == 0 {
		return 0, nil
	}

	for i, rec := range records {
		extra, err := formatExtra(rec.Extra)
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO novels (id, position, title, original_title, author, description, cover_image,
	publish_date, publisher, epub_file, chapter_count, revision, updated_at, extra)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`, rec.ID, i, rec.Title, rec.OriginalTitle, rec.Author, rec.Description, rec.CoverImage,
			rec.PublishDate, rec.Publisher, rec.EpubFile, rec.ChapterCount, rec.Revision,
			formatTime(rec.UpdatedAt), extra)
		if err != nil {
			return 0, fmt.Errorf("failed to seed novel %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return len(records), nil
}

// ListNovels returns all records in seed order
func (s *SQLiteRepository) ListNovels(ctx context.Context) ([]*types.NovelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM novels ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list novels: %w", err)
	}
	defer rows.Close()

	novels := make([]*types.NovelRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan novel: %w", err)
		}
		novels = append(novels, rec)
	}
	return novels, rows.Err()
}

// GetNovel retrieves a record by ID
func (s *SQLiteRepository) GetNovel(ctx context.Context, id string) (*types.NovelRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM novels WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNovelNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get novel: %w", err)
	}
	return rec, nil
}

// UpdateNovel merges patch into the record inside a transaction
func (s *SQLiteRepository) UpdateNovel(ctx context.Context, id string, patch Patch, expectedRevision *int) (*types.NovelRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM novels WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNovelNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get novel: %w", err)
	}

	updated, err := applyPatch(current, patch, expectedRevision, s.now())
	if err != nil {
		return nil, err
	}

	extra, err := formatExtra(updated.Extra)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE novels SET title = ?, original_title = ?, author = ?, description = ?, cover_image = ?,
	publish_date = ?, publisher = ?, epub_file = ?, chapter_count = ?, revision = ?, updated_at = ?,
	extra = ?
WHERE id = ? AND revision = ?
`, updated.Title, updated.OriginalTitle, updated.Author, updated.Description, updated.CoverImage,
		updated.PublishDate, updated.Publisher, updated.EpubFile, updated.ChapterCount,
		updated.Revision, formatTime(updated.UpdatedAt), extra, id, current.Revision)
	if err != nil {
		return nil, fmt.Errorf("failed to update novel: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return nil, fmt.Errorf("%w: %s changed concurrently", ErrRevisionConflict, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return updated, nil
}

// Ping checks that the database answers
func (s *SQLiteRepository) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
