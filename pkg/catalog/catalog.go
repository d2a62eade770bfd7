// Package catalog stores image records in SQLite and serves them as a paged data source.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/provider-paging/pkg/paging"
)

// ErrNotFound is returned when no image has the requested id.
var ErrNotFound = errors.New("image not found")

// Migration version constants
const (
	MigrationV1 = 1 // images table
	MigrationV2 = 2 // unique absolute_path for idempotent imports
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

// Catalog is a SQLite-backed image catalogue.
type Catalog struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the catalogue at dbPath and applies migrations.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	c := &Catalog{
		db:     db,
		logger: log.With().Str("component", "catalog").Logger(),
	}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping checks that the database is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Catalog) migrate() error {
	if _, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := c.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	migrations := []struct {
		version     int
		description string
		stmt        string
	}{
		{MigrationV1, "Create images table", `
			CREATE TABLE IF NOT EXISTS images (
				id TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				absolute_path TEXT NOT NULL,
				size INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`},
		{MigrationV2, "Unique absolute_path", `
			CREATE UNIQUE INDEX IF NOT EXISTS idx_images_absolute_path ON images(absolute_path)`},
	}

	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		if _, err := c.db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		if _, err := c.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.version, m.description); err != nil {
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		c.logger.Debug().Int("version", m.version).Msg(m.description)
	}

	return nil
}

// Insert adds records, assigning a new id to records without one.
// Records whose absolute path is already catalogued are skipped.
// It returns the number of rows inserted.
func (c *Catalog) Insert(ctx context.Context, records ...paging.Record) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO images (id, display_name, absolute_path, size, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		res, err := stmt.ExecContext(ctx, rec.ID, rec.DisplayName, rec.Path, rec.Size, now)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", rec.Path, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// Count returns the number of catalogued images.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}

// Get returns the image with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (paging.Record, error) {
	var rec paging.Record
	err := c.db.QueryRowContext(ctx, `
		SELECT id, display_name, absolute_path, size FROM images WHERE id = ?
	`, id).Scan(&rec.ID, &rec.DisplayName, &rec.Path, &rec.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return paging.Record{}, ErrNotFound
	}
	if err != nil {
		return paging.Record{}, fmt.Errorf("get image %s: %w", id, err)
	}
	return rec, nil
}

// FetchPage implements paging.DataSource. Images are ordered by insertion.
// The total and the page are read in one transaction so they describe the same snapshot.
func (c *Catalog) FetchPage(ctx context.Context, req paging.PageRequest) (*paging.FetchResult, error) {
	if req.Offset < 0 || req.Limit <= 0 {
		return nil, fmt.Errorf("invalid page request: offset=%d limit=%d", req.Offset, req.Limit)
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin page read: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, display_name, absolute_path, size
		FROM images
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	records := make([]paging.Record, 0, min(req.Limit, total))
	for rows.Next() {
		var rec paging.Record
		if err := rows.Scan(&rec.ID, &rec.DisplayName, &rec.Path, &rec.Size); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return &paging.FetchResult{Records: records, TotalCount: total}, nil
}

var _ paging.DataSource = (*Catalog)(nil)
