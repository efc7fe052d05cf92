package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"instock-notifier/pkg/stock"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS suppressions (
	product_url      TEXT    NOT NULL,
	target_id        TEXT    NOT NULL,
	suppressed_until INTEGER NOT NULL,
	PRIMARY KEY (product_url, target_id)
)`

// SQLiteStore keeps suppression records in a local SQLite database.
// Rows whose suppressed_until has passed read as misses and are replaced by the next Put.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		sqliteSchema,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: exec %q: %w", p, err)
		}
	}

	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the live suppression for the pair, or nil if there is none.
func (s *SQLiteStore) Get(ctx context.Context, productURL, targetID string) (*stock.Suppression, error) {
	var until int64
	err := s.db.QueryRowContext(ctx,
		`SELECT suppressed_until FROM suppressions WHERE product_url = ? AND target_id = ?`,
		productURL, targetID).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: select suppression: %w", err)
	}

	rec := &stock.Suppression{
		ProductURL:      productURL,
		TargetID:        targetID,
		SuppressedUntil: time.UnixMilli(until),
	}
	if !rec.SuppressedUntil.After(s.now()) {
		s.logger.Debug("Suppression expired", "url", productURL, "target", targetID)
		return nil, nil
	}
	return rec, nil
}

// Put writes the suppression, replacing any previous record for the pair.
func (s *SQLiteStore) Put(ctx context.Context, rec *stock.Suppression) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO suppressions (product_url, target_id, suppressed_until) VALUES (?, ?, ?)
		 ON CONFLICT (product_url, target_id) DO UPDATE SET suppressed_until = excluded.suppressed_until`,
		rec.ProductURL, rec.TargetID, rec.SuppressedUntil.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite: upsert suppression: %w", err)
	}
	s.logger.Debug("Suppression saved", "url", rec.ProductURL, "target", rec.TargetID)
	return nil
}

// Delete removes the row for the pair.
func (s *SQLiteStore) Delete(ctx context.Context, productURL, targetID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM suppressions WHERE product_url = ? AND target_id = ?`,
		productURL, targetID)
	if err != nil {
		return fmt.Errorf("sqlite: delete suppression: %w", err)
	}
	return nil
}
