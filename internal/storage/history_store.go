// Package storage persists flushed history values in SQLite.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/muammer-kilic/zabbix/internal/historycache"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

const schemaVersion = 1

// HistoryStore implements historycache.Flusher with SQLite storage.
type HistoryStore struct {
	dbPath string
	db     *sql.DB
}

// NewHistoryStore opens (creating if needed) the history database.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	// WAL keeps readers unblocked during flush transactions.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &HistoryStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *HistoryStore) migrate() error {
	if _, err := s.db.Exec(migrationV1); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	var current sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if !current.Valid {
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
		return nil
	}
	if current.Int64 > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", current.Int64, schemaVersion)
	}
	return nil
}

// SaveValues writes one batch of history rows in a single transaction.
func (s *HistoryStore) SaveValues(ctx context.Context, rows []historycache.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO history (itemid, clock, ns, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ItemID, row.Clock.Unix(), row.Clock.Nanosecond(), row.Value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting history row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history batch: %w", err)
	}
	return nil
}

// ValueCount returns the number of stored history rows.
func (s *HistoryStore) ValueCount(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting history rows: %w", err)
	}
	return count, nil
}

// ItemValueCount returns the number of stored rows for one item.
func (s *HistoryStore) ItemValueCount(ctx context.Context, itemID uint64) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM history WHERE itemid = ?", itemID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting item history rows: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
