package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to
	// the requesting principal.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write loses to a concurrent one.
	ErrConflict = errors.New("revision conflict")
)

// DB wraps the database connection with the pool and pragma settings the
// portal runs with.
type DB struct {
	*sql.DB
	now func() time.Time
}

// InitDB opens (creating if needed) the SQLite database at dbPath, tunes the
// pool and applies pending migrations.
func InitDB(ctx context.Context, dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?%s", dbPath, url.Values{
		"_foreign_keys": {"on"},
		"_journal_mode": {"WAL"},
		"_busy_timeout": {"10000"},
		"_synchronous":  {"NORMAL"},
	}.Encode())

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: sqlDB, now: func() time.Time { return time.Now().UTC() }}
	if err := db.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// SetClock overrides the timestamp source used for created_at/updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}
