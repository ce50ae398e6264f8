package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// NewSQLiteHRRepository opens (and if needed creates) a SQLite database.
// dbPath is a file path such as "./data/staffhub.db", or ":memory:".
func NewSQLiteHRRepository(ctx context.Context, dbPath string) (*SQLHRRepository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	if dbPath == ":memory:" {
		dsn = dbPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer; an in-memory database also lives on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	repo := NewSQLHRRepository(db, DialectSQLite)
	if err := repo.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
