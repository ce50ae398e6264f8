package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func openWithSchema(ctx context.Context, db *sql.DB, dialect string) (*SQLHRRepository, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	repo := NewSQLHRRepository(db, dialect)
	if err := repo.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Open connects to the configured source-of-truth database.
func Open(ctx context.Context, dbType, pathOrDSN string) (*SQLHRRepository, error) {
	switch dbType {
	case DialectPostgres, "postgresql":
		return NewPostgresHRRepository(ctx, pathOrDSN)
	case DialectMySQL:
		return NewMySQLHRRepository(ctx, pathOrDSN)
	case DialectSQLite, "":
		return NewSQLiteHRRepository(ctx, pathOrDSN)
	default:
		return nil, fmt.Errorf("unknown database type %q", dbType)
	}
}
