package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"shoplist/internal/config"
	"shoplist/pkg/logger"
)

var (
	pool *sql.DB
	once sync.Once
)

// DB returns the global database connection pool (initialized on first use).
func DB(ctx context.Context) *sql.DB {
	once.Do(func() {
		cfg := config.Get()
		if cfg.DatabaseURL == "" {
			logger.Error(ctx, "DATABASE_URL is not set")
			return
		}
		db, err := Open(ctx, Dialect(cfg.DatabaseDriver), cfg.DatabaseURL, cfg.DBPoolSize)
		if err != nil {
			logger.Error(ctx, "Failed to open database", "error", err, "driver", cfg.DatabaseDriver)
			return
		}
		pool = db
		logger.Info(ctx, "Database pool initialized", "driver", cfg.DatabaseDriver, "max_open", cfg.DBPoolSize)
	})
	return pool
}

// InitDB initializes the DB pool and returns it.
func InitDB(ctx context.Context) *sql.DB {
	return DB(ctx)
}

// Open connects to dsn with the given dialect and verifies the connection.
// SQLite is held to a single connection so writers never contend for the file lock.
func Open(ctx context.Context, dialect Dialect, dsn string, poolSize int) (*sql.DB, error) {
	if err := dialect.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(poolSize)
		db.SetMaxIdleConns(poolSize / 2)
	}
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if dialect == SQLite {
		if _, err := db.ExecContext(pingCtx, "PRAGMA journal_mode=WAL"); err != nil {
			logger.Warn(ctx, "Failed to enable WAL mode", "error", err)
		}
		if _, err := db.ExecContext(pingCtx, "PRAGMA busy_timeout=10000"); err != nil {
			logger.Warn(ctx, "Failed to set busy timeout", "error", err)
		}
	}
	return db, nil
}

// MigrateOrCreateSchema creates the items table when it does not exist.
func MigrateOrCreateSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return sql.ErrConnDone
	}
	var ddl string
	switch dialect {
	case Postgres:
		ddl = `CREATE TABLE IF NOT EXISTS items (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	default:
		// AUTOINCREMENT keeps SQLite from reusing ids of deleted rows.
		ddl = `CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}
