package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager backs the store with a database/sql handle. The same
// type serves PostgreSQL and SQLite; only the dialect and repository differ.
type SQLRepositoryManager struct {
	db       *sql.DB
	dialect  string
	dir      string
	newUsers func(dbx.DBTX) users.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// NewPostgresRepositoryManager wraps an open pgx-backed handle.
func NewPostgresRepositoryManager(db *sql.DB) *SQLRepositoryManager {
	return &SQLRepositoryManager{
		db:      db,
		dialect: "pgx",
		dir:     migrations.PostgresDir,
		newUsers: func(tx dbx.DBTX) users.Repository {
			return users.NewPostgresRepository(tx)
		},
	}
}

// NewSQLiteRepositoryManager wraps an open modernc sqlite handle.
func NewSQLiteRepositoryManager(db *sql.DB) *SQLRepositoryManager {
	return &SQLRepositoryManager{
		db:      db,
		dialect: "sqlite3",
		dir:     migrations.SQLiteDir,
		newUsers: func(tx dbx.DBTX) users.Repository {
			return users.NewSQLiteRepository(tx)
		},
	}
}

func OpenPostgres(ctx context.Context, dsn string) (*SQLRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresRepositoryManager(db), nil
}

// OpenSQLite opens the database file at path. Writers are serialised on a
// single connection.
func OpenSQLite(ctx context.Context, path string) (*SQLRepositoryManager, error) {
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return NewSQLiteRepositoryManager(db), nil
}

// RunMigrations sets up goose with the embedded migrations for this dialect
// and applies them.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, m.dir); err != nil {
		return err
	}
	return nil
}

func (m *SQLRepositoryManager) Users() users.Repository {
	return m.newUsers(m.db)
}

func (m *SQLRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, m.newUsers(tx))
	})
}

// DB exposes the underlying handle, e.g. for health checks.
func (m *SQLRepositoryManager) DB() *sql.DB {
	return m.db
}

func (m *SQLRepositoryManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}
