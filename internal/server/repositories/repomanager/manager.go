// Package repomanager owns the credential store connection and vends
// repositories bound to it, either directly or inside a transaction.
package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

const (
	AdapterPostgres = "postgres"
	AdapterSQLite   = "sqlite"
	AdapterMemory   = "memory"
)

type RepositoryManager interface {
	// RunMigrations brings the schema up to date. No-op for the memory store.
	RunMigrations(ctx context.Context) error

	// Users returns a repository whose calls each run on their own.
	Users() users.Repository

	// WithTx runs fn against a repository bound to a single transaction. All of
	// fn's writes become visible together or not at all.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error

	Close() error
}

// Options selects and locates the credential store.
type Options struct {
	Adapter    string
	DSN        string
	SQLitePath string
}

// Open connects to the store named by opts.Adapter. It does not migrate.
func Open(ctx context.Context, opts Options) (RepositoryManager, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Adapter)) {
	case AdapterPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("%w: postgres adapter requires a dsn", common.ErrMisconfigured)
		}
		return OpenPostgres(ctx, opts.DSN)
	case AdapterSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("%w: sqlite adapter requires a path", common.ErrMisconfigured)
		}
		return OpenSQLite(ctx, opts.SQLitePath)
	case AdapterMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store adapter %q", common.ErrMisconfigured, opts.Adapter)
	}
}
