// Package migrations embeds the goose schema migrations for the SQL
// credential stores. Each dialect has its own directory.
package migrations

import "embed"

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
