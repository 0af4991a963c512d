// Package migrations embeds the practice schema migrations.
package migrations

import "embed"

// FS holds the versioned *.sql files applied by db.Migrator.
//
//go:embed *.sql
var FS embed.FS
