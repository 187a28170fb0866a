package migrations

import "embed"

// FS holds the versioned schema migrations, one subdirectory per SQL dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
