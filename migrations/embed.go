package migrations

import "embed"

// Files содержит SQL-миграции goose
//
//go:embed *.sql
var Files embed.FS
