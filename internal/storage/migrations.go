package storage

import "embed"

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS
