// Package db embeds the goose migrations applied at startup.
package db

import "embed"

// MigrationsDir is the directory of the migrations inside Migrations.
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS
