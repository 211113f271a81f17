package db

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate applies any pending goose migrations from the embedded directory.
func (l *LeadsDB) Migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("error setting goose dialect: %w", err)
	}

	if err := goose.Up(l.DB, "migrations"); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}

	l.Log.Info().Msg("database migrations applied")
	return nil
}
