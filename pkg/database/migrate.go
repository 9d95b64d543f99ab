package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the schema files shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate applies pending goose migrations. When dir is set, migrations are read from disk instead of the binary.
func Migrate(ctx context.Context, db *sql.DB, dir string) error {
	var fsys fs.FS = Migrations()
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("migrations directory %s: %w", dir, err)
		}
		fsys = os.DirFS(dir)
	}

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
