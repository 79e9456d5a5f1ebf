package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
)

//go:embed migrations
var migrationFiles embed.FS

// RunMigrations executes all pending SQL migrations for the connection's dialect
func (db *DB) RunMigrations(ctx context.Context) error {
	sub, err := fs.Sub(migrationFiles, path.Join("migrations", db.Dialect.MigrationsSubdir()))
	if err != nil {
		return fmt.Errorf("failed to locate migrations: %w", err)
	}
	return db.RunMigrationsFS(ctx, sub)
}

// RunMigrationsFS executes all pending *.sql files found at the root of fsys, in file name order
func (db *DB) RunMigrationsFS(ctx context.Context, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	for _, filename := range files {
		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if err := db.executeMigration(ctx, filename, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		log.Printf("Migration completed: %s", filename)
	}

	return nil
}

// PendingMigrations lists embedded migrations that have not been applied yet
func (db *DB) PendingMigrations(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	dir := path.Join("migrations", db.Dialect.MigrationsSubdir())
	files, err := fs.Glob(migrationFiles, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	var pending []string
	for _, file := range files {
		filename := path.Base(file)
		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to check migration status: %w", err)
		}
		if !hasRun {
			pending = append(pending, filename)
		}
	}
	return pending, nil
}

// hasMigrationRun checks if a migration has already been executed
func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM migrations WHERE filename = ?"
	if err := db.QueryRowContext(ctx, query, filename).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// executeMigration runs each statement of a migration and records it in one transaction.
// MySQL commits DDL implicitly, so there a failed migration may be partially applied.
func (db *DB) executeMigration(ctx context.Context, filename, content string) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		for _, stmt := range splitStatements(content) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename)
		return err
	})
}

// splitStatements splits a migration file on semicolons, dropping empty statements and comment-only lines
func splitStatements(content string) []string {
	var statements []string
	for _, raw := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
