package journal

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// getAppliedMigrations returns a set of already-applied migration versions.
func (s *Store) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	if _, err := s.db.ExecContext(ctx, s.dialect.migrationsTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// pendingMigrationFiles returns sorted SQL migration filenames for a dialect
// that are not yet applied.
func pendingMigrationFiles(dialect string, applied map[string]bool) ([]string, error) {
	entries, err := migrationsFS.ReadDir(path.Join("migrations", dialect))
	if err != nil {
		return nil, fmt.Errorf("read %s migrations: %w", dialect, err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies all pending migrations, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	applied, err := s.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := pendingMigrationFiles(s.dialect.Name, applied)
	if err != nil {
		return err
	}

	insert := "INSERT INTO schema_migrations (version) VALUES (" + s.dialect.Placeholder(1) + ")"
	for _, file := range files {
		content, err := migrationsFS.ReadFile(path.Join("migrations", s.dialect.Name, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, insert, file); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}

		s.logger.Info("applied journal migration", "dialect", s.dialect.Name, "version", file)
	}

	return nil
}
