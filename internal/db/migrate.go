package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one embedded schema file, named NNN_description.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// RunMigrations applies every embedded migration beyond the recorded
// schema version, each in its own transaction. Migration files must
// form a contiguous version sequence; a gap aborts before anything is
// applied, since it usually means a file was lost in a bad merge.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := getCurrentMigrationVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	migrations, err := readMigrations()
	if err != nil {
		return err
	}
	if err := checkContiguous(migrations); err != nil {
		return err
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		applied++
	}

	if applied > 0 {
		logrus.WithField("applied", applied).Info("Schema migrations applied")
	}
	return nil
}

// applyMigration executes one migration and records it, atomically.
func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	logrus.WithFields(logrus.Fields{
		"version": m.Version,
		"name":    m.Name,
	}).Info("Applying migration")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %03d failed: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
		m.Version, m.Name,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %03d: %w", m.Version, err)
	}
	return tx.Commit()
}

func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := db.ExecContext(ctx, query)
	return err
}

func getCurrentMigrationVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations",
	).Scan(&version)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

// readMigrations loads the embedded .sql files, sorted by version. A
// .sql file whose name doesn't parse is an error, not a silent skip:
// a typo'd filename would otherwise vanish from the sequence.
func readMigrations() ([]Migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, err := parseMigrationFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// parseMigrationFilename splits "001_initial_schema.sql" into (1,
// "initial_schema").
func parseMigrationFilename(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".sql")
	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("malformed migration filename %q", filename)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("malformed migration version in %q", filename)
	}
	return version, name, nil
}

// checkContiguous rejects a migration set with version gaps.
func checkContiguous(migrations []Migration) error {
	for i := 1; i < len(migrations); i++ {
		prev, cur := migrations[i-1].Version, migrations[i].Version
		if cur == prev {
			return fmt.Errorf("duplicate migration version %03d", cur)
		}
		if cur != prev+1 {
			return fmt.Errorf("migration versions must be contiguous: %03d follows %03d", cur, prev)
		}
	}
	return nil
}
