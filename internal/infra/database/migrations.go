package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"daily365_bot/internal/infra/config"

	"github.com/GuiaBolso/darwin"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrate brings the schema up to date for the given driver.
func Migrate(db *sql.DB, driver string) error {
	var (
		dialect darwin.Dialect
		dir     string
	)
	switch driver {
	case config.DriverPostgres:
		dialect, dir = darwin.PostgresDialect{}, "migrations/postgres"
	case config.DriverSQLite:
		dialect, dir = darwin.SqliteDialect{}, "migrations/sqlite"
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		return err
	}

	d := darwin.New(darwin.NewGenericDriver(db, dialect), migrations, nil)
	if err := d.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// loadMigrations reads NNN_description.sql files in version order.
func loadMigrations(dir string) ([]darwin.Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations in %s: %w", dir, err)
	}

	migrations := make([]darwin.Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".sql")
		prefix, desc, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected NNN_description.sql", e.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid version: %w", e.Name(), err)
		}
		script, err := migrationFiles.ReadFile(path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		migrations = append(migrations, darwin.Migration{
			Version:     float64(version),
			Description: strings.ReplaceAll(desc, "_", " "),
			Script:      string(script),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
