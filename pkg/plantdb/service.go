// PlantDB holds every reading the sensor produced, unbounded.
// Only the ingestor writes to it. The query layer reads from it
// through the same handle.
package plantdb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const driverName = "sqlite"

var ErrSchemaMissing = errors.New("readings table missing after migration")

// Open opens the database file at path, creating its directory when needed.
func Open(path string) (*sql.DB, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	return finishOpen(db)
}

// OpenWithLogging is Open with every statement logged at debug level.
func OpenWithLogging(path string, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}
	connector, err := NewLoggingConnector(dsn, logger)
	if err != nil {
		return nil, err
	}
	return finishOpen(sql.OpenDB(connector))
}

func finishOpen(db *sql.DB) (*sql.DB, error) {
	// One writer keeps inserts serialized, busy_timeout covers readers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// InitializeDatabase must be called once on startup, before any Store use.
func InitializeDatabase(db *sql.DB) error {
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'readings'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSchemaMissing
	}
	return err
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}

	dir := filepath.Dir(strings.TrimPrefix(path, "file:"))
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
