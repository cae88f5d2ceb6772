package trace

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotTraceDB is returned by OpenExisting for a SQLite file that was
	// never initialised as a trace database.
	ErrNotTraceDB = errors.New("not a relay trace database")

	// ErrNewerSchema is returned when a trace database was written by a
	// newer relay whose schema this build does not know.
	ErrNewerSchema = errors.New("trace database schema is newer than this build")
)

// migration upgrades a trace database from version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are applied in order on Open. The schema file holds the v0
// tables; every later change is a migration so old traces stay readable.
var migrations = []migration{
	{
		version: 1,
		name:    "index actions by type",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_actions_type ON actions(store_id, action_type)`,
	},
	{
		version: 2,
		name:    "record action payload hashes",
		stmt:    `ALTER TABLE actions ADD COLUMN action_hash TEXT NOT NULL DEFAULT ''`,
	},
}

// currentSchemaVersion is the user_version a fully migrated database has.
var currentSchemaVersion = migrations[len(migrations)-1].version

// DB is a SQLite file holding action traces: one row per traced store
// (runs) and one row per dispatched action (actions).
//
// Recorders write through Open; the CLI's trace and replay commands use
// OpenExisting so inspecting a trace never creates or upgrades it.
type DB struct {
	db      *sql.DB
	version int
}

// Open opens the trace database at path for recording, creating it if
// needed, and migrates it to the current schema. Reopening an existing
// trace is safe.
func Open(path string) (*DB, error) {
	db, err := connect(path, "rwc")
	if err != nil {
		return nil, err
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	return &DB{db: db, version: currentSchemaVersion}, nil
}

// OpenExisting opens a trace database for inspection. It never creates
// the file, creates tables or migrates: it fails with ErrNotTraceDB when
// the file holds no trace schema and ErrNewerSchema when it was written by
// a newer schema. Older schemas are readable as-is.
func OpenExisting(path string) (*DB, error) {
	db, err := connect(path, "rw")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}

	version, err := schemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	switch {
	case version > currentSchemaVersion:
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w (version %d, supported %d)", path, ErrNewerSchema, version, currentSchemaVersion)
	case version == 0:
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('runs', 'actions')`).Scan(&n)
		if err != nil || n != 2 {
			db.Close()
			return nil, fmt.Errorf("open trace %s: %w", path, ErrNotTraceDB)
		}
	}
	return &DB{db: db, version: version}, nil
}

func connect(path, mode string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=%s", path, mode))
	if err != nil {
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}

	// Recorders write from action listeners; one connection keeps those
	// writes in seq order.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// SchemaVersion returns the schema version the database was opened at.
func (d *DB) SchemaVersion() int {
	return d.version
}

// hasActionHashes reports whether the actions table has action_hash.
func (d *DB) hasActionHashes() bool {
	return d.version >= 2
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate creates the base tables and applies every migration newer than
// the database's user_version, each in its own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w (version %d, supported %d)", ErrNewerSchema, version, currentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmt); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d (%s): set version: %w", m.version, m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
func (d *DB) verifyPragma(name, expected string) error {
	var value string
	if err := d.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
