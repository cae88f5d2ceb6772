package trace

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	for i := 0; i < 3; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		var count int
		if err := db.db.QueryRow("SELECT COUNT(*) FROM actions").Scan(&count); err != nil {
			t.Errorf("query failed: %v", err)
		}
		db.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_Migrations(t *testing.T) {
	db := openTestDB(t)

	if err := db.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}
	if got := db.SchemaVersion(); got != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", got)
	}

	var name string
	err := db.db.QueryRow(`
		SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_actions_type'
	`).Scan(&name)
	if err != nil {
		t.Fatalf("index lookup failed: %v", err)
	}

	var columns int
	err = db.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('actions') WHERE name = 'action_hash'`).Scan(&columns)
	if err != nil {
		t.Fatalf("column lookup failed: %v", err)
	}
	if columns != 1 {
		t.Error("actions.action_hash column missing")
	}
}

// writeV1Trace creates a trace database as it looked before action hashes
// were recorded, holding one run with one action.
func writeV1Trace(t *testing.T, path string) {
	t.Helper()
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	defer raw.Close()

	for _, stmt := range []string{
		schemaSQL,
		migrations[0].stmt,
		"PRAGMA user_version = 1",
		`INSERT INTO runs (store_id, label, initial_state, initial_hash) VALUES ('old', '', '{}', 'h0')`,
		`INSERT INTO actions (store_id, seq, action_type, payload, state_hash, state_changed) VALUES ('old', 1, 'add', '{}', 'h1', 1)`,
	} {
		if _, err := raw.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func TestOpenExisting_ReadsOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	writeV1Trace(t, path)

	db, err := OpenExisting(path)
	if err != nil {
		t.Fatalf("OpenExisting() failed: %v", err)
	}
	defer db.Close()

	if got := db.SchemaVersion(); got != 1 {
		t.Errorf("SchemaVersion() = %d, want 1 (not migrated)", got)
	}
	records, err := db.ReadActions(context.Background(), "old")
	if err != nil {
		t.Fatalf("ReadActions() failed: %v", err)
	}
	if len(records) != 1 || records[0].ActionHash != "" {
		t.Errorf("records = %+v, want one record without action hash", records)
	}
}

func TestOpen_MigratesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	writeV1Trace(t, path)

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if err := db.verifyPragma("user_version", "2"); err != nil {
		t.Error(err)
	}
	records, err := db.ReadActions(context.Background(), "old")
	if err != nil {
		t.Fatalf("ReadActions() failed: %v", err)
	}
	if len(records) != 1 || records[0].StateHash != "h1" {
		t.Errorf("records = %+v, want the v1 record preserved", records)
	}
}

func TestOpenExisting_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	if _, err := OpenExisting(path); err == nil {
		t.Fatal("OpenExisting() on a missing file succeeded")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("OpenExisting() created the file")
	}
}

func TestOpenExisting_NotATrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	if _, err := raw.Exec(`CREATE TABLE notes (body TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	raw.Close()

	_, err = OpenExisting(path)
	if !errors.Is(err, ErrNotTraceDB) {
		t.Errorf("OpenExisting() error = %v, want ErrNotTraceDB", err)
	}
}

func TestOpenExisting_NewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := db.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	db.Close()

	if _, err := OpenExisting(path); !errors.Is(err, ErrNewerSchema) {
		t.Errorf("OpenExisting() error = %v, want ErrNewerSchema", err)
	}
	if _, err := Open(path); !errors.Is(err, ErrNewerSchema) {
		t.Errorf("Open() error = %v, want ErrNewerSchema", err)
	}
}

func TestClose_NilDB(t *testing.T) {
	var db DB
	if err := db.Close(); err != nil {
		t.Errorf("Close() on zero DB = %v, want nil", err)
	}
}
