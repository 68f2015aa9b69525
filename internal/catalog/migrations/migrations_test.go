package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	tables := []string{"entries", "ops", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("First Up() failed: %v", err)
	}
	if err := Up(db); err != nil {
		t.Errorf("Second Up() failed: %v (should be idempotent)", err)
	}
	if err := Check(db); err != nil {
		t.Errorf("Check() after double Up returned error: %v", err)
	}
}

func TestCheck_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := Check(db)
	if err == nil {
		t.Error("Check() expected error for fresh database, got nil")
	}
}

func TestCheck_AfterUp(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	if err := Check(db); err != nil {
		t.Errorf("Check() after Up returned error: %v", err)
	}
}

func TestCheck_BehindSchema(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	// Rewind the recorded version; Check must flag the catalog as behind.
	if _, err := db.Exec("UPDATE schema_migrations SET version = 1"); err != nil {
		t.Fatalf("rewinding version: %v", err)
	}

	if err := Check(db); err == nil {
		t.Error("Check() expected error for behind schema, got nil")
	}
}

func TestSchema_EntriesDefaults(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO entries (original_path, stored_path, mime, category, sha256, added_at)
		VALUES ('/src/a.png', '/store/image/a.png', 'image/png', 'image', 'abc', datetime('now'))
	`)
	if err != nil {
		t.Fatalf("Failed to insert entry: %v", err)
	}

	var keys, preview, search string
	err = db.QueryRow("SELECT json_keys, json_preview, json_search_text FROM entries").Scan(&keys, &preview, &search)
	if err != nil {
		t.Fatalf("Failed to read entry: %v", err)
	}
	if keys != "" || preview != "" || search != "" {
		t.Errorf("json columns = %q/%q/%q, want empty defaults", keys, preview, search)
	}
}

func TestSchema_OpsNullableFinish(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO ops (operation, started_at) VALUES ('IngestFile', datetime('now'))")
	if err != nil {
		t.Fatalf("Failed to insert op: %v", err)
	}

	var finished sql.NullTime
	var status string
	err = db.QueryRow("SELECT finished_at, status FROM ops").Scan(&finished, &status)
	if err != nil {
		t.Fatalf("Failed to read op: %v", err)
	}
	if finished.Valid {
		t.Error("finished_at should be NULL for an unfinished op")
	}
	if status != "" {
		t.Errorf("status = %q, want empty default", status)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return db
}
