// Package catalog implements the per-user metadata catalog on SQLite.
// One catalog file per username; no catalog ever references another
// user's data.
package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"filedex/internal/catalog/migrations"
	"filedex/internal/core"
	"filedex/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Catalog is one user's metadata catalog.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens the catalog at path, creating and migrating it when the file
// does not yet exist. An existing catalog is verified against the expected
// schema and rejected with core.ErrSchemaMismatch on any difference —
// never upgraded in place. path may be ":memory:" for tests.
func Open(path string) (*Catalog, error) {
	fresh := path == ":memory:"
	if !fresh {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fresh = true
		}
	}

	db, err := openConnection(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStorageProvision, err)
	}

	if fresh {
		if err := migrations.Up(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: initializing schema: %v", core.ErrStorageProvision, err)
		}
	} else {
		if err := migrations.Check(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", core.ErrSchemaMismatch, err)
		}
	}

	return &Catalog{db: db, path: path}, nil
}

// openConnection opens and configures a SQLite connection.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	// Wait briefly on locks instead of failing when a second call from the
	// same process touches the catalog.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring catalog: %w", err)
	}

	return db, nil
}

const entryColumns = "id, original_path, stored_path, mime, category, sha256, added_at, json_keys, json_preview, json_search_text"

// Insert records a new entry in a single statement and returns it with the
// catalog-assigned ID. Failures wrap core.ErrCatalogWrite; no partial row
// is ever written.
func (c *Catalog) Insert(e model.Entry) (model.Entry, error) {
	keys, err := encodeKeys(e.JSONKeys)
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: encoding json keys: %v", core.ErrCatalogWrite, err)
	}

	res, err := c.db.Exec(`
		INSERT INTO entries (original_path, stored_path, mime, category, sha256, added_at, json_keys, json_preview, json_search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OriginalPath, e.StoredPath, e.MIME, string(e.Category), e.SHA256,
		e.AddedAt, keys, e.JSONPreview, e.JSONSearchText,
	)
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: %v", core.ErrCatalogWrite, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: reading assigned id: %v", core.ErrCatalogWrite, err)
	}

	e.ID = id
	if e.JSONKeys == nil {
		e.JSONKeys = make([]string, 0)
	}
	return e, nil
}

// Recent returns up to limit entries, most recent first. Ties on added_at
// break by insertion order.
func (c *Catalog) Recent(limit int) ([]model.Entry, error) {
	rows, err := c.db.Query(`
		SELECT `+entryColumns+` FROM entries
		ORDER BY added_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent entries: %w", err)
	}
	return scanEntries(rows)
}

// All returns every entry, most recent first.
func (c *Catalog) All() ([]model.Entry, error) {
	rows, err := c.db.Query(`
		SELECT ` + entryColumns + ` FROM entries
		ORDER BY added_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	return scanEntries(rows)
}

// JSONOnly returns every json-category entry, most recent first.
func (c *Catalog) JSONOnly() ([]model.Entry, error) {
	return c.byCategory(model.CategoryJSON)
}

func (c *Catalog) byCategory(cat model.Category) ([]model.Entry, error) {
	rows, err := c.db.Query(`
		SELECT `+entryColumns+` FROM entries
		WHERE category = ?
		ORDER BY added_at DESC, id DESC`, string(cat))
	if err != nil {
		return nil, fmt.Errorf("querying %s entries: %w", cat, err)
	}
	return scanEntries(rows)
}

// Search matches term case-insensitively against stored filename, original
// path, and json search text; text-category entries additionally match on
// a bounded read of their stored content. An empty term matches every
// entry. A non-empty cat restricts results to that category.
func (c *Catalog) Search(term string, cat model.Category) ([]model.Entry, error) {
	like := "%" + term + "%"
	rows, err := c.db.Query(`
		SELECT `+entryColumns+` FROM entries
		WHERE (stored_path LIKE ? OR original_path LIKE ? OR json_search_text LIKE ?)
		  AND (? = '' OR category = ?)
		ORDER BY added_at DESC, id DESC`,
		like, like, like, string(cat), string(cat))
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	matched, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if term == "" {
		return matched, nil
	}

	// Text entries can match on stored content that the indexed columns
	// don't carry. Merge those in, preserving catalog order.
	textMatches, err := c.searchTextContent(term, cat, matched)
	if err != nil {
		return nil, err
	}
	if len(textMatches) == 0 {
		return matched, nil
	}
	return mergeByRecency(matched, textMatches), nil
}

// searchTextContent matches term against the stored content of
// text-category entries not already matched, reading a bounded prefix.
func (c *Catalog) searchTextContent(term string, cat model.Category, already []model.Entry) ([]model.Entry, error) {
	if cat != "" && cat != model.CategoryText {
		return nil, nil
	}

	candidates, err := c.byCategory(model.CategoryText)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(already))
	for _, e := range already {
		seen[e.ID] = true
	}

	var out []model.Entry
	for _, e := range candidates {
		if seen[e.ID] {
			continue
		}
		if core.FileContains(e.StoredPath, term) {
			out = append(out, e)
		}
	}
	return out, nil
}

// mergeByRecency combines two already-sorted entry lists into one list
// ordered by added_at descending, id descending.
func mergeByRecency(a, b []model.Entry) []model.Entry {
	out := make([]model.Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if entryAfter(a[i], b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func entryAfter(x, y model.Entry) bool {
	if !x.AddedAt.Equal(y.AddedAt) {
		return x.AddedAt.After(y.AddedAt)
	}
	return x.ID > y.ID
}

// CountByCategory returns the number of entries in a category.
func (c *Catalog) CountByCategory(cat model.Category) (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE category = ?`, string(cat)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s entries: %w", cat, err)
	}
	return n, nil
}

// Path returns the catalog file path (or ":memory:").
func (c *Catalog) Path() string { return c.path }

// Close closes the catalog.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]model.Entry, error) {
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		var e model.Entry
		var cat, keys string
		err := rows.Scan(&e.ID, &e.OriginalPath, &e.StoredPath, &e.MIME, &cat,
			&e.SHA256, &e.AddedAt, &keys, &e.JSONPreview, &e.JSONSearchText)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Category = model.Category(cat)
		e.JSONKeys, err = decodeKeys(keys)
		if err != nil {
			return nil, fmt.Errorf("decoding json keys for entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return entries, nil
}

// encodeKeys stores the ordered key list as a JSON array; the empty list
// is stored as the empty string, keeping the "empty, never null" contract.
func encodeKeys(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeKeys(s string) ([]string, error) {
	if s == "" {
		return make([]string, 0), nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Compile-time check that Catalog implements core.Catalog
var _ core.Catalog = (*Catalog)(nil)
