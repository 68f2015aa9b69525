package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filedex/internal/core"
	"filedex/internal/model"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "test_database"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testEntry(cat model.Category, stored string, addedAt time.Time) model.Entry {
	return model.Entry{
		OriginalPath: "/src/" + filepath.Base(stored),
		StoredPath:   stored,
		MIME:         "application/octet-stream",
		Category:     cat,
		SHA256:       "deadbeef",
		AddedAt:      addedAt,
	}
}

func TestOpen(t *testing.T) {
	t.Run("creates a fresh catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fresh_database")
		c, err := Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer c.Close()

		if c.Path() != path {
			t.Errorf("Path() = %q, want %q", c.Path(), path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("catalog file not created: %v", err)
		}
	})

	t.Run("reopens an existing catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "existing_database")

		c, err := Open(path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Insert(testEntry(model.CategoryText, "/store/a.txt", time.Now().UTC())); err != nil {
			t.Fatal(err)
		}
		c.Close()

		c2, err := Open(path)
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer c2.Close()

		entries, err := c2.All()
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("got %d entries after reopen, want 1", len(entries))
		}
	})

	t.Run("rejects a file with the wrong schema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bogus_database")
		if err := os.WriteFile(path, []byte("not a sqlite catalog at all"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := Open(path)
		if err == nil {
			t.Fatal("Open() on a bogus file expected error")
		}
	})
}

func TestCatalog_Insert(t *testing.T) {
	c := openTestCatalog(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := model.Entry{
		OriginalPath:   "/home/alice/doc.json",
		StoredPath:     "/store/json/100-0001_doc.json",
		MIME:           "application/json",
		Category:       model.CategoryJSON,
		SHA256:         "abc123",
		AddedAt:        now,
		JSONKeys:       []string{"b", "a"},
		JSONPreview:    `{"b":1,"a":2}`,
		JSONSearchText: "1 2",
	}

	got, err := c.Insert(e)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if got.ID == 0 {
		t.Error("Insert() did not assign an ID")
	}

	entries, err := c.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	round := entries[0]
	if round.OriginalPath != e.OriginalPath || round.StoredPath != e.StoredPath {
		t.Errorf("paths = %q/%q, want %q/%q", round.OriginalPath, round.StoredPath, e.OriginalPath, e.StoredPath)
	}
	if round.SHA256 != e.SHA256 {
		t.Errorf("SHA256 = %q, want %q", round.SHA256, e.SHA256)
	}
	if !round.AddedAt.Equal(now) {
		t.Errorf("AddedAt = %v, want %v", round.AddedAt, now)
	}
	if len(round.JSONKeys) != 2 || round.JSONKeys[0] != "b" || round.JSONKeys[1] != "a" {
		t.Errorf("JSONKeys = %v, want declaration order [b a]", round.JSONKeys)
	}
}

func TestCatalog_Insert_NonJSONFieldsEmpty(t *testing.T) {
	c := openTestCatalog(t)

	if _, err := c.Insert(testEntry(model.CategoryImage, "/store/image/p.png", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	entries, err := c.All()
	if err != nil {
		t.Fatal(err)
	}
	e := entries[0]
	if e.JSONKeys == nil || len(e.JSONKeys) != 0 {
		t.Errorf("JSONKeys = %#v, want empty non-nil slice", e.JSONKeys)
	}
	if e.JSONPreview != "" || e.JSONSearchText != "" {
		t.Errorf("json fields = %q/%q, want empty", e.JSONPreview, e.JSONSearchText)
	}
}

func TestCatalog_Ordering(t *testing.T) {
	c := openTestCatalog(t)

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	// Two entries share t0; insertion order must break the tie.
	first, _ := c.Insert(testEntry(model.CategoryText, "/store/text/first.txt", t0))
	second, _ := c.Insert(testEntry(model.CategoryText, "/store/text/second.txt", t0))
	newest, _ := c.Insert(testEntry(model.CategoryText, "/store/text/newest.txt", t1))

	entries, err := c.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	wantOrder := []int64{newest.ID, second.ID, first.ID}
	for i, want := range wantOrder {
		if entries[i].ID != want {
			t.Errorf("entries[%d].ID = %d, want %d", i, entries[i].ID, want)
		}
	}

	recent, err := c.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ID != newest.ID || recent[1].ID != second.ID {
		t.Errorf("Recent(2) = %v, want [newest second]", recent)
	}
}

func TestCatalog_JSONOnly(t *testing.T) {
	c := openTestCatalog(t)

	now := time.Now().UTC()
	c.Insert(testEntry(model.CategoryText, "/store/text/a.txt", now))
	c.Insert(testEntry(model.CategoryJSON, "/store/json/b.json", now))
	c.Insert(testEntry(model.CategoryImage, "/store/image/c.png", now))

	entries, err := c.JSONOnly()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Category != model.CategoryJSON {
		t.Errorf("JSONOnly() = %v, want single json entry", entries)
	}
}

func TestCatalog_Search(t *testing.T) {
	c := openTestCatalog(t)

	now := time.Now().UTC()
	c.Insert(model.Entry{
		OriginalPath: "/home/alice/invoice-march.json",
		StoredPath:   "/store/json/100-0001_invoice-march.json",
		MIME:         "application/json", Category: model.CategoryJSON,
		SHA256: "x", AddedAt: now,
		JSONKeys: []string{"total"}, JSONPreview: `{"total":42}`, JSONSearchText: "42 acme corp",
	})
	c.Insert(testEntry(model.CategoryText, "/store/text/100-0002_readme.txt", now))
	c.Insert(testEntry(model.CategoryImage, "/store/image/100-0003_invoice-scan.png", now))

	t.Run("matches stored filename", func(t *testing.T) {
		entries, err := c.Search("readme", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Category != model.CategoryText {
			t.Errorf("got %v, want the readme entry", entries)
		}
	})

	t.Run("matches json search text", func(t *testing.T) {
		entries, err := c.Search("acme", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Category != model.CategoryJSON {
			t.Errorf("got %v, want the json entry", entries)
		}
	})

	t.Run("category filter restricts matches", func(t *testing.T) {
		entries, err := c.Search("invoice", model.CategoryJSON)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Category != model.CategoryJSON {
			t.Errorf("got %v, want only the json invoice", entries)
		}
	})

	t.Run("empty term matches all in category", func(t *testing.T) {
		entries, err := c.Search("", model.CategoryText)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("got %d entries, want 1", len(entries))
		}
	})

	t.Run("no match yields empty slice", func(t *testing.T) {
		entries, err := c.Search("zzz-not-there", "")
		if err != nil {
			t.Fatal(err)
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("got %#v, want empty non-nil slice", entries)
		}
	})
}

func TestCatalog_Search_TextContent(t *testing.T) {
	c := openTestCatalog(t)

	dir := t.TempDir()
	stored := filepath.Join(dir, "100-0001_journal.txt")
	if err := os.WriteFile(stored, []byte("met with the zurich office"), 0644); err != nil {
		t.Fatal(err)
	}

	c.Insert(testEntry(model.CategoryText, stored, time.Now().UTC()))

	entries, err := c.Search("zurich", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("content match got %d entries, want 1", len(entries))
	}

	// Content matching applies to text entries only; a json filter must not
	// pull the text entry in.
	entries, err = c.Search("zurich", model.CategoryJSON)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("json-filtered content match got %d entries, want 0", len(entries))
	}
}

func TestCatalog_CountByCategory(t *testing.T) {
	c := openTestCatalog(t)

	now := time.Now().UTC()
	c.Insert(testEntry(model.CategoryText, "/store/text/a.txt", now))
	c.Insert(testEntry(model.CategoryText, "/store/text/b.txt", now))

	n, err := c.CountByCategory(model.CategoryText)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountByCategory(text) = %d, want 2", n)
	}

	n, err = c.CountByCategory(model.CategoryPDF)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("CountByCategory(pdf) = %d, want 0", n)
	}
}

func TestCatalog_Operations(t *testing.T) {
	c := openTestCatalog(t)

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	id, err := c.CreateOperation("IngestFile", "/home/alice/doc.json", started)
	if err != nil {
		t.Fatalf("CreateOperation() error = %v", err)
	}

	ops, err := c.ListOperations(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("got %d operations, want 1", len(ops))
	}
	if ops[0].Status != "" || ops[0].FinishedAt != nil {
		t.Errorf("unfinished op has status %q, finished %v", ops[0].Status, ops[0].FinishedAt)
	}

	finished := started.Add(2 * time.Second)
	if err := c.FinishOperation(id, "success", finished); err != nil {
		t.Fatalf("FinishOperation() error = %v", err)
	}

	ops, err = c.ListOperations(10)
	if err != nil {
		t.Fatal(err)
	}
	op := ops[0]
	if op.Status != "success" {
		t.Errorf("Status = %q, want success", op.Status)
	}
	if op.FinishedAt == nil || !op.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", op.FinishedAt, finished)
	}
}

func TestCatalog_Insert_AfterClose(t *testing.T) {
	c := openTestCatalog(t)
	c.Close()

	_, err := c.Insert(testEntry(model.CategoryText, "/store/text/a.txt", time.Now().UTC()))
	if err == nil {
		t.Fatal("Insert() after Close expected error")
	}
	if !errors.Is(err, core.ErrCatalogWrite) {
		t.Errorf("Insert() error = %v, want ErrCatalogWrite", err)
	}
}
