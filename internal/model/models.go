package model

import "time"

// Category is one of the fixed content classes used for both folder
// placement and search filtering. The set is closed: unknown MIME types
// map to CategoryOther.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryJSON  Category = "json"
	CategoryText  Category = "text"
	CategoryAudio Category = "audio"
	CategoryPDF   Category = "pdf"
	CategoryOther Category = "other"
)

// Categories returns all categories in their canonical order.
// The order matches the on-disk folder layout.
func Categories() []Category {
	return []Category{
		CategoryImage,
		CategoryVideo,
		CategoryJSON,
		CategoryText,
		CategoryAudio,
		CategoryPDF,
		CategoryOther,
	}
}

// ParseCategory returns the category named by s and whether s is a member
// of the closed set. Matching is exact; callers lowercase user input first.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	for _, known := range Categories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Entry is one catalog row describing one ingested item.
// Entries are created exactly once per successful ingestion and never
// updated in place. Re-ingesting identical content produces a new Entry;
// SHA256 is recorded for integrity reference, not uniqueness enforcement.
type Entry struct {
	ID           int64  // catalog-assigned, unique within one user's catalog
	OriginalPath string // source path, or "pasted:<uuid>" for pasted JSON
	StoredPath   string // absolute path under the user's category folder
	MIME         string // detected media type
	Category     Category
	SHA256       string    // 64-char lowercase hex digest of content
	AddedAt      time.Time // UTC

	// JSON enrichment. Populated only for CategoryJSON; for every other
	// category these are the empty slice / empty string, never null.
	JSONKeys       []string // ordered top-level object keys
	JSONPreview    string   // bounded prefix of a canonical re-serialization
	JSONSearchText string   // flattened lower-cased scalar leaf values
}

// ResultSource distinguishes how a search result was produced, so the
// caller can tell catalog-backed results from fallback scan results and,
// for example, offer to re-index the latter.
type ResultSource string

const (
	SourceCatalog    ResultSource = "catalog"
	SourceFilesystem ResultSource = "filesystem"
)

// ResultView is the value object returned for each search hit. It carries
// everything the presentation layer needs; never a file handle or cursor.
type ResultView struct {
	EntryID     int64  // 0 for filesystem-derived results
	Path        string // absolute stored path
	Name        string // stored filename
	DisplayName string // stored filename with the timestamp prefix stripped
	Category    Category
	Preview     string
	Truncated   bool // preview hit the rendering ceiling
	Source      ResultSource
	Missing     bool // catalog row whose stored file no longer exists on disk
}
