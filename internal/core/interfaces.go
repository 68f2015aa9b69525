package core

import (
	"io"

	"filedex/internal/model"
)

// Catalog provides an interface for one user's metadata catalog.
// Implementations own the underlying connection; every method is
// all-or-nothing with respect to the row it touches.
type Catalog interface {
	// Insert records a new entry and returns it with its catalog-assigned ID.
	Insert(e model.Entry) (model.Entry, error)

	// Recent returns up to limit entries, most recent first.
	Recent(limit int) ([]model.Entry, error)

	// All returns every entry, most recent first.
	All() ([]model.Entry, error)

	// JSONOnly returns every json-category entry, most recent first.
	JSONOnly() ([]model.Entry, error)

	// Search matches term case-insensitively against stored filename,
	// original path, and json search text. An empty term matches every
	// entry. A non-empty cat restricts results to that category.
	Search(term string, cat model.Category) ([]model.Entry, error)

	// CountByCategory returns the number of entries in a category.
	CountByCategory(cat model.Category) (int, error)

	// Path returns the catalog file path.
	Path() string

	// Close closes the catalog.
	Close() error
}

// Store provides an interface for one user's on-disk folder tree.
// Place is the only operation that writes into the category folders, so
// folder contents and catalog rows stay cross-validatable.
type Store interface {
	// Root returns the user's storage root directory.
	Root() string

	// Place streams src into <root>/<cat>/<name> and returns the absolute
	// stored path. On failure nothing is left behind at the target path.
	Place(cat model.Category, name string, src io.Reader) (string, error)

	// CountFiles returns the number of files in a category folder.
	CountFiles(cat model.Category) (int, error)

	// Scan walks the given category folders matching term against
	// filenames and, for text-like files, bounded content reads. Results
	// are synthesized without catalog metadata.
	Scan(cats []model.Category, term string) ([]model.ResultView, error)
}

// StoreHandle binds one username to its store and catalog. Every core call
// takes an explicit handle; there is no ambient "current user".
type StoreHandle struct {
	Username string
	Store    Store
	Catalog  Catalog
}
