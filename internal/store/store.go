// Package store owns the per-user on-disk folder tree: provisioning the
// category layout, placing ingested files, and scanning folders for the
// search fallback.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filedex/internal/core"
	"filedex/internal/model"
)

// Manager provisions user stores under a base directory. The layout is one
// pair per username:
//
//	<base>/
//	  <username>_folder/
//	    image/ video/ json/ text/ audio/ pdf/ other/
//	  <username>_database
type Manager struct {
	base string
}

// NewManager creates a store manager rooted at base.
func NewManager(base string) *Manager {
	return &Manager{base: base}
}

// FolderRoot returns the storage root for a username without creating it.
func (m *Manager) FolderRoot(username string) string {
	return filepath.Join(m.base, username+"_folder")
}

// CatalogPath returns the catalog file path for a username.
func (m *Manager) CatalogPath(username string) string {
	return filepath.Join(m.base, username+"_database")
}

// Ensure creates the user's folder tree if absent and returns a handle.
// It is idempotent: an existing tree is left untouched. Failures wrap
// core.ErrStorageProvision.
func (m *Manager) Ensure(username string) (*Handle, error) {
	root := m.FolderRoot(username)
	for _, cat := range model.Categories() {
		dir := filepath.Join(root, string(cat))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", core.ErrStorageProvision, dir, err)
		}
	}
	return &Handle{root: root}, nil
}

// Handle is one user's provisioned folder tree.
type Handle struct {
	root string
}

// Root returns the user's storage root directory.
func (h *Handle) Root() string { return h.root }

// Place streams src into <root>/<cat>/<name> and returns the absolute
// stored path. The write goes through a temp file and rename, so a failed
// placement leaves nothing at the target path. Failures wrap
// core.ErrStorageWrite.
func (h *Handle) Place(cat model.Category, name string, src io.Reader) (string, error) {
	destPath := filepath.Join(h.root, string(cat), name)

	abs, err := filepath.Abs(destPath)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", core.ErrStorageWrite, destPath, err)
	}

	if err := writeAtomic(abs, src); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrStorageWrite, err)
	}
	return abs, nil
}

// writeAtomic writes data from r to destPath via temp file + rename.
func writeAtomic(destPath string, r io.Reader) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}

// CountFiles returns the number of regular files in a category folder.
func (h *Handle) CountFiles(cat model.Category) (int, error) {
	dir := filepath.Join(h.root, string(cat))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	count := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			count++
		}
	}
	return count, nil
}

// Compile-time check that Handle implements core.Store
var _ core.Store = (*Handle)(nil)
