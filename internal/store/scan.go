package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filedex/internal/core"
	"filedex/internal/fingerprint"
	"filedex/internal/model"
)

// Scan walks the given category folders and synthesizes minimal results
// for files whose name — or, for text-like files, bounded content —
// contains term. An empty term matches every file. Scan is the search
// engine's fallback when the catalog is stale; results carry
// model.SourceFilesystem.
func (h *Handle) Scan(cats []model.Category, term string) ([]model.ResultView, error) {
	term = strings.ToLower(term)
	views := make([]model.ResultView, 0)

	for _, cat := range cats {
		dir := filepath.Join(h.root, string(cat))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}

		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			name := e.Name()
			full := filepath.Join(dir, name)

			if term != "" && !strings.Contains(strings.ToLower(name), term) &&
				!core.FileContains(full, term) {
				continue
			}

			views = append(views, model.ResultView{
				Path:        full,
				Name:        name,
				DisplayName: fingerprint.DisplayName(name),
				Category:    cat,
				Source:      model.SourceFilesystem,
			})
		}
	}
	return views, nil
}
