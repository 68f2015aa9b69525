package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filedex/internal/fingerprint"
	"filedex/internal/model"
)

// PreviewCeiling caps the rendered size of any single search preview.
// Longer previews are cut at this boundary and marked truncated.
const PreviewCeiling = 100 * 1024

// TruncationMarker is appended to previews cut at PreviewCeiling so the
// caller never mistakes a truncated preview for complete content.
const TruncationMarker = "\n[preview truncated]"

// textLikeExts are extensions worth content-matching and previewing as text.
var textLikeExts = map[string]bool{
	".txt": true, ".json": true, ".md": true, ".csv": true,
	".log": true, ".py": true, ".xml": true, ".html": true,
}

// TextLike reports whether name has an extension treated as readable text.
func TextLike(name string) bool {
	return textLikeExts[strings.ToLower(filepath.Ext(name))]
}

// ParseQuery splits a raw query into an optional category filter and a
// free-text term. The grammar is an optional leading "type:<category>"
// token (case-insensitive, closed set) followed by free text, which may be
// empty. An unknown category fails with ErrInvalidFilter.
func ParseQuery(raw string) (model.Category, string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", nil
	}

	token := trimmed
	rest := ""
	if i := strings.IndexFunc(trimmed, func(r rune) bool { return r == ' ' || r == '\t' }); i >= 0 {
		token, rest = trimmed[:i], strings.TrimSpace(trimmed[i+1:])
	}

	if !strings.HasPrefix(strings.ToLower(token), "type:") {
		return "", strings.ToLower(trimmed), nil
	}

	name := strings.ToLower(strings.TrimSpace(token[len("type:"):]))
	cat, ok := model.ParseCategory(name)
	if !ok {
		return "", "", fmt.Errorf("%w: %q (valid categories: %s)",
			ErrInvalidFilter, name, categoryList())
	}
	return cat, strings.ToLower(rest), nil
}

func categoryList() string {
	names := make([]string, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// Search answers a raw query against one user's store: catalog first, then
// a filesystem scan when the catalog comes back empty and is stale against
// the folder tree. Fallback results carry SourceFilesystem so the caller
// can tell them apart (and, say, offer to re-index).
func (s *Service) Search(h *StoreHandle, rawQuery string) ([]model.ResultView, error) {
	views, err := s.search(h, rawQuery)
	if err != nil {
		return nil, wrapOp("Search", err)
	}
	return views, nil
}

func (s *Service) search(h *StoreHandle, rawQuery string) ([]model.ResultView, error) {
	cat, term, err := ParseQuery(rawQuery)
	if err != nil {
		return nil, err
	}

	var entries []model.Entry
	if cat == "" && term == "" {
		entries, err = h.Catalog.All()
	} else {
		entries, err = h.Catalog.Search(term, cat)
	}
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		stale, serr := s.catalogStale(h, cat)
		if serr != nil {
			s.logger.Warn("staleness check failed", "user", h.Username, "err", serr)
		} else if stale {
			s.logger.Info("catalog stale, scanning folders", "user", h.Username, "term", term)
			return h.Store.Scan(scanCategories(cat), term)
		}
		return []model.ResultView{}, nil
	}

	views := make([]model.ResultView, 0, len(entries))
	for _, e := range entries {
		views = append(views, s.viewFor(e))
	}
	return views, nil
}

// catalogStale is the named trigger predicate for the filesystem fallback:
// a category folder holding more files than the catalog has rows means the
// catalog is missing entries.
func (s *Service) catalogStale(h *StoreHandle, cat model.Category) (bool, error) {
	for _, c := range scanCategories(cat) {
		files, err := h.Store.CountFiles(c)
		if err != nil {
			return false, err
		}
		rows, err := h.Catalog.CountByCategory(c)
		if err != nil {
			return false, err
		}
		if files > rows {
			return true, nil
		}
	}
	return false, nil
}

func scanCategories(cat model.Category) []model.Category {
	if cat == "" {
		return model.Categories()
	}
	return []model.Category{cat}
}

// viewFor shapes one catalog entry into a ResultView, flagging rows whose
// stored file has vanished out-of-band rather than dropping them.
func (s *Service) viewFor(e model.Entry) model.ResultView {
	name := filepath.Base(e.StoredPath)
	view := model.ResultView{
		EntryID:     e.ID,
		Path:        e.StoredPath,
		Name:        name,
		DisplayName: fingerprint.DisplayName(name),
		Category:    e.Category,
		Source:      model.SourceCatalog,
	}

	if _, err := os.Stat(e.StoredPath); err != nil {
		view.Missing = true
		view.Preview = fmt.Sprintf("[%v: %s]", ErrMissingFile, e.StoredPath)
		return view
	}

	switch {
	case e.JSONPreview != "":
		view.Preview = e.JSONPreview
	case e.Category == model.CategoryText || TextLike(name):
		view.Preview, view.Truncated = readBoundedPreview(e.StoredPath)
	}
	return view
}

// contentMatchLimit bounds how much of a file is read when matching a
// search term against content.
const contentMatchLimit = 200 * 1024

// FileContains reports whether a bounded prefix of a text-like file
// contains term. Binary files never content-match.
func FileContains(path, term string) bool {
	if !TextLike(path) {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, contentMatchLimit)
	n, err := io.ReadFull(f, buf)
	if n <= 0 && err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(buf[:n])), strings.ToLower(term))
}

// readBoundedPreview reads at most PreviewCeiling bytes of a text file,
// appending TruncationMarker when content was cut.
func readBoundedPreview(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	buf := make([]byte, PreviewCeiling+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", false
	}
	if n <= 0 {
		return "", false
	}
	if n > PreviewCeiling {
		return string(buf[:PreviewCeiling]) + TruncationMarker, true
	}
	return string(buf[:n]), false
}
