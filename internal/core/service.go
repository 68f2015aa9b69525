// Package core implements the ingestion pipeline and search engine that
// operate on per-user stores.
package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"filedex/internal/classify"
	"filedex/internal/fingerprint"
	"filedex/internal/jsonmeta"
	"filedex/internal/model"
)

// Service orchestrates classification, fingerprinting, placement, and
// cataloging for ingestion, and catalog-first retrieval for search.
// A single Service serves any number of user stores; per-user state lives
// entirely in the StoreHandle.
type Service struct {
	detector classify.Detector
	namer    *fingerprint.Namer
	clock    Clock
	idgen    IDGenerator
	logger   Logger
}

// NewService creates a Service with the provided dependencies.
func NewService(detector classify.Detector, namer *fingerprint.Namer, clock Clock, idgen IDGenerator, logger Logger) *Service {
	return &Service{
		detector: detector,
		namer:    namer,
		clock:    clock,
		idgen:    idgen,
		logger:   logger,
	}
}

// IngestFile ingests the file at sourcePath into the user's store.
//
// Side effects are strictly ordered: the file is placed before the catalog
// row is written. A placement failure therefore never leaves a row behind,
// and a catalog failure leaves at worst an orphan file, reported as
// ErrCatalogWrite so the caller can reconcile later.
func (s *Service) IngestFile(h *StoreHandle, sourcePath string) (model.Entry, error) {
	entry, err := s.ingestFile(h, sourcePath)
	if err != nil {
		return model.Entry{}, wrapOp("IngestFile", err)
	}
	return entry, nil
}

func (s *Service) ingestFile(h *StoreHandle, sourcePath string) (model.Entry, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Entry{}, fmt.Errorf("%w: %s", ErrMissingFile, sourcePath)
		}
		return model.Entry{}, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return model.Entry{}, fmt.Errorf("source is a directory: %s", sourcePath)
	}

	mime, err := s.detector.DetectFile(sourcePath)
	if err != nil {
		return model.Entry{}, err
	}
	category := classify.ClassifyFile(mime, sourcePath)

	sha, err := fingerprint.File(sourcePath)
	if err != nil {
		return model.Entry{}, err
	}

	// JSON validation gate: a json-classified file that does not parse is
	// rejected before anything is written.
	var meta jsonmeta.Meta
	if category == model.CategoryJSON {
		raw, err := os.ReadFile(sourcePath)
		if err != nil {
			return model.Entry{}, fmt.Errorf("reading json source: %w", err)
		}
		doc, err := jsonmeta.Parse(raw)
		if err != nil {
			return model.Entry{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		meta = jsonmeta.Extract(doc)
		// Extension-classified files may sniff as text; once validated,
		// record the truthful type.
		mime = "application/json"
	} else {
		meta.Keys = make([]string, 0)
	}

	storedName := s.namer.StoredName(filepath.Base(sourcePath))

	src, err := os.Open(sourcePath)
	if err != nil {
		return model.Entry{}, fmt.Errorf("opening source: %w", err)
	}
	storedPath, placeErr := h.Store.Place(category, storedName, src)
	src.Close()
	if placeErr != nil {
		return model.Entry{}, placeErr
	}

	entry, err := h.Catalog.Insert(model.Entry{
		OriginalPath:   sourcePath,
		StoredPath:     storedPath,
		MIME:           mime,
		Category:       category,
		SHA256:         sha,
		AddedAt:        s.clock.Now().UTC(),
		JSONKeys:       meta.Keys,
		JSONPreview:    meta.Preview,
		JSONSearchText: meta.SearchText,
	})
	if err != nil {
		// The file is already on disk; deliberately not rolled back.
		return model.Entry{}, err
	}

	s.logger.Info("file ingested",
		"user", h.Username, "category", string(category), "stored", storedName)
	return entry, nil
}

// IngestJSONText ingests raw pasted JSON text. The text is validated
// before any file or catalog write; malformed input fails with
// ErrInvalidJSON and mutates nothing.
func (s *Service) IngestJSONText(h *StoreHandle, raw string) (model.Entry, error) {
	entry, err := s.ingestJSONText(h, raw)
	if err != nil {
		return model.Entry{}, wrapOp("IngestJSONText", err)
	}
	return entry, nil
}

func (s *Service) ingestJSONText(h *StoreHandle, raw string) (model.Entry, error) {
	content := []byte(raw)

	doc, err := jsonmeta.Parse(content)
	if err != nil {
		return model.Entry{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	meta := jsonmeta.Extract(doc)

	id := s.idgen.New()
	storedName := s.namer.StoredName("pasted_" + id + ".json")

	storedPath, err := h.Store.Place(model.CategoryJSON, storedName, bytes.NewReader(content))
	if err != nil {
		return model.Entry{}, err
	}

	entry, err := h.Catalog.Insert(model.Entry{
		OriginalPath:   "pasted:" + id,
		StoredPath:     storedPath,
		MIME:           "application/json",
		Category:       model.CategoryJSON,
		SHA256:         fingerprint.Bytes(content),
		AddedAt:        s.clock.Now().UTC(),
		JSONKeys:       meta.Keys,
		JSONPreview:    meta.Preview,
		JSONSearchText: meta.SearchText,
	})
	if err != nil {
		return model.Entry{}, err
	}

	s.logger.Info("json ingested", "user", h.Username, "stored", storedName)
	return entry, nil
}

// Recent returns the most recently ingested entries, newest first.
func (s *Service) Recent(h *StoreHandle, limit int) ([]model.Entry, error) {
	entries, err := h.Catalog.Recent(limit)
	return entries, wrapOp("Recent", err)
}

// All returns every catalog entry, newest first.
func (s *Service) All(h *StoreHandle) ([]model.Entry, error) {
	entries, err := h.Catalog.All()
	return entries, wrapOp("All", err)
}

// JSONOnly returns every json-category entry, newest first.
func (s *Service) JSONOnly(h *StoreHandle) ([]model.Entry, error) {
	entries, err := h.Catalog.JSONOnly()
	return entries, wrapOp("JSONOnly", err)
}
