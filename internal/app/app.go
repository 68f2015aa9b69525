// Package app is the application layer between the CLI and the core
// service. It constructs all dependencies from config, provisions user
// stores on demand, and runs core calls through the worker dispatcher so
// they never execute on the caller's path.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filedex/internal/catalog"
	"filedex/internal/classify"
	"filedex/internal/config"
	"filedex/internal/core"
	"filedex/internal/fingerprint"
	"filedex/internal/model"
	"filedex/internal/store"
)

// App wires config into a running service. One App serves any number of
// usernames; per-user handles are opened lazily and cached until Close.
//
// Usernames reaching App are already validated by the authentication
// layer; App never re-checks credentials.
type App struct {
	cfg        *config.Config
	stores     *store.Manager
	service    *core.Service
	dispatcher *core.Dispatcher
	logger     *slog.Logger
	logFile    *os.File

	mu      sync.Mutex
	handles map[string]*userStore
}

type userStore struct {
	handle  *core.StoreHandle
	catalog *catalog.Catalog
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "IngestFile").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	opID := fmt.Sprintf("%s-%s", operation, time.Now().UTC().Format("20060102T150405Z"))
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	namer := fingerprint.NewNamer(core.RealClock{})
	service := core.NewService(
		classify.NewSniffDetector(),
		namer,
		core.RealClock{},
		core.UUIDGenerator{},
		&slogAdapter{l: logger},
	)

	return &App{
		cfg:        cfg,
		stores:     store.NewManager(cfg.BaseDir),
		service:    service,
		dispatcher: core.NewDispatcher(cfg.Workers),
		logger:     logger,
		logFile:    logFile,
		handles:    make(map[string]*userStore),
	}, nil
}

// userStore returns the cached handle for username, provisioning the
// folder tree and opening the catalog on first use. Folder tree and
// catalog are created together: any failure yields an error and no handle.
func (a *App) userStore(username string) (*userStore, error) {
	if username == "" {
		return nil, fmt.Errorf("username required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if us, ok := a.handles[username]; ok {
		return us, nil
	}

	sh, err := a.stores.Ensure(username)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Open(a.stores.CatalogPath(username))
	if err != nil {
		return nil, err
	}

	us := &userStore{
		handle: &core.StoreHandle{
			Username: username,
			Store:    sh,
			Catalog:  cat,
		},
		catalog: cat,
	}
	a.handles[username] = us
	return us, nil
}

// EnsureStore provisions the user's store without performing any other
// operation.
func (a *App) EnsureStore(username string) error {
	_, err := a.userStore(username)
	return err
}

// FolderPath returns the user's storage root, provisioning it if needed.
func (a *App) FolderPath(username string) (string, error) {
	us, err := a.userStore(username)
	if err != nil {
		return "", err
	}
	return us.handle.Store.Root(), nil
}

// run executes a task on the dispatcher and blocks for its outcome.
func (a *App) run(task core.Task) (any, error) {
	out := <-a.dispatcher.Submit(task)
	return out.Value, out.Err
}

// recordOperation wraps a mutating call with an ops-log entry so failures
// after a file write ("saved, not indexed") can be reconciled later.
func (a *App) recordOperation(us *userStore, name, params string, fn func() (any, error)) (any, error) {
	opID, err := us.catalog.CreateOperation(name, params, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	value, err := fn()

	status := "success"
	if err != nil {
		status = "error"
	}
	if ferr := us.catalog.FinishOperation(opID, status, time.Now().UTC()); ferr != nil {
		a.logger.Warn("finishing operation record", "op", name, "err", ferr)
	}
	return value, err
}

// IngestFile ingests the file at rawPath into the user's store.
func (a *App) IngestFile(username, rawPath string) (model.Entry, error) {
	us, err := a.userStore(username)
	if err != nil {
		return model.Entry{}, err
	}

	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return model.Entry{}, fmt.Errorf("resolving path: %w", err)
	}

	value, err := a.recordOperation(us, "IngestFile", absPath, func() (any, error) {
		return a.run(func() (any, error) {
			return a.service.IngestFile(us.handle, absPath)
		})
	})
	if err != nil {
		return model.Entry{}, err
	}
	return value.(model.Entry), nil
}

// IngestJSONText ingests raw pasted JSON text into the user's store.
func (a *App) IngestJSONText(username, raw string) (model.Entry, error) {
	us, err := a.userStore(username)
	if err != nil {
		return model.Entry{}, err
	}

	value, err := a.recordOperation(us, "IngestJSONText", "", func() (any, error) {
		return a.run(func() (any, error) {
			return a.service.IngestJSONText(us.handle, raw)
		})
	})
	if err != nil {
		return model.Entry{}, err
	}
	return value.(model.Entry), nil
}

// Search answers a raw query against the user's store.
func (a *App) Search(username, rawQuery string) ([]model.ResultView, error) {
	us, err := a.userStore(username)
	if err != nil {
		return nil, err
	}

	value, err := a.run(func() (any, error) {
		return a.service.Search(us.handle, rawQuery)
	})
	if err != nil {
		return nil, err
	}
	return value.([]model.ResultView), nil
}

// Recent returns the user's most recently ingested entries.
func (a *App) Recent(username string, limit int) ([]model.Entry, error) {
	us, err := a.userStore(username)
	if err != nil {
		return nil, err
	}
	return a.service.Recent(us.handle, limit)
}

// All returns every entry in the user's catalog.
func (a *App) All(username string) ([]model.Entry, error) {
	us, err := a.userStore(username)
	if err != nil {
		return nil, err
	}
	return a.service.All(us.handle)
}

// JSONOnly returns every json-category entry in the user's catalog.
func (a *App) JSONOnly(username string) ([]model.Entry, error) {
	us, err := a.userStore(username)
	if err != nil {
		return nil, err
	}
	return a.service.JSONOnly(us.handle)
}

// History returns the user's most recent recorded operations.
func (a *App) History(username string, limit int) ([]catalog.Operation, error) {
	us, err := a.userStore(username)
	if err != nil {
		return nil, err
	}
	return us.catalog.ListOperations(limit)
}

// Close drains the dispatcher and releases every open catalog and the log
// file.
func (a *App) Close() error {
	a.dispatcher.Close()

	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for username, us := range a.handles {
		if err := us.catalog.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing catalog for %s: %w", username, err)
		}
	}
	a.handles = make(map[string]*userStore)

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
