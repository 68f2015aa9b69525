package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"filedex/internal/core"
)

// Operation is one recorded mutating call against a user's store, kept so
// a "file saved, not indexed" failure can be reconciled later.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string // "success" or "error"
}

// CreateOperation records the start of a mutating operation and returns
// its assigned ID.
func (c *Catalog) CreateOperation(operation, parameters string, startedAt time.Time) (int64, error) {
	res, err := c.db.Exec(`
		INSERT INTO ops (operation, parameters, started_at) VALUES (?, ?, ?)`,
		operation, parameters, startedAt)
	if err != nil {
		return 0, fmt.Errorf("%w: recording operation: %v", core.ErrCatalogWrite, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading operation id: %v", core.ErrCatalogWrite, err)
	}
	return id, nil
}

// FinishOperation marks an operation finished with the given status.
func (c *Catalog) FinishOperation(id int64, status string, finishedAt time.Time) error {
	_, err := c.db.Exec(`UPDATE ops SET finished_at = ?, status = ? WHERE id = ?`,
		finishedAt, status, id)
	if err != nil {
		return fmt.Errorf("%w: finishing operation %d: %v", core.ErrCatalogWrite, id, err)
	}
	return nil
}

// ListOperations returns up to limit operations, most recent first.
func (c *Catalog) ListOperations(limit int) ([]Operation, error) {
	rows, err := c.db.Query(`
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM ops ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	ops := make([]Operation, 0)
	for rows.Next() {
		var op Operation
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finished, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading operations: %w", err)
	}
	return ops, nil
}
