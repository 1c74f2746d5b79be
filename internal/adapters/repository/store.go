// Package repository stores batch job records.
package repository

import (
	"context"

	"github.com/okian/veloperf/internal/domain/model"
)

// Store provides read/write access to job records.
type Store interface {
	// Put inserts or replaces a record. A pending record never replaces a
	// finished one.
	Put(ctx context.Context, rec model.Record) error

	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Record, error)

	// List returns records ordered by submission time, optionally filtered
	// by status. A zero limit returns everything.
	List(ctx context.Context, status model.Status, limit int) ([]model.Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
