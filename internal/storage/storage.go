// Package storage defines the persistence interface for assignment runs.
package storage

import (
	"context"

	"github.com/proteomica/comap/internal/models"
)

// Storage persists runs with their labels and captured complexes.
type Storage interface {
	// SaveRun stores a run together with its assignment. The run's
	// Assignment must be populated.
	SaveRun(ctx context.Context, run *models.Run) error

	// GetRun returns a run by ID with its captured complexes and labels
	// loaded into the Assignment field.
	GetRun(ctx context.Context, id string) (*models.Run, error)

	// ListRuns returns the most recent runs, newest first, without
	// assignments.
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)

	// DeleteRun removes a run and its labels and captures.
	DeleteRun(ctx context.Context, id string) error

	// CountRuns returns the number of stored runs.
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
