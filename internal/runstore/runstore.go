// Package runstore persists pipeline run history.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/laborsync/internal/pipeline"
)

// ErrNotFound is returned when no run exists with the requested ID.
var ErrNotFound = errors.New("run not found")

// Store persists pipeline runs.
type Store interface {
	// CreateRun records a newly started run.
	CreateRun(ctx context.Context, run pipeline.Run) error
	// FinishRun marks a run terminal with its status and result detail.
	FinishRun(ctx context.Context, id string, status pipeline.RunStatus, finished time.Time, detail []byte) error
	// GetRun returns one run by ID, or ErrNotFound.
	GetRun(ctx context.Context, id string) (pipeline.Run, error)
	// ListRuns returns up to limit runs, most recent first.
	ListRuns(ctx context.Context, limit int) ([]pipeline.Run, error)
}
