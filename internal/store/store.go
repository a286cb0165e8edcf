// Package store persists verification runs. Two backends are provided:
// SQLite for local use and Postgres for shared deployments.
package store

import (
	"context"

	"github.com/sells-group/credverify/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	SchemaID string          `json:"schema_id,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for verification runs.
type Store interface {
	CreateRun(ctx context.Context, doc model.Document) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// resultStatus derives the terminal run status from a result payload.
func resultStatus(result *model.RunResult) model.RunStatus {
	if result != nil && result.Result == "skipped" {
		return model.RunStatusSkipped
	}
	return model.RunStatusComplete
}
