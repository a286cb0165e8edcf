// Package model defines the shared domain types for verification runs and
// the extraction results they consume.
package model

import (
	"encoding/json"
	"time"
)

// RunStatus tracks a verification run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusVerifying RunStatus = "verifying"
	RunStatusComplete  RunStatus = "complete"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// Document identifies the extraction result a run verifies.
type Document struct {
	Name     string `json:"name"`
	SchemaID string `json:"schema_id"`
	Source   string `json:"source,omitempty"`
}

// Run is one verification run over a single document.
type Run struct {
	ID        string     `json:"id"`
	Document  Document   `json:"document"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult is the persisted outcome of a run. Summary and Output hold the
// verification summary and the annotated extraction result as raw JSON so
// the store stays agnostic of their shape.
type RunResult struct {
	Result  string          `json:"result"` // "success" or "skipped"
	Message string          `json:"message,omitempty"`
	Summary json.RawMessage `json:"summary,omitempty"`
	Output  json.RawMessage `json:"output,omitempty"`
}
