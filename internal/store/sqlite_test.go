package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/credverify/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteMigrateSchemaIndex(t *testing.T) {
	s := newTestSQLite(t)

	// The schema filter in ListRuns queries json_extract(document,
	// '$.schema_id'), so the index must be over that expression, not the
	// raw document column.
	var ddl string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT sql FROM sqlite_master WHERE type = 'index' AND name = 'idx_runs_schema'`,
	).Scan(&ddl)
	require.NoError(t, err)
	assert.Contains(t, ddl, "json_extract(document, '$.schema_id')")
}

func TestSQLiteCreateAndGetRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	doc := model.Document{Name: "claim-042.json", SchemaID: "retirement-allowance", Source: "/tmp/claim-042.json"}
	run, err := s.CreateRun(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, doc, got.Document)
	assert.Equal(t, model.RunStatusQueued, got.Status)
	assert.Nil(t, got.Result)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLiteUpdateRunStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.Document{Name: "doc", SchemaID: "s"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusVerifying))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusVerifying, got.Status)

	err = s.UpdateRunStatus(ctx, "nonexistent", model.RunStatusVerifying)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteUpdateRunResult(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.Document{Name: "doc", SchemaID: "s"})
	require.NoError(t, err)

	summary, _ := json.Marshal(map[string]int{"verified_count": 2})
	result := &model.RunResult{
		Result:  "success",
		Summary: summary,
		Output:  json.RawMessage(`{"result":"success"}`),
	}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "success", got.Result.Result)
	assert.JSONEq(t, string(summary), string(got.Result.Summary))
}

func TestSQLiteSkippedResultSetsSkippedStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.Document{Name: "doc", SchemaID: "s"})
	require.NoError(t, err)

	result := &model.RunResult{Result: "skipped", Message: "verification disabled in configuration"}
	require.NoError(t, s.UpdateRunResult(ctx, run.ID, result))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSkipped, got.Status)
	assert.Equal(t, "verification disabled in configuration", got.Result.Message)
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	runA, err := s.CreateRun(ctx, model.Document{Name: "a", SchemaID: "schema-a"})
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, model.Document{Name: "b", SchemaID: "schema-b"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, runA.ID, model.RunStatusComplete))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byStatus, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, runA.ID, byStatus[0].ID)

	bySchema, err := s.ListRuns(ctx, RunFilter{SchemaID: "schema-b"})
	require.NoError(t, err)
	require.Len(t, bySchema, 1)
	assert.Equal(t, "schema-b", bySchema[0].Document.SchemaID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	offset, err := s.ListRuns(ctx, RunFilter{Limit: 10, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, offset, 1)
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, model.RunStatusComplete, resultStatus(&model.RunResult{Result: "success"}))
	assert.Equal(t, model.RunStatusSkipped, resultStatus(&model.RunResult{Result: "skipped"}))
	assert.Equal(t, model.RunStatusComplete, resultStatus(nil))
}
