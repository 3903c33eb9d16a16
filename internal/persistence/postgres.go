package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/jackc/pgx/v5"
	"github.com/lyzr/flowengine/common/db"
	"github.com/lyzr/flowengine/internal/workflow"
)

// PostgresAdapter persists workflows as JSONB and executions as a row plus
// a JSONB document, following the teacher's repository layer
// (cmd/orchestrator/repository) for the query shape. Partial updates are
// applied as a JSON Merge Patch (RFC 7396) against the previously stored
// document rather than a full overwrite, carrying forward the teacher's
// patch-based artifact chain (common/models/patch_chain.go) into the
// executor's write path instead of workflow authoring, which stays out of
// the core's scope.
type PostgresAdapter struct {
	db *db.DB
}

// NewPostgresAdapter wraps an existing connection pool.
func NewPostgresAdapter(database *db.DB) *PostgresAdapter {
	return &PostgresAdapter{db: database}
}

// Schema creates the two tables this adapter needs. Callers run this once
// at startup, or via an external migration tool; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id           TEXT PRIMARY KEY,
	org_id       TEXT NOT NULL,
	version_hash TEXT NOT NULL,
	definition   JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS executions (
	id         TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	org_id      TEXT NOT NULL,
	document    JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (a *PostgresAdapter) LoadWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	var raw []byte
	err := a.db.QueryRow(ctx,
		`SELECT definition FROM workflows WHERE id = $1`, workflowID,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrWorkflowNotFound{WorkflowID: workflowID}
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: load workflow %s: %w", workflowID, err)
	}

	var wf workflow.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("persistence: decode workflow %s: %w", workflowID, err)
	}
	return &wf, nil
}

// PutWorkflow upserts a workflow definition, used by the authoring
// collaborator's write path (kept here since the core owns the table).
func (a *PostgresAdapter) PutWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	raw, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("persistence: encode workflow %s: %w", wf.ID, err)
	}
	_, err = a.db.Exec(ctx, `
		INSERT INTO workflows (id, org_id, version_hash, definition)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			org_id = EXCLUDED.org_id,
			version_hash = EXCLUDED.version_hash,
			definition = EXCLUDED.definition
	`, wf.ID, wf.OrgID, wf.VersionHash, raw)
	if err != nil {
		return fmt.Errorf("persistence: put workflow %s: %w", wf.ID, err)
	}
	return nil
}

func (a *PostgresAdapter) SaveExecution(ctx context.Context, record *workflow.Execution) error {
	patch, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("persistence: encode execution %s: %w", record.ID, err)
	}

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("persistence: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing []byte
	err = tx.QueryRow(ctx, `SELECT document FROM executions WHERE id = $1 FOR UPDATE`, record.ID).Scan(&existing)

	var merged []byte
	switch err {
	case pgx.ErrNoRows:
		merged = patch
	case nil:
		merged, err = jsonpatch.MergePatch(existing, patch)
		if err != nil {
			return fmt.Errorf("persistence: merge patch execution %s: %w", record.ID, err)
		}
	default:
		return fmt.Errorf("persistence: read execution %s: %w", record.ID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO executions (id, workflow_id, org_id, document, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = now()
	`, record.ID, record.WorkflowID, record.OrgID, merged)
	if err != nil {
		return fmt.Errorf("persistence: save execution %s: %w", record.ID, err)
	}

	return tx.Commit(ctx)
}

func (a *PostgresAdapter) GetExecution(ctx context.Context, executionID string) (*workflow.Execution, error) {
	var raw []byte
	err := a.db.QueryRow(ctx,
		`SELECT document FROM executions WHERE id = $1`, executionID,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, &ErrExecutionNotFound{ExecutionID: executionID}
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: get execution %s: %w", executionID, err)
	}

	var rec workflow.Execution
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("persistence: decode execution %s: %w", executionID, err)
	}
	return &rec, nil
}
