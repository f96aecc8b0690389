package workorders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. The JSONB columns carry the
// execution log, guardrail checks, agent outputs, approval gates and artifact
// summaries exactly as the model serializes them.
type PGRepo struct {
	DB *sql.DB
}

const workOrderColumns = `id, tenant_id, objective, input_datasets, agent_outputs, guardrail_checks, approval_gates, artifacts, execution_log, status, progress_percentage, current_agent, error_message, total_cost_usd, execution_time_seconds, created_at, updated_at, completed_at`

// Create inserts a new work order row.
func (r *PGRepo) Create(ctx context.Context, wo WorkOrder) error {
	const query = `
INSERT INTO work_orders (
    id,
    tenant_id,
    objective,
    input_datasets,
    agent_outputs,
    guardrail_checks,
    approval_gates,
    artifacts,
    execution_log,
    status,
    progress_percentage,
    current_agent,
    error_message,
    total_cost_usd,
    execution_time_seconds,
    created_at,
    updated_at,
    completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	cols, err := encodeJSONColumns(wo)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		wo.ID,
		wo.TenantID,
		wo.Objective,
		cols.inputDatasets,
		cols.agentOutputs,
		cols.guardrailChecks,
		cols.approvalGates,
		cols.artifacts,
		cols.executionLog,
		wo.Status,
		wo.ProgressPercentage,
		nullString(wo.CurrentAgent),
		nullString(wo.ErrorMessage),
		wo.TotalCostUSD,
		nullFloat(wo.ExecutionTimeSecs),
		wo.CreatedAt,
		wo.UpdatedAt,
		nullTime(wo.CompletedAt),
	)
	return err
}

// GetByID returns a work order by ID scoped to a tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	const query = `
SELECT ` + workOrderColumns + `
FROM work_orders
WHERE tenant_id = $1 AND id = $2`

	wo, err := scanWorkOrder(r.DB.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkOrder{}, ErrNotFound
	}
	return wo, err
}

// ListByTenant returns work orders for a tenant, newest first.
func (r *PGRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]WorkOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + workOrderColumns + `
FROM work_orders
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []WorkOrder{}
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wo)
	}
	return out, rows.Err()
}

// CountByStatus tallies the tenant's work orders per status.
func (r *PGRepo) CountByStatus(ctx context.Context, tenantID string) (StatusCounts, error) {
	const query = `
SELECT status, COUNT(*)
FROM work_orders
WHERE tenant_id = $1
GROUP BY status`

	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, err
		}
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusCompleted:
			counts.Completed = n
		case StatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// BeginExecution claims a pending work order with a conditional UPDATE so
// only one of several racing callers wins.
func (r *PGRepo) BeginExecution(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	const query = `
UPDATE work_orders
SET status = $3, updated_at = $4
WHERE tenant_id = $1 AND id = $2 AND status = $5
RETURNING ` + workOrderColumns

	wo, err := scanWorkOrder(r.DB.QueryRowContext(ctx, query, tenantID, id, StatusProcessing, time.Now().UTC(), StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing order from one already claimed.
		if _, getErr := r.GetByID(ctx, tenantID, id); getErr != nil {
			return WorkOrder{}, getErr
		}
		return WorkOrder{}, ErrInvalidState
	}
	return wo, err
}

// Update overwrites the mutable execution fields of a work order.
func (r *PGRepo) Update(ctx context.Context, wo WorkOrder) error {
	const query = `
UPDATE work_orders
SET agent_outputs = $3,
    guardrail_checks = $4,
    approval_gates = $5,
    artifacts = $6,
    execution_log = $7,
    status = $8,
    progress_percentage = $9,
    current_agent = $10,
    error_message = $11,
    total_cost_usd = $12,
    execution_time_seconds = $13,
    updated_at = $14,
    completed_at = $15
WHERE tenant_id = $1 AND id = $2`

	cols, err := encodeJSONColumns(wo)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(
		ctx,
		query,
		wo.TenantID,
		wo.ID,
		cols.agentOutputs,
		cols.guardrailChecks,
		cols.approvalGates,
		cols.artifacts,
		cols.executionLog,
		wo.Status,
		wo.ProgressPercentage,
		nullString(wo.CurrentAgent),
		nullString(wo.ErrorMessage),
		wo.TotalCostUSD,
		nullFloat(wo.ExecutionTimeSecs),
		time.Now().UTC(),
		nullTime(wo.CompletedAt),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type jsonColumns struct {
	inputDatasets   []byte
	agentOutputs    []byte
	guardrailChecks []byte
	approvalGates   []byte
	artifacts       []byte
	executionLog    []byte
}

func encodeJSONColumns(wo WorkOrder) (jsonColumns, error) {
	var cols jsonColumns
	var err error

	encode := func(name string, v any) []byte {
		if err != nil {
			return nil
		}
		var data []byte
		data, err = json.Marshal(v)
		if err != nil {
			err = fmt.Errorf("encode %s: %w", name, err)
		}
		return data
	}

	cols.inputDatasets = encode("input_datasets", emptySlice(wo.InputDatasets))
	cols.agentOutputs = encode("agent_outputs", emptyMap(wo.AgentOutputs))
	cols.guardrailChecks = encode("guardrail_checks", emptySlice(wo.GuardrailChecks))
	cols.approvalGates = encode("approval_gates", emptySlice(wo.ApprovalGates))
	cols.artifacts = encode("artifacts", emptySlice(wo.Artifacts))
	cols.executionLog = encode("execution_log", emptySlice(wo.ExecutionLog))
	return cols, err
}

func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func emptyMap(m map[string]AgentOutput) map[string]AgentOutput {
	if m == nil {
		return map[string]AgentOutput{}
	}
	return m
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row rowScanner) (WorkOrder, error) {
	var wo WorkOrder
	var inputDatasets, agentOutputs, guardrailChecks, approvalGates, artifacts, executionLog []byte
	var currentAgent, errorMessage sql.NullString
	var executionTime sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(
		&wo.ID,
		&wo.TenantID,
		&wo.Objective,
		&inputDatasets,
		&agentOutputs,
		&guardrailChecks,
		&approvalGates,
		&artifacts,
		&executionLog,
		&wo.Status,
		&wo.ProgressPercentage,
		&currentAgent,
		&errorMessage,
		&wo.TotalCostUSD,
		&executionTime,
		&wo.CreatedAt,
		&wo.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return WorkOrder{}, err
	}

	wo.CurrentAgent = currentAgent.String
	wo.ErrorMessage = errorMessage.String
	if executionTime.Valid {
		wo.ExecutionTimeSecs = &executionTime.Float64
	}
	if completedAt.Valid {
		t := completedAt.Time
		wo.CompletedAt = &t
	}

	decode := func(name string, raw []byte, dst any) {
		if err != nil || len(raw) == 0 {
			return
		}
		if uerr := json.Unmarshal(raw, dst); uerr != nil {
			err = fmt.Errorf("decode %s: %w", name, uerr)
		}
	}
	decode("input_datasets", inputDatasets, &wo.InputDatasets)
	decode("agent_outputs", agentOutputs, &wo.AgentOutputs)
	decode("guardrail_checks", guardrailChecks, &wo.GuardrailChecks)
	decode("approval_gates", approvalGates, &wo.ApprovalGates)
	decode("artifacts", artifacts, &wo.Artifacts)
	decode("execution_log", executionLog, &wo.ExecutionLog)
	if err != nil {
		return WorkOrder{}, err
	}
	return wo, nil
}
