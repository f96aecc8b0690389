package workorders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/datasets"
	"treasury-backend/internal/forecast"
	"treasury-backend/internal/queue"
	"treasury-backend/internal/render"
	"treasury-backend/internal/shared/metrics"
	"treasury-backend/internal/shared/telemetry"
)

// Service contains business logic for the work order lifecycle. Execution
// runs the forecast agent pipeline: guardrails, dataset loading, the cash
// projection, workbook rendering and artifact storage, with progress
// checkpoints persisted after every stage.
type Service struct {
	Repo      Repo
	Datasets  *datasets.Service
	Artifacts *artifacts.Store
	// Queue, when set, hands executions to the worker fleet instead of an
	// in-process goroutine.
	Queue queue.Client

	MinCashBalance decimal.Decimal
	ForecastWeeks  int
}

// Create registers a new pending work order.
func (s *Service) Create(ctx context.Context, tenantID, objective string, datasetIDs []string) (WorkOrder, error) {
	if strings.TrimSpace(objective) == "" {
		return WorkOrder{}, fmt.Errorf("%w: objective is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	wo := WorkOrder{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		Objective:     strings.TrimSpace(objective),
		InputDatasets: append([]string{}, datasetIDs...),
		AgentOutputs:  map[string]AgentOutput{},
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	wo.AppendLog("work_order_created", "", map[string]string{
		"dataset_count": strconv.Itoa(len(datasetIDs)),
	})

	if err := s.Repo.Create(ctx, wo); err != nil {
		return WorkOrder{}, err
	}

	telemetry.Info("work order created", map[string]any{
		"work_order_id": wo.ID,
		"tenant_id":     tenantID,
		"datasets":      len(datasetIDs),
	})
	return wo, nil
}

// Get returns a work order by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	if id == "" {
		return WorkOrder{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, tenantID, id)
}

// List returns work orders for a tenant, newest first.
func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]WorkOrder, error) {
	return s.Repo.ListByTenant(ctx, tenantID, limit, offset)
}

// Stats tallies the tenant's work orders per status.
func (s *Service) Stats(ctx context.Context, tenantID string) (StatusCounts, error) {
	return s.Repo.CountByStatus(ctx, tenantID)
}

// ExecuteAsync claims a pending work order and schedules its pipeline. The
// claim happens synchronously so a second caller immediately sees
// ErrInvalidState; the pipeline itself runs on the worker fleet when a queue
// is configured, otherwise on a background goroutine.
func (s *Service) ExecuteAsync(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	wo, err := s.Repo.BeginExecution(ctx, tenantID, id)
	if err != nil {
		return WorkOrder{}, err
	}
	metrics.IncWorkOrderStarted()
	telemetry.Info("work order execution claimed", map[string]any{
		"work_order_id":     wo.ID,
		"tenant_id":         tenantID,
		"status_transition": "pending->processing",
	})

	if s.Queue != nil {
		msg := queue.Message{
			WorkOrderID: wo.ID,
			TenantID:    tenantID,
			RequestID:   requestIDFromContext(ctx),
			EnqueuedAt:  time.Now().UTC().Format(time.RFC3339),
			Version:     1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			s.fail(backgroundWithRequestID(ctx), wo, time.Now().UTC(), fmt.Errorf("enqueue execution: %w", err))
			return WorkOrder{}, err
		}
		return wo, nil
	}

	go s.runPipeline(backgroundWithRequestID(ctx), wo)
	return wo, nil
}

// ExecuteClaimed runs the pipeline for a work order that is already in
// processing, typically after the claim travelled through the queue.
func (s *Service) ExecuteClaimed(ctx context.Context, tenantID, id string) error {
	wo, err := s.Repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if wo.Status != StatusProcessing {
		return ErrInvalidState
	}
	s.runPipeline(ctx, wo)
	return nil
}

// Execute claims and runs the pipeline synchronously.
func (s *Service) Execute(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	wo, err := s.Repo.BeginExecution(ctx, tenantID, id)
	if err != nil {
		return WorkOrder{}, err
	}
	metrics.IncWorkOrderStarted()
	s.runPipeline(ctx, wo)
	return s.Repo.GetByID(ctx, tenantID, id)
}

func (s *Service) runPipeline(ctx context.Context, wo WorkOrder) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, wo, startedAt, fmt.Errorf("panic: %v", r))
		}
	}()

	wo.CurrentAgent = forecast.AgentName
	wo.ProgressPercentage = 10
	wo.AppendLog("execution_started", "", map[string]string{
		"request_id": requestIDFromContext(ctx),
	})
	if err := s.Repo.Update(ctx, wo); err != nil {
		s.fail(ctx, wo, startedAt, fmt.Errorf("persist execution start: %w", err))
		return
	}

	// Resolve the referenced datasets. Missing ones surface through the
	// guardrail checks rather than as a lookup error.
	inputs := make([]datasets.Dataset, 0, len(wo.InputDatasets))
	for _, dsID := range wo.InputDatasets {
		ds, err := s.Datasets.Get(ctx, wo.TenantID, dsID)
		if err != nil {
			if errors.Is(err, datasets.ErrNotFound) {
				continue
			}
			s.fail(ctx, wo, startedAt, fmt.Errorf("resolve dataset %s: %w", dsID, err))
			return
		}
		inputs = append(inputs, ds)
	}

	checks, blocked := runGuardrails(wo, inputs)
	wo.GuardrailChecks = checks
	wo.AppendLog("guardrails_evaluated", "", map[string]string{
		"checks":  strconv.Itoa(len(checks)),
		"blocked": strconv.FormatBool(blocked),
	})
	if blocked {
		s.fail(ctx, wo, startedAt, fmt.Errorf("blocked by guardrails: %s", blockedReasons(checks)))
		return
	}

	agentInput, err := s.loadAgentInput(ctx, inputs)
	if err != nil {
		s.fail(ctx, wo, startedAt, err)
		return
	}

	wo.ProgressPercentage = 30
	wo.AppendLog("datasets_loaded", "", map[string]string{
		"datasets":    strconv.Itoa(len(inputs)),
		"receivables": strconv.Itoa(len(agentInput.Receivables)),
		"payables":    strconv.Itoa(len(agentInput.Payables)),
	})
	if err := s.Repo.Update(ctx, wo); err != nil {
		s.fail(ctx, wo, startedAt, fmt.Errorf("persist dataset checkpoint: %w", err))
		return
	}

	agentStarted := time.Now().UTC()
	result, err := forecast.Compute(agentInput, forecast.Options{
		Weeks:          s.ForecastWeeks,
		MinCashBalance: s.MinCashBalance,
	})
	if err != nil {
		wo.AppendLog("agent_failed", forecast.AgentName, map[string]string{"error": err.Error()})
		s.fail(ctx, wo, startedAt, err)
		return
	}

	agentOutput := AgentOutput{
		Output:        result,
		ExecutionTime: time.Since(agentStarted).Seconds(),
	}
	wo.AgentOutputs[forecast.AgentName] = agentOutput
	wo.TotalCostUSD += agentOutput.CostUSD
	wo.ProgressPercentage = 70
	wo.AppendLog("forecast_computed", forecast.AgentName, map[string]string{
		"weeks":    strconv.Itoa(len(result.Weeks)),
		"warnings": strconv.Itoa(len(result.LiquidityWarnings)),
	})
	if err := s.Repo.Update(ctx, wo); err != nil {
		s.fail(ctx, wo, startedAt, fmt.Errorf("persist forecast checkpoint: %w", err))
		return
	}

	workbook, err := render.CashLadder(result, render.Metadata{
		TenantName:  wo.TenantID,
		Objective:   wo.Objective,
		GeneratedAt: time.Now().UTC(),
	}, s.MinCashBalance, s.ForecastWeeks)
	if err != nil {
		wo.Artifacts = append(wo.Artifacts, ArtifactSummary{
			ArtifactType: "error",
			Description:  "13-week cash ladder workbook",
			Error:        err.Error(),
		})
		s.fail(ctx, wo, startedAt, fmt.Errorf("render cash ladder: %w", err))
		return
	}

	artifact, err := s.Artifacts.Put(ctx, artifacts.PutInput{
		WorkOrderID:  wo.ID,
		TenantID:     wo.TenantID,
		ArtifactType: "excel",
		BaseName:     "Cash_Ladder",
		Extension:    "xlsx",
		MimeType:     artifacts.MimeXLSX,
		Bytes:        workbook,
		Metadata: map[string]string{
			"report":   "cash_ladder",
			"weeks":    strconv.Itoa(len(result.Weeks)),
			"warnings": strconv.Itoa(len(result.LiquidityWarnings)),
		},
		GeneratedByAgent: forecast.AgentName,
	})
	if err != nil {
		wo.Artifacts = append(wo.Artifacts, ArtifactSummary{
			ArtifactType: "error",
			Description:  "13-week cash ladder workbook",
			Error:        err.Error(),
		})
		s.fail(ctx, wo, startedAt, fmt.Errorf("store cash ladder: %w", err))
		return
	}

	wo.Artifacts = append(wo.Artifacts, ArtifactSummary{
		ArtifactID:   artifact.ID,
		ArtifactType: artifact.ArtifactType,
		FileName:     artifact.FileName,
		Description:  "13-week cash ladder workbook",
		SizeBytes:    artifact.SizeBytes,
	})
	wo.ProgressPercentage = 90
	wo.AppendLog("artifact_stored", forecast.AgentName, map[string]string{
		"artifact_id": artifact.ID,
		"file_name":   artifact.FileName,
	})
	if err := s.Repo.Update(ctx, wo); err != nil {
		s.fail(ctx, wo, startedAt, fmt.Errorf("persist artifact checkpoint: %w", err))
		return
	}

	completedAt := time.Now().UTC()
	elapsed := completedAt.Sub(startedAt).Seconds()
	wo.Status = StatusCompleted
	wo.ProgressPercentage = 100
	wo.CurrentAgent = ""
	wo.CompletedAt = &completedAt
	wo.ExecutionTimeSecs = &elapsed
	wo.AppendLog("execution_completed", "", map[string]string{
		"execution_time_seconds": strconv.FormatFloat(elapsed, 'f', 3, 64),
	})
	if err := s.Repo.Update(ctx, wo); err != nil {
		s.fail(ctx, wo, startedAt, fmt.Errorf("persist completion: %w", err))
		return
	}

	metrics.IncWorkOrderCompleted()
	metrics.ObserveExecutionDurationMs(elapsed * 1000)
	telemetry.Info("work order completed", map[string]any{
		"work_order_id":          wo.ID,
		"tenant_id":              wo.TenantID,
		"status_transition":      "processing->completed",
		"execution_time_seconds": elapsed,
	})
}

// loadAgentInput reads the normalized rows of every input dataset and shapes
// them into the forecast agent's input. The opening balance and anchor date
// come from the last row of the bank statement.
func (s *Service) loadAgentInput(ctx context.Context, inputs []datasets.Dataset) (forecast.Input, error) {
	var in forecast.Input

	for _, ds := range inputs {
		records, err := s.Datasets.LoadRecords(ctx, ds)
		if err != nil {
			return forecast.Input{}, fmt.Errorf("load dataset %s: %w", ds.ID, err)
		}
		switch ds.TemplateType {
		case datasets.TemplateBankStatement:
			if n := len(records.BankStatement); n > 0 {
				last := records.BankStatement[n-1]
				in.CurrentCash = last.Balance
				in.CurrentCashKnown = true
				in.AnchorDate = last.Date
			}
		case datasets.TemplateAROpenItems:
			in.Receivables = append(in.Receivables, records.AROpenItems...)
		case datasets.TemplateAPOpenItems:
			in.Payables = append(in.Payables, records.APOpenItems...)
		}
	}
	return in, nil
}

// fail marks the work order failed. The terminal update runs on a fresh
// context so a cancelled request cannot leave the order stuck in processing.
func (s *Service) fail(ctx context.Context, wo WorkOrder, startedAt time.Time, cause error) {
	elapsed := time.Since(startedAt).Seconds()
	wo.Status = StatusFailed
	wo.CurrentAgent = ""
	wo.ErrorMessage = cause.Error()
	wo.ExecutionTimeSecs = &elapsed
	wo.AppendLog("execution_failed", "", map[string]string{"error": cause.Error()})

	updateCtx := backgroundWithRequestID(ctx)
	if err := s.Repo.Update(updateCtx, wo); err != nil {
		telemetry.Error("work order failure update failed", map[string]any{
			"work_order_id": wo.ID,
			"error":         err.Error(),
		})
	}

	metrics.IncWorkOrderFailed()
	telemetry.Error("work order failed", map[string]any{
		"work_order_id":     wo.ID,
		"tenant_id":         wo.TenantID,
		"status_transition": "processing->failed",
		"error":             cause.Error(),
	})
}

func blockedReasons(checks []GuardrailCheck) string {
	var reasons []string
	for _, c := range checks {
		if c.Blocking && c.Status == "failed" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", c.CheckName, c.Reason))
		}
	}
	return strings.Join(reasons, "; ")
}
