package workorders

import (
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// LogEntry is one append-only execution log event.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"`
	Agent     string            `json:"agent,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// GuardrailCheck records a single pre-execution check outcome.
type GuardrailCheck struct {
	CheckName string `json:"check_name"`
	Status    string `json:"status"` // passed | failed
	Severity  string `json:"severity"`
	Reason    string `json:"reason,omitempty"`
	Blocking  bool   `json:"blocking"`
}

// ApprovalGate is recorded when an execution needs human sign-off before its
// artifacts may be released.
type ApprovalGate struct {
	GateName    string     `json:"gate_name"`
	RequestedAt time.Time  `json:"requested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
}

// ArtifactSummary is the work order's own record of an artifact it produced.
// Error is set instead of ArtifactID when rendering or storage failed.
type ArtifactSummary struct {
	ArtifactID   string `json:"artifact_id,omitempty"`
	ArtifactType string `json:"artifact_type"`
	FileName     string `json:"file_name,omitempty"`
	Description  string `json:"description,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	Error        string `json:"error,omitempty"`
}

// AgentOutput captures one agent's result along with its cost accounting.
type AgentOutput struct {
	Output        any     `json:"output"`
	ExecutionTime float64 `json:"execution_time_seconds"`
	CostUSD       float64 `json:"cost_usd"`
}

// WorkOrder is the unit of work moving through the
// pending -> processing -> completed/failed lifecycle.
type WorkOrder struct {
	ID                 string                 `json:"id"`
	TenantID           string                 `json:"tenantId"`
	Objective          string                 `json:"objective"`
	InputDatasets      []string               `json:"inputDatasets"`
	AgentOutputs       map[string]AgentOutput `json:"agentOutputs"`
	GuardrailChecks    []GuardrailCheck       `json:"guardrailChecks"`
	ApprovalGates      []ApprovalGate         `json:"approvalGates"`
	Artifacts          []ArtifactSummary      `json:"artifacts"`
	ExecutionLog       []LogEntry             `json:"executionLog"`
	Status             string                 `json:"status"`
	ProgressPercentage int                    `json:"progressPercentage"`
	CurrentAgent       string                 `json:"currentAgent,omitempty"`
	ErrorMessage       string                 `json:"errorMessage,omitempty"`
	TotalCostUSD       float64                `json:"totalCostUsd"`
	ExecutionTimeSecs  *float64               `json:"executionTimeSeconds,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
	CompletedAt        *time.Time             `json:"completedAt,omitempty"`
}

// AppendLog adds an execution log event in place.
func (w *WorkOrder) AppendLog(event, agent string, details map[string]string) {
	w.ExecutionLog = append(w.ExecutionLog, LogEntry{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Agent:     agent,
		Details:   details,
	})
}

// StatusCounts is the per-status tally returned by the stats endpoint.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
