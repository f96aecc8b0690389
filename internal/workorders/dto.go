package workorders

import "time"

type createRequest struct {
	Objective  string   `json:"objective"`
	DatasetIDs []string `json:"datasetIds"`
}

// WorkOrderResponse is the wire shape of a work order.
type WorkOrderResponse struct {
	WorkOrderID        string                 `json:"workOrderId"`
	Objective          string                 `json:"objective"`
	InputDatasets      []string               `json:"inputDatasets"`
	Status             string                 `json:"status"`
	ProgressPercentage int                    `json:"progressPercentage"`
	CurrentAgent       string                 `json:"currentAgent,omitempty"`
	ErrorMessage       string                 `json:"errorMessage,omitempty"`
	GuardrailChecks    []GuardrailCheck       `json:"guardrailChecks"`
	AgentOutputs       map[string]AgentOutput `json:"agentOutputs"`
	Artifacts          []ArtifactSummary      `json:"artifacts"`
	ExecutionLog       []LogEntry             `json:"executionLog"`
	TotalCostUSD       float64                `json:"totalCostUsd"`
	ExecutionTimeSecs  *float64               `json:"executionTimeSeconds,omitempty"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
	CompletedAt        *time.Time             `json:"completedAt,omitempty"`
}

func toResponse(wo WorkOrder) WorkOrderResponse {
	resp := WorkOrderResponse{
		WorkOrderID:        wo.ID,
		Objective:          wo.Objective,
		InputDatasets:      wo.InputDatasets,
		Status:             wo.Status,
		ProgressPercentage: wo.ProgressPercentage,
		CurrentAgent:       wo.CurrentAgent,
		ErrorMessage:       wo.ErrorMessage,
		GuardrailChecks:    wo.GuardrailChecks,
		AgentOutputs:       wo.AgentOutputs,
		Artifacts:          wo.Artifacts,
		ExecutionLog:       wo.ExecutionLog,
		TotalCostUSD:       wo.TotalCostUSD,
		ExecutionTimeSecs:  wo.ExecutionTimeSecs,
		CreatedAt:          wo.CreatedAt,
		UpdatedAt:          wo.UpdatedAt,
		CompletedAt:        wo.CompletedAt,
	}
	if resp.InputDatasets == nil {
		resp.InputDatasets = []string{}
	}
	if resp.GuardrailChecks == nil {
		resp.GuardrailChecks = []GuardrailCheck{}
	}
	if resp.AgentOutputs == nil {
		resp.AgentOutputs = map[string]AgentOutput{}
	}
	if resp.Artifacts == nil {
		resp.Artifacts = []ArtifactSummary{}
	}
	if resp.ExecutionLog == nil {
		resp.ExecutionLog = []LogEntry{}
	}
	return resp
}

// listItemResponse is the trimmed shape used by the list endpoint.
type listItemResponse struct {
	WorkOrderID        string     `json:"workOrderId"`
	Objective          string     `json:"objective"`
	Status             string     `json:"status"`
	ProgressPercentage int        `json:"progressPercentage"`
	CreatedAt          time.Time  `json:"createdAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

func toListItem(wo WorkOrder) listItemResponse {
	return listItemResponse{
		WorkOrderID:        wo.ID,
		Objective:          wo.Objective,
		Status:             wo.Status,
		ProgressPercentage: wo.ProgressPercentage,
		CreatedAt:          wo.CreatedAt,
		CompletedAt:        wo.CompletedAt,
	}
}
