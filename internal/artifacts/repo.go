package artifacts

import "context"

// Repo defines persistence operations for artifact records.
type Repo interface {
	Create(ctx context.Context, a Artifact) error
	GetByID(ctx context.Context, tenantID, id string) (Artifact, error)
	ListByWorkOrder(ctx context.Context, tenantID, workOrderID string) ([]Artifact, error)
}
