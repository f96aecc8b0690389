package workorders

import "context"

// Repo defines persistence operations for work orders.
type Repo interface {
	Create(ctx context.Context, wo WorkOrder) error
	GetByID(ctx context.Context, tenantID, id string) (WorkOrder, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]WorkOrder, error)
	CountByStatus(ctx context.Context, tenantID string) (StatusCounts, error)
	// BeginExecution atomically moves a pending work order to processing.
	// Exactly one caller wins when several race; the rest get
	// ErrInvalidState. ErrNotFound is returned when the order does not
	// exist for the tenant.
	BeginExecution(ctx context.Context, tenantID, id string) (WorkOrder, error)
	// Update overwrites the mutable execution fields of the work order.
	Update(ctx context.Context, wo WorkOrder) error
}
