package workorders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]map[string]WorkOrder // tenantId -> id -> work order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]map[string]WorkOrder),
	}
}

// Create stores a work order.
func (r *MemoryRepo) Create(ctx context.Context, wo WorkOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data[wo.TenantID] == nil {
		r.data[wo.TenantID] = make(map[string]WorkOrder)
	}
	r.data[wo.TenantID][wo.ID] = wo
	return nil
}

// GetByID returns a work order by ID scoped to a tenant.
func (r *MemoryRepo) GetByID(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return WorkOrder{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	wo, ok := r.data[tenantID][id]
	if !ok {
		return WorkOrder{}, ErrNotFound
	}
	return wo, nil
}

// ListByTenant returns work orders for a tenant, newest first.
func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.Lock()
	orders := make([]WorkOrder, 0, len(r.data[tenantID]))
	for _, wo := range r.data[tenantID] {
		orders = append(orders, wo)
	}
	r.mu.Unlock()

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	if offset >= len(orders) {
		return []WorkOrder{}, nil
	}
	end := len(orders)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return orders[offset:end], nil
}

// CountByStatus tallies the tenant's work orders per status.
func (r *MemoryRepo) CountByStatus(ctx context.Context, tenantID string) (StatusCounts, error) {
	if err := ctx.Err(); err != nil {
		return StatusCounts{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts StatusCounts
	for _, wo := range r.data[tenantID] {
		switch wo.Status {
		case StatusPending:
			counts.Pending++
		case StatusProcessing:
			counts.Processing++
		case StatusCompleted:
			counts.Completed++
		case StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

// BeginExecution atomically claims a pending work order. The mutex makes the
// check-and-set atomic, matching the conditional UPDATE of the Postgres repo.
func (r *MemoryRepo) BeginExecution(ctx context.Context, tenantID, id string) (WorkOrder, error) {
	if err := ctx.Err(); err != nil {
		return WorkOrder{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	wo, ok := r.data[tenantID][id]
	if !ok {
		return WorkOrder{}, ErrNotFound
	}
	if wo.Status != StatusPending {
		return WorkOrder{}, ErrInvalidState
	}
	wo.Status = StatusProcessing
	wo.UpdatedAt = time.Now().UTC()
	r.data[tenantID][id] = wo
	return wo, nil
}

// Update overwrites the stored work order.
func (r *MemoryRepo) Update(ctx context.Context, wo WorkOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[wo.TenantID][wo.ID]; !ok {
		return ErrNotFound
	}
	wo.UpdatedAt = time.Now().UTC()
	r.data[wo.TenantID][wo.ID] = wo
	return nil
}
