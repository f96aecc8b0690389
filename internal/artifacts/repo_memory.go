package artifacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Artifact // tenantId -> artifacts
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Artifact),
	}
}

// Create stores an artifact record.
func (r *MemoryRepo) Create(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[a.TenantID] = append(r.data[a.TenantID], a)
	return nil
}

// GetByID returns an artifact by ID scoped to a tenant.
func (r *MemoryRepo) GetByID(ctx context.Context, tenantID, id string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.data[tenantID] {
		if a.ID == id {
			return a, nil
		}
	}
	return Artifact{}, ErrNotFound
}

// ListByWorkOrder returns the artifacts attached to a work order, newest first.
func (r *MemoryRepo) ListByWorkOrder(ctx context.Context, tenantID, workOrderID string) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Artifact{}
	for _, a := range r.data[tenantID] {
		if a.WorkOrderID == workOrderID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
