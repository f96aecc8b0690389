package datasets

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]Dataset // tenantId -> datasets
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]Dataset),
	}
}

// Create stores a dataset for a tenant.
func (r *MemoryRepo) Create(ctx context.Context, ds Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[ds.TenantID] = append(r.data[ds.TenantID], ds)
	return nil
}

// GetByID returns a dataset by ID for a tenant.
func (r *MemoryRepo) GetByID(ctx context.Context, tenantID, id string) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ds := range r.data[tenantID] {
		if ds.ID == id {
			return ds, nil
		}
	}
	return Dataset{}, ErrNotFound
}

// ListByTenant returns datasets for a tenant, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	tenantSets := r.data[tenantID]
	r.mu.RUnlock()

	if len(tenantSets) == 0 || offset >= len(tenantSets) {
		return []Dataset{}, nil
	}

	sets := make([]Dataset, len(tenantSets))
	copy(sets, tenantSets)
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].CreatedAt.After(sets[j].CreatedAt)
	})

	end := len(sets)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sets[offset:end], nil
}

// NextVersion returns one past the highest stored version for the template type.
func (r *MemoryRepo) NextVersion(ctx context.Context, tenantID string, templateType TemplateType) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, ds := range r.data[tenantID] {
		if ds.TemplateType == templateType && ds.Version > max {
			max = ds.Version
		}
	}
	return max + 1, nil
}
