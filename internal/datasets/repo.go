package datasets

import "context"

// Repo defines persistence operations for datasets.
type Repo interface {
	Create(ctx context.Context, ds Dataset) error
	GetByID(ctx context.Context, tenantID, id string) (Dataset, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Dataset, error)
	// NextVersion returns the version number the next upload of this template
	// type should carry for the tenant, starting at 1.
	NextVersion(ctx context.Context, tenantID string, templateType TemplateType) (int, error)
}
