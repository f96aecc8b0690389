package datasets

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const datasetColumns = `id, tenant_id, template_type, source_file_name, storage_key, rows_key, data_hash, row_count, column_count, version, uploaded_at, created_at`

// Create inserts a new dataset row.
func (r *PGRepo) Create(ctx context.Context, ds Dataset) error {
	const query = `
INSERT INTO datasets (
    id,
    tenant_id,
    template_type,
    source_file_name,
    storage_key,
    rows_key,
    data_hash,
    row_count,
    column_count,
    version,
    uploaded_at,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		ds.ID,
		ds.TenantID,
		string(ds.TemplateType),
		ds.SourceFileName,
		ds.StorageKey,
		ds.RowsKey,
		ds.DataHash,
		ds.RowCount,
		ds.ColumnCount,
		ds.Version,
		ds.UploadedAt,
		ds.CreatedAt,
	)
	return err
}

// GetByID returns a dataset by ID scoped to a tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, id string) (Dataset, error) {
	const query = `
SELECT ` + datasetColumns + `
FROM datasets
WHERE tenant_id = $1 AND id = $2`

	ds, err := scanDataset(r.DB.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, ErrNotFound
	}
	return ds, err
}

// ListByTenant returns datasets for a tenant, newest first.
func (r *PGRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]Dataset, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + datasetColumns + `
FROM datasets
WHERE tenant_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// NextVersion returns max(version)+1 for the tenant's template type.
func (r *PGRepo) NextVersion(ctx context.Context, tenantID string, templateType TemplateType) (int, error) {
	const query = `
SELECT COALESCE(MAX(version), 0) + 1
FROM datasets
WHERE tenant_id = $1 AND template_type = $2`

	var next int
	err := r.DB.QueryRowContext(ctx, query, tenantID, string(templateType)).Scan(&next)
	return next, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (Dataset, error) {
	var ds Dataset
	var templateType string
	err := row.Scan(
		&ds.ID,
		&ds.TenantID,
		&templateType,
		&ds.SourceFileName,
		&ds.StorageKey,
		&ds.RowsKey,
		&ds.DataHash,
		&ds.RowCount,
		&ds.ColumnCount,
		&ds.Version,
		&ds.UploadedAt,
		&ds.CreatedAt,
	)
	ds.TemplateType = TemplateType(templateType)
	return ds, err
}
