package artifacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const artifactColumns = `id, work_order_id, tenant_id, artifact_type, file_name, storage_key, checksum_sha256, size_bytes, mime_type, artifact_metadata, generated_by_agent, created_at`

// Create inserts a new artifact row.
func (r *PGRepo) Create(ctx context.Context, a Artifact) error {
	const query = `
INSERT INTO artifacts (
    id,
    work_order_id,
    tenant_id,
    artifact_type,
    file_name,
    storage_key,
    checksum_sha256,
    size_bytes,
    mime_type,
    artifact_metadata,
    generated_by_agent,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode artifact metadata: %w", err)
	}

	var mimeType sql.NullString
	if a.MimeType != "" {
		mimeType = sql.NullString{String: a.MimeType, Valid: true}
	}
	var generatedBy sql.NullString
	if a.GeneratedByAgent != "" {
		generatedBy = sql.NullString{String: a.GeneratedByAgent, Valid: true}
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		a.ID,
		a.WorkOrderID,
		a.TenantID,
		a.ArtifactType,
		a.FileName,
		a.StorageKey,
		a.ChecksumSHA256,
		a.SizeBytes,
		mimeType,
		metadataJSON,
		generatedBy,
		a.CreatedAt,
	)
	return err
}

// GetByID returns an artifact by ID scoped to a tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, id string) (Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE tenant_id = $1 AND id = $2`

	a, err := scanArtifact(r.DB.QueryRowContext(ctx, query, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrNotFound
	}
	return a, err
}

// ListByWorkOrder returns the artifacts attached to a work order, newest first.
func (r *PGRepo) ListByWorkOrder(ctx context.Context, tenantID, workOrderID string) ([]Artifact, error) {
	const query = `
SELECT ` + artifactColumns + `
FROM artifacts
WHERE tenant_id = $1 AND work_order_id = $2
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, tenantID, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (Artifact, error) {
	var a Artifact
	var mimeType sql.NullString
	var generatedBy sql.NullString
	var metadataJSON []byte

	err := row.Scan(
		&a.ID,
		&a.WorkOrderID,
		&a.TenantID,
		&a.ArtifactType,
		&a.FileName,
		&a.StorageKey,
		&a.ChecksumSHA256,
		&a.SizeBytes,
		&mimeType,
		&metadataJSON,
		&generatedBy,
		&a.CreatedAt,
	)
	if err != nil {
		return Artifact{}, err
	}

	a.MimeType = mimeType.String
	a.GeneratedByAgent = generatedBy.String
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
			return Artifact{}, fmt.Errorf("decode artifact metadata: %w", err)
		}
	}
	return a, nil
}
