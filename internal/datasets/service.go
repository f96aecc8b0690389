package datasets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"treasury-backend/internal/shared/metrics"
	"treasury-backend/internal/shared/storage/object"
	"treasury-backend/internal/shared/telemetry"
	"treasury-backend/internal/shared/util"
)

// Service contains business logic for datasets.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload normalizes an uploaded file against the template schema, persists
// both the raw file and the normalized JSON snapshot, and records a new
// immutable dataset version. Validation failures surface as *ValidationError
// and leave nothing behind in storage.
func (s *Service) Upload(ctx context.Context, tenantID, fileName string, data []byte, templateType TemplateType) (Dataset, error) {
	if fileName == "" {
		return Dataset{}, ErrInvalidInput
	}

	records, err := Normalize(data, fileName, templateType)
	if err != nil {
		return Dataset{}, err
	}

	snapshot, err := json.Marshal(records)
	if err != nil {
		return Dataset{}, fmt.Errorf("encode normalized rows: %w", err)
	}

	storageKey, size, _, err := s.Store.Save(ctx, tenantID, fileName, bytes.NewReader(data))
	if err != nil {
		return Dataset{}, err
	}

	rowsKey := storageKey + ".normalized.json"
	if _, err := s.Store.SaveWithKey(ctx, rowsKey, "application/json", bytes.NewReader(snapshot)); err != nil {
		return Dataset{}, err
	}

	version, err := s.Repo.NextVersion(ctx, tenantID, templateType)
	if err != nil {
		return Dataset{}, err
	}

	now := time.Now().UTC()
	ds := Dataset{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		TemplateType:   templateType,
		SourceFileName: fileName,
		StorageKey:     storageKey,
		RowsKey:        rowsKey,
		DataHash:       util.ChecksumSHA256(snapshot),
		RowCount:       records.Len(),
		ColumnCount:    len(templateType.Columns()),
		Version:        version,
		UploadedAt:     now,
		CreatedAt:      now,
	}

	if err := s.Repo.Create(ctx, ds); err != nil {
		return Dataset{}, err
	}

	metrics.IncDatasetCreated()
	telemetry.Info("dataset created", map[string]any{
		"dataset_id":    ds.ID,
		"template_type": string(ds.TemplateType),
		"rows":          ds.RowCount,
		"version":       ds.Version,
		"size_bytes":    size,
	})

	return ds, nil
}

// Get returns a dataset by ID for a tenant.
func (s *Service) Get(ctx context.Context, tenantID, id string) (Dataset, error) {
	if id == "" {
		return Dataset{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, tenantID, id)
}

// List returns datasets for a tenant, newest first.
func (s *Service) List(ctx context.Context, tenantID string, limit, offset int) ([]Dataset, error) {
	return s.Repo.ListByTenant(ctx, tenantID, limit, offset)
}

// LoadRecords reads back the normalized JSON snapshot of a dataset.
func (s *Service) LoadRecords(ctx context.Context, ds Dataset) (Records, error) {
	var records Records

	rc, err := s.Store.Open(ctx, ds.RowsKey)
	if err != nil {
		return records, fmt.Errorf("open normalized rows for dataset %s: %w", ds.ID, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return records, err
	}
	if got := util.ChecksumSHA256(raw); got != ds.DataHash {
		return records, fmt.Errorf("dataset %s: stored rows checksum %s does not match recorded %s", ds.ID, got, ds.DataHash)
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return records, fmt.Errorf("decode normalized rows for dataset %s: %w", ds.ID, err)
	}
	return records, nil
}
