package artifacts

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"treasury-backend/internal/shared/metrics"
	"treasury-backend/internal/shared/storage/object"
	"treasury-backend/internal/shared/telemetry"
	"treasury-backend/internal/shared/util"
)

// Store persists artifact bytes with a recorded SHA-256 checksum and refuses
// to serve bytes that no longer match it.
type Store struct {
	Objects object.ObjectStore
	Repo    Repo
	Prefix  string
}

// PutInput describes one artifact to persist.
type PutInput struct {
	WorkOrderID      string
	TenantID         string
	ArtifactType     string
	BaseName         string
	Extension        string
	MimeType         string
	Bytes            []byte
	Metadata         map[string]string
	GeneratedByAgent string
}

// Put writes the artifact bytes to object storage under a collision-proof
// name and records the artifact with its checksum. The checksum is computed
// before the write so the record always describes the bytes as produced.
func (s *Store) Put(ctx context.Context, in PutInput) (Artifact, error) {
	if len(in.Bytes) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no content", in.BaseName)
	}

	fileName := FileName(in.BaseName, in.Extension)
	storageKey := path.Join(s.Prefix, util.HashTenantKey(in.TenantID), fileName)

	checksum := util.ChecksumSHA256(in.Bytes)
	size, err := s.Objects.SaveWithKey(ctx, storageKey, in.MimeType, bytes.NewReader(in.Bytes))
	if err != nil {
		return Artifact{}, fmt.Errorf("store artifact %s: %w", fileName, err)
	}

	a := Artifact{
		ID:               uuid.NewString(),
		WorkOrderID:      in.WorkOrderID,
		TenantID:         in.TenantID,
		ArtifactType:     in.ArtifactType,
		FileName:         fileName,
		StorageKey:       storageKey,
		ChecksumSHA256:   checksum,
		SizeBytes:        size,
		MimeType:         in.MimeType,
		Metadata:         in.Metadata,
		GeneratedByAgent: in.GeneratedByAgent,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		return Artifact{}, err
	}

	metrics.IncArtifactWritten()
	telemetry.Info("artifact stored", map[string]any{
		"artifact_id":   a.ID,
		"work_order_id": a.WorkOrderID,
		"artifact_type": a.ArtifactType,
		"size_bytes":    a.SizeBytes,
		"checksum":      a.ChecksumSHA256,
	})
	return a, nil
}

// Get returns the artifact record and its bytes after re-verifying the
// checksum. A mismatch returns ErrIntegrity and never partial content.
func (s *Store) Get(ctx context.Context, tenantID, id string) (Artifact, []byte, error) {
	a, err := s.Repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return Artifact{}, nil, err
	}

	rc, err := s.Objects.Open(ctx, a.StorageKey)
	if err != nil {
		return Artifact{}, nil, fmt.Errorf("open artifact %s: %w", a.ID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Artifact{}, nil, err
	}

	if got := util.ChecksumSHA256(data); got != a.ChecksumSHA256 {
		metrics.IncIntegrityFailure()
		telemetry.Error("artifact integrity failure", map[string]any{
			"artifact_id": a.ID,
			"expected":    a.ChecksumSHA256,
			"actual":      got,
		})
		return Artifact{}, nil, fmt.Errorf("artifact %s: %w", a.ID, ErrIntegrity)
	}
	return a, data, nil
}

// List returns artifact records for a work order.
func (s *Store) List(ctx context.Context, tenantID, workOrderID string) ([]Artifact, error) {
	return s.Repo.ListByWorkOrder(ctx, tenantID, workOrderID)
}

// FileName builds "<base>_<8 hex chars>.<ext>", e.g. Cash_Ladder_3fa85f64.xlsx.
func FileName(base, ext string) string {
	u := uuid.New()
	suffix := hex.EncodeToString(u[:4])
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s_%s.%s", base, suffix, ext)
}
