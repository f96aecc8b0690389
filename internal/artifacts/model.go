package artifacts

import "time"

// MimeXLSX is the content type of rendered workbooks.
const MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Artifact is one stored deliverable produced by a work order execution.
type Artifact struct {
	ID               string            `json:"id"`
	WorkOrderID      string            `json:"workOrderId"`
	TenantID         string            `json:"tenantId"`
	ArtifactType     string            `json:"artifactType"`
	FileName         string            `json:"fileName"`
	StorageKey       string            `json:"storageKey"`
	ChecksumSHA256   string            `json:"checksumSha256"`
	SizeBytes        int64             `json:"sizeBytes"`
	MimeType         string            `json:"mimeType"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	GeneratedByAgent string            `json:"generatedByAgent,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
}
