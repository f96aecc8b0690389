package datasets

import "time"

// DatasetResponse is the wire shape of a dataset.
type DatasetResponse struct {
	DatasetID      string    `json:"datasetId"`
	TemplateType   string    `json:"templateType"`
	SourceFileName string    `json:"sourceFileName"`
	DataHash       string    `json:"dataHash"`
	RowCount       int       `json:"rowCount"`
	ColumnCount    int       `json:"columnCount"`
	Version        int       `json:"version"`
	UploadedAt     time.Time `json:"uploadedAt"`
}

func toResponse(ds Dataset) DatasetResponse {
	return DatasetResponse{
		DatasetID:      ds.ID,
		TemplateType:   string(ds.TemplateType),
		SourceFileName: ds.SourceFileName,
		DataHash:       ds.DataHash,
		RowCount:       ds.RowCount,
		ColumnCount:    ds.ColumnCount,
		Version:        ds.Version,
		UploadedAt:     ds.UploadedAt,
	}
}
