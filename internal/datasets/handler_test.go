package datasets_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"treasury-backend/internal/bootstrap"
	"treasury-backend/internal/shared/config"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		ArtifactsPrefix: "artifacts",
		MinCashBalance:  500000,
		ForecastWeeks:   13,
	}
	app, err := bootstrap.Build(cfg, bootstrap.BuildOptions{DisableQueue: true})
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app.Router
}

func multipartUpload(t *testing.T, fileName, content, templateType string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("templateType", templateType); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

const bankStatementCSV = `Date,Description,Debit,Credit,Balance
2025-03-28,Customer remittance,,245678.90,1120678.40
2025-03-31,Sweep to operating,125000.50,,995677.90
`

func TestDatasetUploadAndGet(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, "bank.csv", bankStatementCSV, "bank_statement")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		DatasetID    string `json:"datasetId"`
		TemplateType string `json:"templateType"`
		RowCount     int    `json:"rowCount"`
		Version      int    `json:"version"`
		DataHash     string `json:"dataHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.DatasetID == "" {
		t.Fatal("expected datasetId")
	}
	if created.TemplateType != "bank_statement" || created.RowCount != 2 || created.Version != 1 {
		t.Fatalf("unexpected dataset: %+v", created)
	}
	if len(created.DataHash) != 64 {
		t.Fatalf("expected sha-256 hash, got %q", created.DataHash)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+created.DatasetID, nil)
	reqGet.Header.Set("X-Tenant-Id", "tenant-a")
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", respGet.Code)
	}

	reqList := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	reqList.Header.Set("X-Tenant-Id", "tenant-a")
	respList := httptest.NewRecorder()
	router.ServeHTTP(respList, reqList)
	if respList.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", respList.Code)
	}
	var listed []json.RawMessage
	if err := json.NewDecoder(respList.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(listed))
	}
}

func TestDatasetUploadMissingColumnReturnsDetails(t *testing.T) {
	router := newTestRouter(t)

	// No Balance column.
	csv := "Date,Description,Debit,Credit\n2025-03-28,Wire,100.00,\n"
	body, contentType := multipartUpload(t, "bank.csv", csv, "bank_statement")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				MissingColumns []string `json:"missingColumns"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %q", envelope.Error.Code)
	}
	if len(envelope.Error.Details.MissingColumns) != 1 || envelope.Error.Details.MissingColumns[0] != "Balance" {
		t.Fatalf("expected missing Balance column, got %v", envelope.Error.Details.MissingColumns)
	}
}

func TestDatasetUploadUnknownTemplateType(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, "bank.csv", bankStatementCSV, "ledger")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestDatasetRoutesRequireTenant(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestDatasetGetIsTenantScoped(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartUpload(t, "bank.csv", bankStatementCSV, "bank_statement")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		DatasetID string `json:"datasetId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+created.DatasetID, nil)
	reqGet.Header.Set("X-Tenant-Id", "tenant-b")
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign tenant, got %d", respGet.Code)
	}
}
