package workorders_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

const bankStatementCSV = `Date,Description,Debit,Credit,Balance
2025-03-31,Customer remittance,,245678.90,1245678.90
`

func uploadBankStatement(t *testing.T, router *gin.Engine, tenantID string) string {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "bank.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(bankStatementCSV)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.WriteField("templateType", "bank_statement"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Tenant-Id", tenantID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload dataset: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		DatasetID string `json:"datasetId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	return created.DatasetID
}

func createWorkOrder(t *testing.T, router *gin.Engine, tenantID, objective string, datasetIDs []string) string {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"objective": objective, "datasetIds": datasetIDs})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-orders", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", tenantID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create work order: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		WorkOrderID string `json:"workOrderId"`
		Status      string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode work order: %v", err)
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	return created.WorkOrderID
}

func getWorkOrder(t *testing.T, router *gin.Engine, tenantID, id string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/work-orders/"+id, nil)
	req.Header.Set("X-Tenant-Id", tenantID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("get work order: expected 200, got %d", resp.Code)
	}
	var wo map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&wo); err != nil {
		t.Fatalf("decode work order: %v", err)
	}
	return wo
}

func waitForTerminalStatus(t *testing.T, router *gin.Engine, tenantID, id string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		wo := getWorkOrder(t, router, tenantID, id)
		status, _ := wo["status"].(string)
		if status == "completed" || status == "failed" {
			return wo
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("work order did not reach a terminal status in time")
	return nil
}

func TestWorkOrderLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	tenantID := "tenant-a"

	datasetID := uploadBankStatement(t, router, tenantID)
	orderID := createWorkOrder(t, router, tenantID, "13-week cash forecast", []string{datasetID})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-orders/"+orderID+"/execute", nil)
	req.Header.Set("X-Tenant-Id", tenantID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("execute: expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	done := waitForTerminalStatus(t, router, tenantID, orderID)
	if status := done["status"]; status != "completed" {
		t.Fatalf("expected completed, got %v (%v)", status, done["errorMessage"])
	}
	if progress := done["progressPercentage"]; progress != float64(100) {
		t.Fatalf("expected progress 100, got %v", progress)
	}

	// A second execute must refuse the claim.
	reqAgain := httptest.NewRequest(http.MethodPost, "/api/v1/work-orders/"+orderID+"/execute", nil)
	reqAgain.Header.Set("X-Tenant-Id", tenantID)
	respAgain := httptest.NewRecorder()
	router.ServeHTTP(respAgain, reqAgain)
	if respAgain.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-execute, got %d", respAgain.Code)
	}

	// The artifact listing should carry the rendered workbook.
	reqArtifacts := httptest.NewRequest(http.MethodGet, "/api/v1/work-orders/"+orderID+"/artifacts", nil)
	reqArtifacts.Header.Set("X-Tenant-Id", tenantID)
	respArtifacts := httptest.NewRecorder()
	router.ServeHTTP(respArtifacts, reqArtifacts)
	if respArtifacts.Code != http.StatusOK {
		t.Fatalf("list artifacts: expected 200, got %d", respArtifacts.Code)
	}
	var arts []map[string]any
	if err := json.NewDecoder(respArtifacts.Body).Decode(&arts); err != nil {
		t.Fatalf("decode artifacts: %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(arts))
	}
}

func TestWorkOrderCreateRejectsEmptyObjective(t *testing.T) {
	router := newTestRouter(t)

	payload := []byte(`{"objective":"  ","datasetIds":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-orders", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestWorkOrderGetUnknownID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/work-orders/does-not-exist", nil)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestWorkOrderStatsOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	tenantID := "tenant-a"

	createWorkOrder(t, router, tenantID, "first", nil)
	createWorkOrder(t, router, tenantID, "second", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/work-orders/stats", nil)
	req.Header.Set("X-Tenant-Id", tenantID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var counts struct {
		Pending int `json:"pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		t.Fatalf("decode counts: %v", err)
	}
	if counts.Pending != 2 {
		t.Fatalf("expected 2 pending, got %d", counts.Pending)
	}
}
