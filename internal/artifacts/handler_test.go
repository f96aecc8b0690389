package artifacts_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/shared/server/middleware"
	"treasury-backend/internal/shared/storage/object/local"
)

func newDownloadRouter(t *testing.T) (*gin.Engine, *artifacts.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &artifacts.Store{
		Objects: local.New(t.TempDir()),
		Repo:    artifacts.NewMemoryRepo(),
		Prefix:  "artifacts",
	}

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.TenantAuth())
	artifacts.NewHandler(store).RegisterRoutes(api)
	return router, store
}

func seedArtifact(t *testing.T, store *artifacts.Store, tenantID string) artifacts.Artifact {
	t.Helper()
	a, err := store.Put(context.Background(), artifacts.PutInput{
		WorkOrderID:  "wo-1",
		TenantID:     tenantID,
		ArtifactType: "excel",
		BaseName:     "Cash_Ladder",
		Extension:    "xlsx",
		MimeType:     artifacts.MimeXLSX,
		Bytes:        []byte("workbook bytes"),
	})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
	return a
}

func TestDownloadArtifact(t *testing.T) {
	router, store := newDownloadRouter(t)
	a := seedArtifact(t, store, "tenant-a")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/"+a.ID+"/download", nil)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != artifacts.MimeXLSX {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, a.FileName) {
		t.Fatalf("content disposition %q should name %s", cd, a.FileName)
	}
	if got := resp.Header().Get("X-Checksum-Sha256"); got != a.ChecksumSHA256 {
		t.Fatalf("checksum header = %q, want %q", got, a.ChecksumSHA256)
	}
	if resp.Body.String() != "workbook bytes" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestDownloadArtifactWrongTenant(t *testing.T) {
	router, store := newDownloadRouter(t)
	a := seedArtifact(t, store, "tenant-a")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/"+a.ID+"/download", nil)
	req.Header.Set("X-Tenant-Id", "tenant-b")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestDownloadArtifactMissingTenantHeader(t *testing.T) {
	router, store := newDownloadRouter(t)
	a := seedArtifact(t, store, "tenant-a")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/"+a.ID+"/download", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestDownloadArtifactCorrupted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	store := &artifacts.Store{Objects: local.New(dir), Repo: artifacts.NewMemoryRepo(), Prefix: "artifacts"}
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.TenantAuth())
	artifacts.NewHandler(store).RegisterRoutes(api)

	a := seedArtifact(t, store, "tenant-a")
	if err := os.WriteFile(filepath.Join(dir, a.StorageKey), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper with stored file: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/"+a.ID+"/download", nil)
	req.Header.Set("X-Tenant-Id", "tenant-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "integrity") {
		t.Fatalf("expected integrity error body, got %s", resp.Body.String())
	}
}
