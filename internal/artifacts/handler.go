package artifacts

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury-backend/internal/shared/server/middleware"
	"treasury-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the artifact store.
type Handler struct {
	Store *Store
}

// NewHandler constructs a Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches artifact routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/artifacts/:id/download", h.download)
}

func (h *Handler) download(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)

	a, data, err := h.Store.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
		case errors.Is(err, ErrIntegrity):
			respond.Error(c, http.StatusConflict, "integrity_error", "artifact failed integrity verification", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch artifact", nil)
		}
		return
	}

	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	c.Header("X-Checksum-Sha256", a.ChecksumSHA256)
	c.Data(http.StatusOK, mimeType, data)
}
