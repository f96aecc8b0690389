package workorders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/shared/server/middleware"
	"treasury-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches work order routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/work-orders", h.create)
	rg.GET("/work-orders", h.list)
	rg.GET("/work-orders/stats", h.stats)
	rg.GET("/work-orders/:id", h.get)
	rg.POST("/work-orders/:id/execute", h.execute)
	rg.GET("/work-orders/:id/artifacts", h.listArtifacts)
}

func (h *Handler) create(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	wo, err := h.Svc.Create(c.Request.Context(), tenantID, req.Objective, req.DatasetIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create work order", nil)
		}
		return
	}

	respond.Created(c, toResponse(wo))
}

func (h *Handler) get(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)

	wo, err := h.Svc.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "work order not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch work order", nil)
		}
		return
	}

	respond.OK(c, toResponse(wo))
}

// execute claims the order and returns 202 immediately; clients poll the
// work order for progress.
func (h *Handler) execute(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	wo, err := h.Svc.ExecuteAsync(ctx, tenantID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "work order not found", nil)
		case errors.Is(err, ErrInvalidState):
			respond.Error(c, http.StatusConflict, "invalid_state", "work order is not pending", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start execution", nil)
		}
		return
	}

	respond.Accepted(c, toResponse(wo))
}

func (h *Handler) list(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 100 {
		limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := h.Svc.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list work orders", nil)
		return
	}

	resp := make([]listItemResponse, 0, len(orders))
	for _, wo := range orders {
		resp = append(resp, toListItem(wo))
	}
	respond.OK(c, resp)
}

func (h *Handler) stats(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)

	counts, err := h.Svc.Stats(c.Request.Context(), tenantID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute stats", nil)
		return
	}

	respond.OK(c, counts)
}

func (h *Handler) listArtifacts(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	workOrderID := c.Param("id")

	if _, err := h.Svc.Get(c.Request.Context(), tenantID, workOrderID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "work order not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch work order", nil)
		}
		return
	}

	list, err := h.Svc.Artifacts.List(c.Request.Context(), tenantID, workOrderID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list artifacts", nil)
		return
	}

	resp := make([]artifacts.Artifact, 0, len(list))
	resp = append(resp, list...)
	respond.OK(c, resp)
}
