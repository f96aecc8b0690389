package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/datasets"
	"treasury-backend/internal/shared/config"
	"treasury-backend/internal/shared/metrics"
	"treasury-backend/internal/shared/server/middleware"
	"treasury-backend/internal/shared/server/respond"
	"treasury-backend/internal/workorders"
)

// RouterDeps holds the handlers the router wires up.
type RouterDeps struct {
	Config            config.Config
	DatasetsHandler   *datasets.Handler
	WorkOrdersHandler *workorders.Handler
	ArtifactsHandler  *artifacts.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Health and metrics stay outside the tenant boundary; everything under
// /api/v1 requires the X-Tenant-Id header.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/api/v1/health", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.TenantAuth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"EXECUTE": {Rate: 1, Burst: 5},
			},
			DefaultGroup: "DEFAULT",
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/work-orders/:id/execute" {
					return "EXECUTE"
				}
				return ""
			},
		}),
	)

	if deps.DatasetsHandler != nil {
		deps.DatasetsHandler.RegisterRoutes(api)
	}
	if deps.WorkOrdersHandler != nil {
		deps.WorkOrdersHandler.RegisterRoutes(api)
	}
	if deps.ArtifactsHandler != nil {
		deps.ArtifactsHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
