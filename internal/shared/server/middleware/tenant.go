package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"treasury-backend/internal/shared/server/respond"
)

const tenantIDKey = "tenantId"

// TenantAuth requires a tenant identity on every request and stores it in
// context. Token verification itself happens at the gateway; this layer only
// gates data access on the forwarded identity.
func TenantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		tenantID := strings.TrimSpace(c.GetHeader("X-Tenant-Id"))
		if tenantID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing tenant identity", nil)
			return
		}

		c.Set(tenantIDKey, tenantID)
		c.Next()
	}
}

// TenantIDFromContext fetches the tenant ID stored by TenantAuth.
func TenantIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(tenantIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
