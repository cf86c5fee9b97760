package middleware

import (
	"github.com/agensuite/cobranza/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the acting tenant and user from request headers.
// Requests without a tenant header run under the platform default tenant,
// which the cron scheduler and internal tooling use.
func TenantMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		tenantID = types.DefaultTenantID
	}
	ctx = types.SetTenantID(ctx, tenantID)

	if userID := c.GetHeader(types.HeaderUserID); userID != "" {
		ctx = types.SetUserID(ctx, userID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
