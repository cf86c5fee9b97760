package middleware

import (
	"net/http"
	"strings"

	"github.com/agensuite/cobranza/internal/types"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets the operations dashboard call the API from a browser.
// The surface is read models plus job triggers, so only GET, POST and the
// preflight verb are allowed, and the tenancy headers must be listed
// explicitly for the preflight to pass.
func CORSMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
		"Content-Type",
		types.HeaderRequestID,
		types.HeaderTenantID,
		types.HeaderUserID,
	}, ", "))
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}
