package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PipelineAuthMiddleware guards the internal endpoints used by the bot
// relay and cron callers. Requests must carry the shared key in the
// X-API-Key header; an unset key disables the endpoints entirely.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortPipeline(c, http.StatusServiceUnavailable,
				"PIPELINE_NOT_CONFIGURED", "Internal endpoints are not configured")
			return
		}
		presented := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			abortPipeline(c, http.StatusUnauthorized,
				"INVALID_API_KEY", "Invalid or missing API key")
			return
		}
		c.Next()
	}
}

func abortPipeline(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}
