package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"popdash/internal"
)

// LimitUploadSize caps request bodies on upload routes. Oversized bodies fail
// while the multipart form is parsed.
func LimitUploadSize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			internal.DefaultLogger.Warn("[LimitUploadSize] Rejected %d byte upload (limit %d)", c.Request.ContentLength, maxBytes)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "upload exceeds size limit",
				"code":  "INVALID_INPUT",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
