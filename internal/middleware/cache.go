package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header. A non-positive age marks the
// response as uncacheable, which every API response carrying live exam
// state needs.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	value := "no-store"
	if maxAgeSeconds > 0 {
		value = fmt.Sprintf("public, max-age=%d", maxAgeSeconds)
	}
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
