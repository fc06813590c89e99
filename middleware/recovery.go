package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"pdfchat/pkg/logger"
)

// Recovery turns a handler panic into a 500 answered in the gateway's usual
// error shape. The panic value and stack stay in the server log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"panic", r,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Something went wrong processing your request. Please try again.",
				})
			}
		}()

		c.Next()
	}
}
