package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"pdfchat/pkg/logger"
)

// RequestLogger writes one line per request after it settles. The logger is
// built from the request context, so the request id and, past the auth
// middleware, the session id are on every line.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if size := c.Writer.Size(); size > 0 {
			attrs = append(attrs, "bytes", size)
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}

		// Downstream middleware swaps c.Request, so resolve the context
		// after the chain ran to pick up the session id.
		log := logger.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("request settled", attrs...)
		case status >= 400:
			log.Warn("request settled", attrs...)
		default:
			log.Info("request settled", attrs...)
		}
	}
}
