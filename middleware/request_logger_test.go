package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"pdfchat/pkg/logger"
)

func TestRequestLoggerFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger())
	// Stand-in for the auth middleware: bind a session id to the request
	router.Use(func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, "sess-42")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.GET("/api/history", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"history": []string{}})
	})

	req := httptest.NewRequest("GET", "/api/history?verbose", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	logged := buf.String()
	if !strings.Contains(logged, "request settled") {
		t.Fatalf("Expected request line, got: %s", logged)
	}
	for _, field := range []string{
		"status=200",
		"method=GET",
		"path=/api/history",
		"query=verbose",
		"request_id=req-abc",
		"session_id=sess-42",
		"latency_ms=",
		"client_ip=",
	} {
		if !strings.Contains(logged, field) {
			t.Errorf("Expected %s on the request line, got: %s", field, logged)
		}
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success is info", http.StatusOK, "level=INFO"},
		{"client error is warn", http.StatusRequestEntityTooLarge, "level=WARN"},
		{"server error is error", http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

			router := gin.New()
			router.Use(RequestLogger())
			router.POST("/api/upload", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{})
			})

			req := httptest.NewRequest("POST", "/api/upload", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if !strings.Contains(buf.String(), tt.wantLevel) {
				t.Errorf("Expected %s for status %d, got: %s", tt.wantLevel, tt.status, buf.String())
			}
		})
	}
}
