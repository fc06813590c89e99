package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdfchat/config"
	"pdfchat/middleware"
	"pdfchat/model"
	"pdfchat/pkg/logger"
	"pdfchat/pkg/telemetry"
	"pdfchat/service"
)

type UploadHandler struct {
	backend  *service.BackendClient
	maxBytes int64
	inst     *telemetry.Instruments

	// validatePDF rejects files that do not parse as a PDF
	validatePDF func(path string) error
}

func NewUploadHandler(backend *service.BackendClient, cfg *config.Config, inst *telemetry.Instruments) *UploadHandler {
	if inst == nil {
		inst = telemetry.Noop()
	}
	return &UploadHandler{
		backend:     backend,
		maxBytes:    cfg.MaxUploadBytes(),
		inst:        inst,
		validatePDF: pdfPageCheck,
	}
}

// pdfPageCheck parses the spooled file and requires at least one page.
func pdfPageCheck(path string) error {
	pages, err := api.PageCountFile(path)
	if err != nil {
		return err
	}
	if pages < 1 {
		return fmt.Errorf("document has no pages")
	}
	return nil
}

// Upload validates an incoming PDF and relays it to the backend's /upload
// endpoint. The file is spooled to a temp file that never outlives this
// request: it is removed on every exit path.
func (h *UploadHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.GetSession(c)

	if !session.BeginUpload() {
		c.JSON(http.StatusConflict, gin.H{"error": "An upload is already in progress for this session"})
		return
	}
	defer session.EndUpload()

	// Get file from form
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Validate file type
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	// Validate file size before touching disk
	if header.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File size (%d bytes) exceeds maximum allowed size (%d bytes)", header.Size, h.maxBytes),
		})
		return
	}

	// Spool to a transient file so the PDF can be inspected and re-read
	tmp, err := os.CreateTemp("", "pdfchat-upload-*.pdf")
	if err != nil {
		logger.Error(ctx, "failed to create temp file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload"})
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Error(ctx, "failed to spool upload", "error", err, "filename", header.Filename)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload"})
		return
	}
	if written == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is empty"})
		return
	}

	// Reject files that do not parse as a PDF before the backend sees them
	if err := h.validatePDF(tmpPath); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or corrupted PDF file"})
		return
	}

	spooled, err := os.Open(tmpPath)
	if err != nil {
		logger.Error(ctx, "failed to reopen spooled upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload"})
		return
	}
	defer spooled.Close()

	logger.Info(ctx, "relaying upload to backend", "filename", header.Filename, "size", written)

	start := time.Now()
	result, err := h.backend.UploadDocument(ctx, header.Filename, spooled)
	if err != nil {
		relayError(c, err, "upload")
		return
	}

	h.inst.Uploads.Add(ctx, 1)

	session.OnUploadSucceeded(&model.UploadedDocument{
		Filename:       result.Filename,
		Size:           result.FileSize,
		Chunks:         result.ChunksCreated,
		ProcessingTime: result.ProcessingTime,
		Ready:          true,
		UploadedAt:     time.Now(),
	})

	logger.Info(ctx, "upload processed",
		"filename", result.Filename,
		"chunks_created", result.ChunksCreated,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	c.JSON(http.StatusOK, gin.H{
		"message":         result.Message,
		"filename":        result.Filename,
		"chunks_created":  result.ChunksCreated,
		"file_size":       result.FileSize,
		"processing_time": result.ProcessingTime,
	})
}

// relayError maps a backend call failure onto the client response. A
// BackendError is forwarded verbatim so the client sees the authoritative
// reason; anything else becomes a generic 500 with the cause logged only.
func relayError(c *gin.Context, err error, op string) {
	var backendErr *service.BackendError
	if errors.As(err, &backendErr) {
		c.Data(backendErr.StatusCode, "application/json", backendErr.Body)
		return
	}

	logger.Error(c.Request.Context(), "backend "+op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process " + op})
}
