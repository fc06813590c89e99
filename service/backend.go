package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"pdfchat/config"
	"pdfchat/model"
	"pdfchat/pkg/telemetry"
)

// BackendClient talks to the external document-indexing/QA service. All
// responses are parsed against explicit schemas; a 2xx body that does not
// match is a SchemaError, never a silently propagated unknown shape.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	inst       *telemetry.Instruments
}

// UploadResult is the backend's answer to a successful document upload.
type UploadResult struct {
	Message        string  `json:"message"`
	Filename       string  `json:"filename"`
	ChunksCreated  int     `json:"chunks_created"`
	FileSize       int64   `json:"file_size"`
	ProcessingTime float64 `json:"processing_time"`
}

// QueryResult is the backend's answer to a document query. The backend's
// "response" field is the canonical answer text.
type QueryResult struct {
	Response       string   `json:"response"`
	Sources        []string `json:"sources"`
	ChunksUsed     int      `json:"chunks_used"`
	ProcessingTime float64  `json:"processing_time"`
}

func NewBackendClient(cfg *config.BackendConfig, inst *telemetry.Instruments) *BackendClient {
	if inst == nil {
		inst = telemetry.Noop()
	}
	return &BackendClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		inst: inst,
	}
}

// UploadDocument relays a PDF to the backend's /upload endpoint as a
// multipart payload carrying the raw bytes under field "file".
func (c *BackendClient) UploadDocument(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	ctx, span := c.inst.Tracer.Start(ctx, "backend.upload")
	defer span.End()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &SchemaError{Endpoint: "/upload", Err: err}
	}
	if result.ChunksCreated <= 0 {
		return nil, &SchemaError{Endpoint: "/upload", Err: fmt.Errorf("missing or invalid chunks_created")}
	}

	return &result, nil
}

// QueryDocument forwards a trimmed question to the backend's /query
// endpoint. The backend expects the field name "query".
func (c *BackendClient) QueryDocument(ctx context.Context, question string) (*QueryResult, error) {
	ctx, span := c.inst.Tracer.Start(ctx, "backend.query")
	defer span.End()

	reqBody, err := json.Marshal(map[string]string{"query": question})
	if err != nil {
		return nil, &TransportError{Op: "query", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(reqBody))
	if err != nil {
		return nil, &TransportError{Op: "query", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var result QueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &SchemaError{Endpoint: "/query", Err: err}
	}
	if result.Response == "" {
		return nil, &SchemaError{Endpoint: "/query", Err: fmt.Errorf("missing response field")}
	}

	return &result, nil
}

// DocumentStatus fetches the backend's /document-status snapshot.
func (c *BackendClient) DocumentStatus(ctx context.Context) (*model.DocumentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/document-status", nil)
	if err != nil {
		return nil, &TransportError{Op: "document-status", Err: err}
	}

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var status model.DocumentStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &SchemaError{Endpoint: "/document-status", Err: err}
	}

	return &status, nil
}

// do issues the request and returns the body on 2xx, a BackendError on any
// other status, or a TransportError when the round trip itself fails.
func (c *BackendClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	c.inst.BackendLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: req.URL.Path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}
