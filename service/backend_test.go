package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdfchat/config"
)

func TestNewBackendClient(t *testing.T) {
	cfg := &config.BackendConfig{
		BaseURL:        "http://backend.test:8000",
		TimeoutSeconds: 30,
	}

	client := NewBackendClient(cfg, nil)
	if client == nil {
		t.Fatal("Expected non-nil client")
	}
	if client.baseURL != cfg.BaseURL {
		t.Error("Expected base URL to be set")
	}
	if client.httpClient == nil {
		t.Error("Expected httpClient to be set")
	}
}

func TestBackendClientUploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/upload" {
			t.Errorf("Expected /upload, got %s", r.URL.Path)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Expected multipart field 'file': %v", err)
		}
		defer file.Close()

		if header.Filename != "report.pdf" {
			t.Errorf("Expected filename report.pdf, got %s", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(UploadResult{
			Message:        "Successfully processed report.pdf",
			Filename:       "report.pdf",
			ChunksCreated:  12,
			FileSize:       2 * 1024 * 1024,
			ProcessingTime: 850,
		})
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	result, err := client.UploadDocument(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.ChunksCreated != 12 {
		t.Errorf("Expected 12 chunks, got %d", result.ChunksCreated)
	}
	if result.ProcessingTime != 850 {
		t.Errorf("Expected processing time 850, got %v", result.ProcessingTime)
	}
}

func TestBackendClientUploadBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "Could not extract text from PDF"}`))
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	_, err := client.UploadDocument(context.Background(), "scan.pdf", strings.NewReader("bytes"))
	if err == nil {
		t.Fatal("Expected error")
	}

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Expected BackendError, got %T", err)
	}
	if backendErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", backendErr.StatusCode)
	}
	if backendErr.Detail() != "Could not extract text from PDF" {
		t.Errorf("Unexpected detail: %s", backendErr.Detail())
	}
}

func TestBackendClientUploadSchemaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"unexpected": true}`))
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	_, err := client.UploadDocument(context.Background(), "report.pdf", strings.NewReader("bytes"))
	if err == nil {
		t.Fatal("Expected error")
	}

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %T", err)
	}
}

func TestBackendClientQueryDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("Expected /query, got %s", r.URL.Path)
		}

		var reqBody map[string]string
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		// The backend contract uses the field name "query"
		if reqBody["query"] != "What is the refund policy?" {
			t.Errorf("Expected query field, got %v", reqBody)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(QueryResult{
			Response:       "Refunds within 30 days.",
			Sources:        []string{"p.4"},
			ChunksUsed:     3,
			ProcessingTime: 120,
		})
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	result, err := client.QueryDocument(context.Background(), "What is the refund policy?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Response != "Refunds within 30 days." {
		t.Errorf("Unexpected response: %s", result.Response)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "p.4" {
		t.Errorf("Expected sources [p.4], got %v", result.Sources)
	}
}

func TestBackendClientQueryBackendErrorPassthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail": "index not ready"}`))
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	_, err := client.QueryDocument(context.Background(), "anything")
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Expected BackendError, got %T", err)
	}
	if backendErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", backendErr.StatusCode)
	}
	if string(backendErr.Body) != `{"detail": "index not ready"}` {
		t.Errorf("Expected body preserved verbatim, got %s", backendErr.Body)
	}
}

func TestBackendClientQueryMissingResponseField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer": "wrong field name"}`))
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	_, err := client.QueryDocument(context.Background(), "anything")
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError for drifted field names, got %T", err)
	}
}

func TestBackendClientTransportError(t *testing.T) {
	// Point at a closed server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 1}, nil)

	_, err := client.QueryDocument(context.Background(), "anything")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected TransportError, got %T", err)
	}
}

func TestBackendClientDocumentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/document-status" {
			t.Errorf("Expected /document-status, got %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"document_loaded": true,
			"current_document": "report.pdf",
			"chat_messages": 4,
			"ready_for_queries": true,
			"chunks": 12
		}`))
	}))
	defer server.Close()

	client := NewBackendClient(&config.BackendConfig{BaseURL: server.URL, TimeoutSeconds: 5}, nil)

	status, err := client.DocumentStatus(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !status.DocumentLoaded || !status.ReadyForQueries {
		t.Error("Expected document loaded and ready")
	}
	if status.CurrentDocument != "report.pdf" {
		t.Errorf("Expected report.pdf, got %s", status.CurrentDocument)
	}
	if status.Chunks != 12 {
		t.Errorf("Expected 12 chunks, got %d", status.Chunks)
	}
}
