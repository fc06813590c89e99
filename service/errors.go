package service

import (
	"encoding/json"
	"fmt"
)

// BackendError means the backend was reachable but answered non-2xx. The
// status code and raw JSON body are preserved so handlers can forward the
// authoritative reason to the client verbatim.
type BackendError struct {
	StatusCode int
	Body       []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Detail extracts the backend's human-readable error message, falling back
// to the raw body if it does not match the {detail|error} shape.
func (e *BackendError) Detail() string {
	var payload struct {
		Detail string `json:"detail"`
		Err    string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Err != "" {
			return payload.Err
		}
	}
	return string(e.Body)
}

// TransportError means the backend could not be reached or its response
// could not be read. Its cause is logged server-side only and never exposed
// to the client.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError means the backend answered 2xx but the body did not match the
// expected response schema. It is handled like a transport failure.
type SchemaError struct {
	Endpoint string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("backend %s response failed schema validation: %v", e.Endpoint, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }
