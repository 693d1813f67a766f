package media

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, map[string]string{"id": "abc123"})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	ct := w.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type = %q, want %q", ct, "application/json")
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatal("missing 'data' key in response")
	}
	if data["id"] != "abc123" {
		t.Errorf("data.id = %v, want %q", data["id"], "abc123")
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "file_too_large", "File exceeds limit")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var envelope map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	errObj, ok := envelope["error"].(map[string]interface{})
	if !ok {
		t.Fatal("missing or invalid 'error' key")
	}
	if errObj["code"] != "file_too_large" {
		t.Errorf("error.code = %v, want %q", errObj["code"], "file_too_large")
	}
}

func TestMaxUploadBytes_Default(t *testing.T) {
	svc := &Service{maxUploadMB: 0}
	if got := svc.MaxUploadBytes(); got != 100*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want %d", got, 100*1024*1024)
	}
}

func TestMaxUploadBytes_Custom(t *testing.T) {
	svc := &Service{maxUploadMB: 50}
	if got := svc.MaxUploadBytes(); got != 50*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want %d", got, 50*1024*1024)
	}
}
