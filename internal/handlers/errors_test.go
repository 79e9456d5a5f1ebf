package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var body errorBody
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if len(body.Errors) != 1 || body.Errors[0].Message != "Teapot" {
		t.Fatalf("expected one 'Teapot' error, got %+v", body.Errors)
	}
	if body.Errors[0].Code != "INTERNAL" {
		t.Fatalf("expected INTERNAL code, got %q", body.Errors[0].Code)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := log.Default()
	originalOutput := logger.Writer()
	logger.SetOutput(&buf)
	defer logger.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	err := errors.New("boom")

	respondWithError(recorder, 500, "Internal server error", "", err)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Internal server error") {
		t.Fatalf("expected log to include user message, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Fatalf("expected log to include error, got %q", logOutput)
	}
	if strings.Contains(recorder.Body.String(), "boom") {
		t.Fatalf("error details leaked into response: %q", recorder.Body.String())
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{400, "VALIDATION_ERROR"},
		{413, "VALIDATION_ERROR"},
		{415, "VALIDATION_ERROR"},
		{429, "RATE_LIMITED"},
		{500, "INTERNAL"},
	}
	for _, tt := range tests {
		if got := errorCode(tt.status); got != tt.want {
			t.Errorf("errorCode(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
