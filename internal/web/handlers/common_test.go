package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]any{"message": "hello", "count": 42})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["message"] != "hello" {
		t.Errorf("expected message 'hello', got '%v'", result["message"])
	}
	if result["count"] != float64(42) { // JSON numbers are float64
		t.Errorf("expected count 42, got %v", result["count"])
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
	}{
		{"BadRequest", http.StatusBadRequest, "student_name is required"},
		{"Conflict", http.StatusConflict, "training already in progress"},
		{"Unavailable", http.StatusServiceUnavailable, "camera unavailable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondError(recorder, tc.status, tc.message)

			assertStatusCode(t, recorder, tc.status)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest("GET", "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}

func TestQueryID(t *testing.T) {
	tests := []struct {
		query  string
		want   int64
		wantOK bool
	}{
		{"", 0, true},
		{"batch_id=", 0, true},
		{"batch_id=7", 7, true},
		{"batch_id=%207%20", 7, true},
		{"batch_id=0", 0, false},
		{"batch_id=-3", 0, false},
		{"batch_id=abc", 0, false},
	}

	for _, tc := range tests {
		req := httptest.NewRequest("GET", "/?"+tc.query, nil)
		got, ok := queryID(req, "batch_id")
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("queryID(%q) = %d, %v; want %d, %v", tc.query, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("batch_A\r\nforged line"); got != "batch_Aforged line" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}
