package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginsAllowed(t *testing.T) {
	origins := ParseOrigins(" https://attend.example.com , ,https://other.example.com")

	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"https://attend.example.com", true},
		{"https://other.example.com", true},
		{"https://evil.example.com", false},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:8080", true},
		{"http://localhost.evil.com", false},
	}
	for _, tt := range tests {
		if got := origins.Allowed(tt.origin); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(ParseOrigins("https://attend.example.com"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("AllowedOrigin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		req.Header.Set("Origin", "https://attend.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://attend.example.com" {
			t.Errorf("expected origin header, got %q", got)
		}
		if rec.Code != http.StatusTeapot {
			t.Errorf("expected request to reach handler, got %d", rec.Code)
		}
	})

	t.Run("DisallowedOrigin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no origin header, got %q", got)
		}
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/train", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for preflight, got %d", rec.Code)
		}
	})
}

func TestCheckWebSocketOrigin(t *testing.T) {
	origins := ParseOrigins("https://attend.example.com")

	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"NoOrigin", "", "cam.local:8080", true},
		{"SameHost", "http://cam.local:8080", "cam.local:8080", true},
		{"Allowed", "https://attend.example.com", "cam.local:8080", true},
		{"Foreign", "https://evil.example.com", "cam.local:8080", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/attendance/live", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := origins.CheckWebSocketOrigin(req); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
