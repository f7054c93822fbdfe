package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{"no checks", nil, StatusOK},
		{
			"all ok",
			map[string]CheckFunc{"storage": Required(func(context.Context) error { return nil })},
			StatusOK,
		},
		{
			"optional failure degrades",
			map[string]CheckFunc{
				"storage":  Required(func(context.Context) error { return nil }),
				"metadata": Optional(func(context.Context) error { return errors.New("down") }),
			},
			StatusDegraded,
		},
		{
			"required failure is unhealthy",
			map[string]CheckFunc{
				"storage":  Required(func(context.Context) error { return errors.New("down") }),
				"metadata": Optional(func(context.Context) error { return errors.New("down") }),
			},
			StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler("test")
			for name, check := range tt.checks {
				h.Register(name, check)
			}
			resp := h.RunChecks(context.Background())
			if resp.Status != tt.want {
				t.Errorf("Expected status %s, got %s", tt.want, resp.Status)
			}
			if resp.Message != messages[tt.want] {
				t.Errorf("Expected message %q, got %q", messages[tt.want], resp.Message)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("Expected %d check results, got %d", len(tt.checks), len(resp.Checks))
			}
		})
	}
}

func TestCheckErrorReported(t *testing.T) {
	h := NewHandler("")
	h.Register("storage", Required(func(context.Context) error { return errors.New("bucket missing") }))

	resp := h.RunChecks(context.Background())
	if got := resp.Checks["storage"].Error; got != "bucket missing" {
		t.Errorf("Expected error to be reported, got %q", got)
	}
}

func TestHandlers(t *testing.T) {
	h := NewHandler("1.0.0")
	h.Register("storage", Required(func(context.Context) error { return errors.New("down") }))

	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    int
		status  Status
	}{
		{"health", h.HealthHandler(), http.StatusOK, StatusUnhealthy},
		{"live", h.LivenessHandler(), http.StatusOK, StatusOK},
		{"ready", h.ReadinessHandler(), http.StatusServiceUnavailable, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("Expected status code %d, got %d", tt.code, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %s", ct)
			}
			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, resp.Status)
			}
			if resp.Version != "1.0.0" {
				t.Errorf("Expected version 1.0.0, got %s", resp.Version)
			}
		})
	}
}
