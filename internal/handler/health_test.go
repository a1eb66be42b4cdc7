package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, testLogger())

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	ok := pingerFunc(func(ctx context.Context) error { return nil })
	down := pingerFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		deps       map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{
			name:       "all dependencies up",
			deps:       map[string]Pinger{"store": ok, "sessions": ok},
			wantStatus: http.StatusOK,
			wantState:  "ready",
		},
		{
			name:       "one dependency down",
			deps:       map[string]Pinger{"store": ok, "sessions": down},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
		},
		{
			name:       "no dependencies",
			deps:       nil,
			wantStatus: http.StatusOK,
			wantState:  "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps, testLogger())

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var response struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.wantState {
				t.Errorf("state = %q, want %q", response.Status, tt.wantState)
			}
		})
	}
}
