package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func ok(context.Context) error { return nil }

func failing(msg string) Checker {
	return func(context.Context) error { return fmt.Errorf("%s", msg) }
}

func TestLiveness(t *testing.T) {
	rec, resp := serve(t, NewHandler().LivenessHandler())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusUp, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Handler)
		wantCode   int
		wantStatus Status
	}{
		{
			name:       "no checkers",
			setup:      func(*Handler) {},
			wantCode:   http.StatusOK,
			wantStatus: StatusUp,
		},
		{
			name: "all healthy",
			setup: func(h *Handler) {
				h.RegisterCritical("redis", ok)
				h.RegisterNonCritical("kafka", ok)
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusUp,
		},
		{
			name: "non-critical down degrades",
			setup: func(h *Handler) {
				h.RegisterCritical("redis", ok)
				h.RegisterNonCritical("kafka", failing("broker unreachable"))
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name: "critical down",
			setup: func(h *Handler) {
				h.Register("redis", failing("connection refused"))
				h.RegisterNonCritical("kafka", failing("broker unreachable"))
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			tt.setup(h)

			rec, resp := serve(t, h.ReadinessHandler())

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestReadiness_ReportsPerCheckDetail(t *testing.T) {
	h := NewHandler()
	h.Register("redis", failing("connection refused"))
	h.RegisterNonCritical("kafka", ok)

	_, resp := serve(t, h.ReadinessHandler())

	assert.Equal(t, CheckResult{Status: StatusDown, Critical: true, Error: "connection refused"}, resp.Checks["redis"])
	assert.Equal(t, CheckResult{Status: StatusUp}, resp.Checks["kafka"])
}

func TestRegister_Overwrites(t *testing.T) {
	h := NewHandler()
	h.Register("redis", failing("fail"))
	h.Register("redis", ok)

	rec, _ := serve(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, rec.Code)
}
