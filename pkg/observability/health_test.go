package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheck_NoPoolIsUnhealthy verifies a checker without a pool reports
// unhealthy and skips the backlog check
func TestCheck_NoPoolIsUnhealthy(t *testing.T) {
	checker := NewHealthChecker(nil)

	report := checker.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Checks["database"].Status)
	assert.Equal(t, "pool not configured", report.Checks["database"].Detail)
	assert.NotContains(t, report.Checks, "billing_backlog")
	assert.False(t, report.Timestamp.IsZero())
}

// TestWorseOf verifies status aggregation picks the worse status
func TestWorseOf(t *testing.T) {
	assert.Equal(t, StatusHealthy, worseOf(StatusHealthy, StatusHealthy))
	assert.Equal(t, StatusDegraded, worseOf(StatusHealthy, StatusDegraded))
	assert.Equal(t, StatusDegraded, worseOf(StatusDegraded, StatusHealthy))
	assert.Equal(t, StatusUnhealthy, worseOf(StatusDegraded, StatusUnhealthy))
	assert.Equal(t, StatusUnhealthy, worseOf(StatusUnhealthy, StatusDegraded))
}

// TestHealthHandler_Unhealthy verifies the handler returns 503 with the
// JSON report when the database is unreachable
func TestHealthHandler_Unhealthy(t *testing.T) {
	checker := NewHealthChecker(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	checker.HealthHandler()(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report HealthReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, StatusUnhealthy, report.Status)
}

// TestReadyHandler_NotReady verifies readiness gates on the database
func TestReadyHandler_NotReady(t *testing.T) {
	checker := NewHealthChecker(nil)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	checker.ReadyHandler()(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not ready", w.Body.String())
}
