package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndExposition(t *testing.T) {
	m := NewMetrics()
	m.RecordTransition("scheduled")
	m.RecordTransition("scheduled")
	m.RecordFallback("appointments", "list")
	m.RecordPayment("completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("scheduled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("appointments", "list")))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, m.Handler()(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "medibook_appointment_transitions_total"))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordTransition("completed")
	m.RecordFallback("doctors", "get")
	m.RecordPayment("cancelled")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h := m.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetrics_MiddlewareUsesRouteTemplate(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/appointments/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/appointments/abc", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}
