package metrics

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_AllComponentsRegister(t *testing.T) {
	reg := NewRegistry()

	require.NotPanics(t, func() {
		NewHTTPMetrics(reg)
		NewSearchMetrics(reg)
		NewSlotMetrics(reg)
		NewAuthMetrics(reg)
		NewWebSocketMetrics(reg)
		NewStorageMetrics(reg)
	})
}

func TestHandler_ServesNamespacedMetrics(t *testing.T) {
	reg := NewRegistry()
	slots := NewSlotMetrics(reg)
	slots.Slots.Set(3)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "streamhub_slots 3")
}

func TestNewRegistry_ExposesBuildInfo(t *testing.T) {
	reg := NewRegistry()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "streamhub_build_info{")
	assert.Contains(t, body, `version="dev"`)
	assert.Contains(t, body, `go_version="`+runtime.Version()+`"`)
}

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/state", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, path := range []string{"/api/state", "/api/state", "/health/live"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/api/state", "200")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal), "health probes must not be recorded")
}

func TestHTTPMetrics_LabelsByRoutePattern(t *testing.T) {
	reg := NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.DELETE("/api/slots/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.POST("/api/slots", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "all slots in use")
	})
	e.GET("/static/*", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	requests := []struct{ method, path string }{
		{http.MethodDelete, "/api/slots/7"},
		{http.MethodDelete, "/api/slots/8"},
		{http.MethodPost, "/api/slots"},
		{http.MethodGet, "/static/app.js"},
		{http.MethodGet, "/wp-login.php"},
		{http.MethodGet, "/.env"},
	}
	for _, r := range requests {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodDelete, "/api/slots/:id", "204")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodPost, "/api/slots", "409")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.RequestsTotal), "static assets must not be recorded")
}
