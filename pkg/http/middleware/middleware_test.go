package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	applogger "AstroOverlay/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORSPreflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://dash.example"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType},
		MaxAge:       600,
	}))
	e.GET("/api/overlay", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodOptions, "/api/overlay", map[string]string{echo.HeaderOrigin: "https://dash.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dash.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))

	rec = serve(e, http.MethodGet, "/api/overlay", map[string]string{echo.HeaderOrigin: "https://other.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSWildcard(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{AllowOrigins: []string{"*"}}))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/", map[string]string{echo.HeaderOrigin: "https://any.example"})
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(applogger.Nop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	e := echo.New()
	e.Use(Metrics(applogger.Nop(), time.Second))
	e.GET("/api/datasets/:id", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/datasets/:id", http.MethodGet, "404"))
	serve(e, http.MethodGet, "/api/datasets/abc", nil)
	serve(e, http.MethodGet, "/api/datasets/def", nil)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/datasets/:id", http.MethodGet, "404"))

	assert.Equal(t, 2.0, after-before)
}
