package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/missing", func(c echo.Context) error { return AppErrorResponse(c, NotFoundError("dataset not found")) })
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServerRoutesAndMetrics(t *testing.T) {
	s := NewServer(pingHandler{}, WithPort(0))

	rec := get(s, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":200,"message":"OK","data":"pong"}`, rec.Body.String())

	rec = get(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServerAppErrorEnvelope(t *testing.T) {
	s := NewServer(pingHandler{})

	rec := get(s, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_NOT_FOUND"`)
}

func TestServerMetricsDisabled(t *testing.T) {
	s := NewServer(pingHandler{}, WithMetricsPath(""), WithCORS())

	rec := get(s, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
