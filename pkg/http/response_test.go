package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, h(c))
	return rec
}

func TestAppErrorResponse(t *testing.T) {
	rec := serve(t, func(c echo.Context) error {
		return AppErrorResponse(c, TooLargeError("file", 1024).WithError(errors.New("read")))
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body struct {
		Status  int        `json:"status"`
		Message string     `json:"message"`
		Data    []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Request Entity Too Large", body.Message)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_TOO_LARGE", body.Data[0].Code)
	assert.Equal(t, "file", body.Data[0].Field)
	assert.EqualValues(t, 1024, body.Data[0].Params["max"])
	assert.NotContains(t, rec.Body.String(), "read")
}

func TestAppErrorResponsePlainError(t *testing.T) {
	rec := serve(t, func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("boom"))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":500,"message":"Internal Server Error","data":"Something went wrong"}`, rec.Body.String())
}

func TestAttachmentResponse(t *testing.T) {
	rec := serve(t, func(c echo.Context) error {
		return AttachmentResponse(c, "text/csv; charset=utf-8", "overlay.csv", func(w io.Writer) error {
			_, err := io.WriteString(w, "date,close\n")
			return err
		})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="overlay.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "date,close\n", rec.Body.String())
}

func TestAppErrorString(t *testing.T) {
	err := InvalidRangeError("start after end")
	assert.Equal(t, "ERR_INVALID_RANGE: start after end", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.Status)

	wrapped := BadGatewayError("provider down").WithError(io.ErrUnexpectedEOF)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
	assert.Equal(t, "ERR_UPSTREAM: provider down: unexpected EOF", wrapped.Error())

	assert.Equal(t, "file is required", RequiredError("file").Message)
	assert.Equal(t, "ERR_PARSE", ParseError("file", "bad").Code)
}
