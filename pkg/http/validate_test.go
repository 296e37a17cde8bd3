package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeRequest struct {
	Symbol string `query:"symbol" validate:"omitempty,ticker"`
	Mode   string `query:"mode" default:"line" validate:"oneof=line table"`
	Start  string `query:"start" validate:"omitempty,datetime=2006-01-02"`
}

func bind(target string) (*probeRequest, interface{}) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	req := &probeRequest{}
	return req, ReadAndValidateRequest(c, req)
}

func TestReadAndValidateAppliesDefaults(t *testing.T) {
	req, verr := bind("/?symbol=%5ENSEI")
	require.Nil(t, verr)
	assert.Equal(t, "^NSEI", req.Symbol)
	assert.Equal(t, "line", req.Mode)
}

func TestReadAndValidateReportsWireNames(t *testing.T) {
	_, verr := bind("/?mode=bars&start=2024/01/01")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)

	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "mode", errs[0].Field)
	assert.Equal(t, "mode must be one of: line, table", errs[0].Message)
	assert.Equal(t, []string{"line", "table"}, errs[0].Params["options"])

	assert.Equal(t, "ERR_DATETIME", errs[1].Code)
	assert.Equal(t, "start must be a date in format 2006-01-02", errs[1].Message)
}

func TestTickerRule(t *testing.T) {
	for _, s := range []string{"^NSEI", "RELIANCE.NS", "BTC-USD", "GC=F", "^GSPC"} {
		assert.True(t, tickerRe.MatchString(s), s)
	}
	for _, s := range []string{"", "NSEI;DROP", "a b", "^^", "-X"} {
		assert.False(t, tickerRe.MatchString(s), s)
	}
}
