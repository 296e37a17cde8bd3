// Package yahoo fetches index price history from the Yahoo Finance v8 chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"AstroOverlay/internal/domain/models"
	drepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/align"
	xhttp "AstroOverlay/pkg/http"
	applogger "AstroOverlay/pkg/logger"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// notFoundCode is the chart error code Yahoo uses for unknown or delisted symbols.
const notFoundCode = "Not Found"

// Client implements drepo.MarketHistory.
type Client struct {
	http    *xhttp.Client
	baseURL string
	log     *applogger.Logger
}

var _ drepo.MarketHistory = (*Client)(nil)

// New creates a chart client on top of an HTTP client.
func New(httpClient *xhttp.Client, baseURL string, log *applogger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Client{http: httpClient, baseURL: strings.TrimRight(baseURL, "/"), log: log}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		Timezone  string `json:"exchangeTimezoneName"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quote `json:"quote"`
	} `json:"indicators"`
}

type quote struct {
	Open  []*float64 `json:"open"`
	High  []*float64 `json:"high"`
	Low   []*float64 `json:"low"`
	Close []*float64 `json:"close"`
}

func (q quote) column(field string) []*float64 {
	switch field {
	case models.FieldOpen:
		return q.Open
	case models.FieldHigh:
		return q.High
	case models.FieldLow:
		return q.Low
	case models.FieldClose:
		return q.Close
	}
	return nil
}

// Interval maps a granularity to the chart API interval parameter.
func Interval(g drepo.Granularity) string {
	if g == drepo.Weekly {
		return "1wk"
	}
	return "1d"
}

// History returns bars for q.Symbol between q.Start and q.End inclusive.
// Unknown symbols and empty windows yield an empty series.
func (c *Client) History(ctx context.Context, q drepo.HistoryQuery) (*models.Series, error) {
	fields := q.Fields
	if len(fields) == 0 {
		fields = []string{models.FieldClose}
	}
	for _, f := range fields {
		if !isPriceField(f) {
			return nil, fmt.Errorf("yahoo: unsupported field %q", f)
		}
	}
	empty := models.NewSeries(fields...)
	if q.Symbol == "" {
		return empty, nil
	}

	// period2 is exclusive on the provider side.
	period1 := q.Start.Time().Unix()
	period2 := q.End.AddDays(1).Time().Unix()

	opts := &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(q.Symbol),
		QueryParams: map[string][]string{
			"period1":        {strconv.FormatInt(period1, 10)},
			"period2":        {strconv.FormatInt(period2, 10)},
			"interval":       {Interval(q.Granularity)},
			"includePrePost": {"false"},
			"events":         {"div,splits"},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}

	var resp chartResponse
	if err := c.http.SendAndParse(ctx, opts, &resp); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound && isNotFoundBody(se.Body) {
			c.log.Warn("yahoo symbol not found", applogger.String("symbol", q.Symbol))
			return empty, nil
		}
		return nil, fmt.Errorf("yahoo fetch %s: %w", q.Symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if e.Code == notFoundCode {
			c.log.Warn("yahoo symbol not found", applogger.String("symbol", q.Symbol))
			return empty, nil
		}
		return nil, fmt.Errorf("yahoo api error %s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return empty, nil
	}

	out, err := toSeries(resp.Chart.Result[0], fields)
	if err != nil {
		return nil, fmt.Errorf("yahoo decode %s: %w", q.Symbol, err)
	}

	// The provider may append a partial current bar that repeats the last date.
	out, err = align.Normalize(out, align.DuplicatesKeepLast)
	if err != nil {
		return nil, fmt.Errorf("yahoo normalize %s: %w", q.Symbol, err)
	}
	window := align.Range{Start: q.Start, End: q.End}
	out, err = align.Filter(out, window)
	if err != nil {
		return nil, err
	}

	c.log.Debug("yahoo history fetched",
		applogger.String("symbol", q.Symbol),
		applogger.String("interval", Interval(q.Granularity)),
		applogger.Int("bars", out.Len()),
	)
	return out, nil
}

func isPriceField(f string) bool {
	switch f {
	case models.FieldOpen, models.FieldHigh, models.FieldLow, models.FieldClose:
		return true
	}
	return false
}

func isNotFoundBody(body []byte) bool {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}
	return resp.Chart.Error != nil && resp.Chart.Error.Code == notFoundCode
}

// toSeries converts chart columns to a series keyed by exchange-local calendar date.
// Bars whose requested fields are all null are skipped.
func toSeries(r chartResult, fields []string) (*models.Series, error) {
	out := models.NewSeries(fields...)
	if len(r.Indicators.Quote) == 0 || len(r.Timestamp) == 0 {
		return out, nil
	}
	q := r.Indicators.Quote[0]
	cols := make([][]*float64, len(fields))
	for i, f := range fields {
		cols[i] = q.column(f)
	}

	offset := time.Duration(r.Meta.GMTOffset) * time.Second
	for i, ts := range r.Timestamp {
		vals := make([]models.Value, len(fields))
		seen := false
		for j, col := range cols {
			if i < len(col) && col[i] != nil {
				vals[j] = models.Some(*col[i])
				seen = true
			}
		}
		if !seen {
			continue
		}
		day := models.DateOf(time.Unix(ts, 0).UTC().Add(offset))
		if err := out.Append(day, vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
