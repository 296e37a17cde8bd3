package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	models "AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	svcmetrics "AstroOverlay/internal/service/metrics"
	"AstroOverlay/internal/service/ratelimit"
	"AstroOverlay/internal/services/align"
	"AstroOverlay/internal/services/export"
	"AstroOverlay/internal/usecase"
	xhttp "AstroOverlay/pkg/http"
	xlogger "AstroOverlay/pkg/logger"

	"github.com/labstack/echo/v4"
)

//go:embed web/index.html
var webFS embed.FS

// OverlayBuilder runs one render pass.
type OverlayBuilder interface {
	Build(ctx context.Context, p usecase.OverlayParams) (*models.Overlay, error)
}

// DatasetStore stores uploaded planetary tables.
type DatasetStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (models.DatasetInfo, error)
	Info(ctx context.Context, id string) (models.DatasetInfo, error)
	Delete(ctx context.Context, id string) error
}

// RateLimit is a per-client token bucket setting.
type RateLimit struct {
	Capacity float64
	PerSec   float64
}

// OverlayEchoHandler serves the dashboard page and the overlay API.
type OverlayEchoHandler struct {
	logger        *xlogger.Logger
	overlay       OverlayBuilder
	datasets      DatasetStore
	catalog       []models.IndexInfo
	defaultSymbol string
	limiter       *ratelimit.Limiter
	rl            RateLimit
	maxUpload     int64
	tmpl          *template.Template
}

// OverlayHandlerConfig carries the handler's static settings.
type OverlayHandlerConfig struct {
	Catalog        []models.IndexInfo
	DefaultSymbol  string
	RateLimit      RateLimit
	MaxUploadBytes int64
}

func NewOverlayEchoHandler(logger *xlogger.Logger, overlay OverlayBuilder, datasets DatasetStore, limiter *ratelimit.Limiter, cfg OverlayHandlerConfig) *OverlayEchoHandler {
	svcmetrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &OverlayEchoHandler{
		logger:        logger,
		overlay:       overlay,
		datasets:      datasets,
		catalog:       cfg.Catalog,
		defaultSymbol: cfg.DefaultSymbol,
		limiter:       limiter,
		rl:            cfg.RateLimit,
		maxUpload:     cfg.MaxUploadBytes,
		tmpl:          template.Must(template.ParseFS(webFS, "web/index.html")),
	}
}

func (h *OverlayEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.Renderer = h
	e.GET("/", h.Index)
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/indices", h.Indices)
	g.POST("/datasets", h.UploadDataset)
	g.GET("/datasets/:id", h.DatasetInfo)
	g.DELETE("/datasets/:id", h.DeleteDataset)
	g.GET("/overlay", h.Overlay, h.rateLimit("overlay"))
	g.GET("/overlay.csv", h.OverlayCSV, h.rateLimit("overlay_csv"))
}

// Render implements echo.Renderer.
func (h *OverlayEchoHandler) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return h.tmpl.ExecuteTemplate(w, name, data)
}

type indexPage struct {
	Catalog       []models.IndexInfo
	DefaultSymbol string
	Granularities []string
	Modes         []models.Mode
}

func (h *OverlayEchoHandler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", indexPage{
		Catalog:       h.catalog,
		DefaultSymbol: h.defaultSymbol,
		Granularities: []string{string(domrepo.Daily), string(domrepo.Weekly)},
		Modes:         []models.Mode{models.ModeLine, models.ModeCandlestick, models.ModeTable},
	})
}

func (h *OverlayEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *OverlayEchoHandler) Indices(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, h.catalog)
}

func (h *OverlayEchoHandler) UploadDataset(c echo.Context) error {
	start := time.Now()
	defer observe("datasets_upload", start)

	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUpload+(1<<20))

	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, "datasets_upload", xhttp.RequiredError("file").WithError(err))
	}
	if fh.Size > h.maxUpload {
		return h.fail(c, "datasets_upload", xhttp.TooLargeError("file", h.maxUpload))
	}
	f, err := fh.Open()
	if err != nil {
		return h.fail(c, "datasets_upload", xhttp.BadRequestError("cannot read upload").WithError(err))
	}
	defer f.Close()

	info, err := h.datasets.Upload(req.Context(), fh.Filename, f)
	if err != nil {
		return h.fail(c, "datasets_upload", h.mapError(err, ""))
	}
	return xhttp.CreatedResponse(c, info)
}

func (h *OverlayEchoHandler) DatasetInfo(c echo.Context) error {
	start := time.Now()
	defer observe("datasets_info", start)

	id := c.Param("id")
	info, err := h.datasets.Info(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "datasets_info", h.mapError(err, id))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *OverlayEchoHandler) DeleteDataset(c echo.Context) error {
	id := c.Param("id")
	if err := h.datasets.Delete(c.Request().Context(), id); err != nil {
		return h.fail(c, "datasets_delete", h.mapError(err, id))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OverlayEchoHandler) Overlay(c echo.Context) error {
	start := time.Now()
	defer observe("overlay", start)

	ov, appErr, verr := h.build(c)
	if verr != nil {
		svcmetrics.EndpointErrors.WithLabelValues("overlay", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	if appErr != nil {
		return h.fail(c, "overlay", appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, ov)
}

func (h *OverlayEchoHandler) OverlayCSV(c echo.Context) error {
	start := time.Now()
	defer observe("overlay_csv", start)

	ov, appErr, verr := h.build(c)
	if verr != nil {
		svcmetrics.EndpointErrors.WithLabelValues("overlay_csv", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	if appErr != nil {
		return h.fail(c, "overlay_csv", appErr)
	}

	err := xhttp.AttachmentResponse(c, "text/csv; charset=utf-8", export.FileName(ov), func(w io.Writer) error {
		return export.WriteCSV(w, ov.Table)
	})
	if err != nil {
		h.logger.Error("overlay csv write error", xlogger.Error(err))
	}
	return nil
}

// build binds and validates the query, then runs the use case.
func (h *OverlayEchoHandler) build(c echo.Context) (*models.Overlay, *xhttp.AppError, interface{}) {
	req := &models.OverlayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, nil, verr
	}
	p, err := ToOverlayParams(req)
	if err != nil {
		return nil, xhttp.BadRequestError(err.Error()), nil
	}

	ov, err := h.overlay.Build(c.Request().Context(), p)
	if err != nil {
		return nil, h.mapError(err, p.Dataset), nil
	}
	return ov, nil, nil
}

// ToOverlayParams converts a validated request to use case parameters.
func ToOverlayParams(req *models.OverlayRequest) (usecase.OverlayParams, error) {
	p := usecase.OverlayParams{
		Dataset:     req.Dataset,
		Symbol:      strings.TrimSpace(req.Symbol),
		Granularity: domrepo.NormalizeGranularity(req.Granularity),
		Mode:        models.Mode(req.Mode),
	}
	if req.Start != "" {
		d, err := models.ParseDate(models.DateLayout, req.Start)
		if err != nil {
			return p, fmt.Errorf("start: %w", err)
		}
		p.Start = &d
	}
	if req.End != "" {
		d, err := models.ParseDate(models.DateLayout, req.End)
		if err != nil {
			return p, fmt.Errorf("end: %w", err)
		}
		p.End = &d
	}
	return p, nil
}

// mapError translates domain errors to HTTP errors. A parse failure of the
// configured default file is a server fault, of an upload a client fault.
func (h *OverlayEchoHandler) mapError(err error, dataset string) *xhttp.AppError {
	var rerr *align.RangeError
	switch {
	case errors.As(err, &rerr):
		return xhttp.InvalidRangeError(err.Error()).
			WithParam("start", rerr.Start.String()).
			WithParam("end", rerr.End.String())
	case errors.Is(err, align.ErrInvalidRange):
		return xhttp.InvalidRangeError(err.Error())
	case errors.Is(err, domrepo.ErrDatasetNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, domrepo.ErrParse):
		if dataset == usecase.DefaultDatasetID {
			h.logger.Error("default dataset unreadable", xlogger.Error(err))
			return xhttp.InternalError("default planetary dataset is unreadable").WithError(err)
		}
		return xhttp.ParseError("file", err.Error())
	case errors.Is(err, usecase.ErrUpstream), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("upstream failure", xlogger.Error(err))
		return xhttp.BadGatewayError("market data provider unavailable").WithError(err)
	default:
		h.logger.Error("overlay handler error", xlogger.Error(err))
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

func (h *OverlayEchoHandler) fail(c echo.Context, endpoint string, appErr *xhttp.AppError) error {
	svcmetrics.EndpointErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *OverlayEchoHandler) rateLimit(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.limiter == nil || h.rl.Capacity <= 0 {
				return next(c)
			}
			if !h.limiter.Allow(c.RealIP(), h.rl.Capacity, h.rl.PerSec) {
				svcmetrics.RateLimited.WithLabelValues(endpoint).Inc()
				return h.fail(c, endpoint, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}

func observe(endpoint string, start time.Time) {
	svcmetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
