package metrics

import (
	"errors"

	"AstroOverlay/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheTotal   *prometheus.CounterVec
	alignedRows  *prometheus.GaugeVec
	matchRatio   *prometheus.GaugeVec
	renderPasses *prometheus.CounterVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg. Collectors already registered
// on reg are reused, so building several recorders is safe.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astro_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_history_cache_total",
				Help: "Price history memo lookups by result",
			},
			[]string{"result"},
		),
		alignedRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "astro_aligned_rows",
				Help: "Rows in the last aligned table per symbol and granularity",
			},
			[]string{"symbol", "granularity"},
		),
		matchRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "astro_match_ratio",
				Help: "Share of aligned rows with a price match in the last render pass",
			},
			[]string{"symbol", "granularity"},
		),
		renderPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_render_passes_total",
				Help: "Completed render passes",
			},
			[]string{"granularity"},
		),
	}
	r.errorsTotal = register(reg, r.errorsTotal)
	r.latency = register(reg, r.latency)
	r.cacheTotal = register(reg, r.cacheTotal)
	r.alignedRows = register(reg, r.alignedRows)
	r.matchRatio = register(reg, r.matchRatio)
	r.renderPasses = register(reg, r.renderPasses)
	return r
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCache records a memo lookup result ("hit", "miss", "error").
func (r *Recorder) RecordCache(result string) {
	r.cacheTotal.WithLabelValues(result).Inc()
}

// RecordAlignment records the shape of one aligned table.
func (r *Recorder) RecordAlignment(symbol string, g repository.Granularity, rows, matched int) {
	gl := string(g)
	r.renderPasses.WithLabelValues(gl).Inc()
	r.alignedRows.WithLabelValues(symbol, gl).Set(float64(rows))
	ratio := 0.0
	if rows > 0 {
		ratio = float64(matched) / float64(rows)
	}
	r.matchRatio.WithLabelValues(symbol, gl).Set(ratio)
}
