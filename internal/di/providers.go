package di

import (
	"context"
	"fmt"
	"time"

	"AstroOverlay/internal/domain/models"
	"AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/handler/api"
	internalrepo "AstroOverlay/internal/repository"
	icache "AstroOverlay/internal/service/cache"
	"AstroOverlay/internal/service/ratelimit"
	"AstroOverlay/internal/service/yahoo"
	"AstroOverlay/internal/services/align"
	"AstroOverlay/internal/usecase"
	pcache "AstroOverlay/pkg/cache"
	pkgch "AstroOverlay/pkg/clickhouse"
	"AstroOverlay/pkg/config"
	xhttp "AstroOverlay/pkg/http"
	pkgkafka "AstroOverlay/pkg/kafka"
	applogger "AstroOverlay/pkg/logger"
	"AstroOverlay/pkg/metrics"
	"AstroOverlay/pkg/server"
	xutil "AstroOverlay/pkg/util"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRedis connects to Redis when any cache backend needs it and returns
// nil otherwise. The client is shared by the dataset store and the history memo.
func ProvideRedis(cfg *config.Config, l *applogger.Logger) (*pcache.RedisCache, func(), error) {
	if cfg.Cache.Backend != "redis" && cfg.Datasets.Backend == "memory" {
		return nil, func() {}, nil
	}
	rc, err := pcache.NewRedisCache(
		pcache.WithRedisHost(cfg.Redis.Host),
		pcache.WithRedisPort(cfg.Redis.Port),
		pcache.WithRedisPassword(cfg.Redis.Password),
		pcache.WithRedisDB(cfg.Redis.DB),
		pcache.WithRedisPrefix(cfg.Redis.Prefix),
		pcache.WithRedisPool(10, 2, 5*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	cleanup := func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return rc, cleanup, nil
}

// ProvideDatasetStore selects where uploaded datasets live.
func ProvideDatasetStore(cfg *config.Config, rc *pcache.RedisCache) (pcache.Service, func()) {
	var store pcache.Service
	switch cfg.Datasets.Backend {
	case "redis":
		store = rc
	case "layered":
		store = pcache.NewLayeredCache(rc,
			pcache.WithLayeredMemorySize(cfg.Datasets.MaxSize),
			pcache.WithLayeredMemoryTTL(10*time.Minute),
		)
	default:
		store = pcache.NewMemoryCache(
			pcache.WithMemoryMaxSize(cfg.Datasets.MaxSize),
			pcache.WithMemoryCleanup(time.Minute),
		)
	}
	if _, shared := store.(*pcache.RedisCache); shared {
		return store, func() {}
	}
	return store, func() { _ = store.Close() }
}

// ProvideHistoryCache selects the backend of the price history memo.
func ProvideHistoryCache(cfg *config.Config, rc *pcache.RedisCache) icache.BytesCache {
	if cfg.Cache.Backend == "redis" && rc != nil {
		return icache.NewRedisCacheFromClient(rc.Client(), cfg.Redis.Prefix+":memo")
	}
	return icache.NewTTLCache(1024)
}

// ProvideHTTPClient builds the outbound client used for the market data provider.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Market.Timeout),
		xhttp.WithProxy(cfg.Market.Proxy),
		xhttp.WithUserAgent(cfg.Market.UserAgent),
	)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMarketHistory wraps the provider client with the history memo.
func ProvideMarketHistory(
	cfg *config.Config,
	client *xhttp.Client,
	memo icache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
) repository.MarketHistory {
	src := yahoo.New(client, cfg.Market.BaseURL, l)
	return internalrepo.NewCachedHistory(src, memo, cfg.Cache.TTL, m, l)
}

// ProvidePlanetaryLoader builds the spreadsheet loader from the planetary section.
func ProvidePlanetaryLoader(cfg *config.Config) *internalrepo.SheetLoader {
	return internalrepo.NewSheetLoader(internalrepo.PlanetaryLoaderConfig{
		Bodies:      cfg.Planetary.Bodies,
		DateColumn:  cfg.Planetary.DateColumn,
		DateLayouts: cfg.Planetary.DateLayouts,
		Duplicates:  align.DuplicatePolicy(cfg.Planetary.Duplicates),
	})
}

// ProvideDatasetRegistry serves the default file and uploaded datasets.
func ProvideDatasetRegistry(
	cfg *config.Config,
	loader *internalrepo.SheetLoader,
	store pcache.Service,
	l *applogger.Logger,
) *usecase.DatasetRegistry {
	return usecase.NewDatasetRegistry(loader, store, cfg.Planetary.DefaultFile, cfg.Datasets.TTL, l)
}

// ProvideRangeDefaults pins the fallback lower bound and the wall clock.
func ProvideRangeDefaults(cfg *config.Config) (align.RangeDefaults, error) {
	anchor, err := models.ParseDate(models.DateLayout, cfg.Range.Anchor)
	if err != nil {
		return align.RangeDefaults{}, fmt.Errorf("range anchor: %w", err)
	}
	return align.RangeDefaults{Anchor: anchor, Clock: xutil.SystemClock{}}, nil
}

// ProvidePublisher returns a Kafka publisher when Kafka is enabled, else a no-op.
func ProvidePublisher(cfg *config.Config, l *applogger.Logger) (repository.EventPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithBatching(1, 10*time.Millisecond),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaPublisher(producer, producer.Topic())
	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return pub, cleanup, nil
}

// ProvideArchive returns a ClickHouse bar archive when enabled, else a no-op.
func ProvideArchive(cfg *config.Config, l *applogger.Logger) (repository.BarArchive, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return internalrepo.NoopArchive{}, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.IndexBarsSchema); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	archive := internalrepo.NewCHBarArchive(client, l)
	cleanup := func() {
		if err := archive.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return archive, cleanup, nil
}

// ProvideOverlayUseCase assembles the render pipeline.
func ProvideOverlayUseCase(
	cfg *config.Config,
	datasets *usecase.DatasetRegistry,
	history repository.MarketHistory,
	pub repository.EventPublisher,
	archive repository.BarArchive,
	m repository.Metrics,
	ranges align.RangeDefaults,
	l *applogger.Logger,
) *usecase.OverlayUseCase {
	return usecase.NewOverlayUseCase(usecase.OverlayDeps{
		Datasets:      datasets,
		History:       history,
		Publisher:     pub,
		Archive:       archive,
		Metrics:       m,
		Ranges:        ranges,
		DefaultSymbol: cfg.Market.DefaultSymbol,
		Timeout:       cfg.Market.Timeout,
		Logger:        l,
	})
}

// ProvideCatalog converts the configured index catalog.
func ProvideCatalog(cfg *config.Config) []models.IndexInfo {
	out := make([]models.IndexInfo, 0, len(cfg.Catalog()))
	for _, ix := range cfg.Catalog() {
		out = append(out, models.IndexInfo{Name: ix.Name, Symbol: ix.Symbol})
	}
	return out
}

// ProvideWarmer builds the scheduled prefetch job. It only runs when enabled.
func ProvideWarmer(
	cfg *config.Config,
	catalog []models.IndexInfo,
	datasets *usecase.DatasetRegistry,
	history repository.MarketHistory,
	ranges align.RangeDefaults,
	store pcache.Service,
	l *applogger.Logger,
) *usecase.Warmer {
	return usecase.NewWarmer(cfg.Warmup.Cron, catalog, datasets, history, ranges, store, l)
}

// ProvideLimiter creates the per-client request limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideOverlayHandler builds the dashboard and API handler.
func ProvideOverlayHandler(
	cfg *config.Config,
	l *applogger.Logger,
	overlay *usecase.OverlayUseCase,
	datasets *usecase.DatasetRegistry,
	limiter *ratelimit.Limiter,
	catalog []models.IndexInfo,
) *api.OverlayEchoHandler {
	return api.NewOverlayEchoHandler(l, overlay, datasets, limiter, api.OverlayHandlerConfig{
		Catalog:       catalog,
		DefaultSymbol: cfg.Market.DefaultSymbol,
		RateLimit: api.RateLimit{
			Capacity: cfg.Server.RateLimit.Capacity,
			PerSec:   cfg.Server.RateLimit.PerSec,
		},
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
}

// ProvideHTTPServer creates the Echo server around the handler.
func ProvideHTTPServer(cfg *config.Config, h *api.OverlayEchoHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	srv *xhttp.Server,
	warmer *usecase.Warmer,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, srv, warmer, limiter, l)
}
