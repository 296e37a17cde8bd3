package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AstroOverlay/internal/service/ratelimit"
	"AstroOverlay/internal/usecase"
	"AstroOverlay/pkg/config"
	xhttp "AstroOverlay/pkg/http"
	applogger "AstroOverlay/pkg/logger"
)

// limiterIdle is how long a client bucket may sit unused before it is pruned.
const limiterIdle = 10 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	httpServer *xhttp.Server
	warmer     *usecase.Warmer
	limiter    *ratelimit.Limiter
	l          *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	httpServer *xhttp.Server,
	warmer *usecase.Warmer,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		httpServer: httpServer,
		warmer:     warmer,
		limiter:    limiter,
		l:          l,
	}
}

// Run starts the HTTP server and the optional warmup scheduler, then blocks
// until ctx is cancelled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Warmup.Enabled && a.warmer != nil {
		if err := a.warmer.Start(ctx); err != nil {
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.limiter != nil {
		go a.pruneLimiter(ctx)
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(limiterIdle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.l.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown stops accepting requests, then waits for the warmup job.
// Infrastructure clients are closed by the injector cleanup.
func (a *App) shutdown() error {
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.cfg.Warmup.Enabled && a.warmer != nil {
		a.warmer.Stop()
	}
	a.l.Info("shutdown complete")
	return nil
}
