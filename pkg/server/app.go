package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartCrime/internal/service/fred"
	"ChartCrime/internal/usecase"
	"ChartCrime/pkg/config"
	xhttp "ChartCrime/pkg/http"
	applogger "ChartCrime/pkg/logger"
)

// App owns the commands' dependencies and the serve lifecycle.
type App struct {
	cfg        *config.Config
	discoverer *usecase.Discoverer
	pipeline   *usecase.Pipeline
	handler    xhttp.Handler
	httpOpts   []xhttp.ServerOption
	api        *fred.Client
	l          *applogger.Logger
}

func New(
	cfg *config.Config,
	discoverer *usecase.Discoverer,
	pipeline *usecase.Pipeline,
	handler xhttp.Handler,
	httpOpts []xhttp.ServerOption,
	api *fred.Client,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:        cfg,
		discoverer: discoverer,
		pipeline:   pipeline,
		handler:    handler,
		httpOpts:   httpOpts,
		api:        api,
		l:          l,
	}
}

// Discover builds and saves the candidate catalog.
func (a *App) Discover(ctx context.Context, mode usecase.DiscoveryMode) error {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return err
	}
	defer a.logAPIStats()
	_, err := a.discoverer.Run(ctx, mode)
	return err
}

// Correlate ranks the saved catalog against the benchmark.
func (a *App) Correlate(ctx context.Context) error {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return err
	}
	defer a.logAPIStats()
	_, err := a.pipeline.Correlate(ctx)
	return err
}

// Curate rebuilds the rotation from the saved results. No API access needed.
func (a *App) Curate(ctx context.Context) error {
	_, err := a.pipeline.Curate(ctx)
	return err
}

// RunPipeline correlates and curates in one pass.
func (a *App) RunPipeline(ctx context.Context) error {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return err
	}
	defer a.logAPIStats()
	sum, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	a.l.Info("pipeline run complete",
		applogger.Int("ranked", len(sum.Report.Results)),
		applogger.Int("curated", len(sum.Curated)),
	)
	return nil
}

// Serve runs the display API and the scheduled pipeline until SIGINT or SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := xhttp.NewServer(a.handler, a.httpOpts...)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	sched := NewScheduler(a.l)
	if a.cfg.Schedule.Cron != "" {
		if err := sched.Add(ctx, a.cfg.Schedule.Cron, "pipeline", a.scheduledRun); err != nil {
			_ = srv.Stop(context.Background())
			return err
		}
	}
	sched.Start()

	if a.cfg.Schedule.RunOnStart {
		go func() {
			if err := a.scheduledRun(ctx); err != nil {
				a.l.Error("startup run failed", applogger.Error(err))
			}
		}()
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown(srv, sched)
}

func (a *App) scheduledRun(ctx context.Context) error {
	err := a.RunPipeline(ctx)
	if errors.Is(err, usecase.ErrRunInProgress) {
		a.l.Warn("pipeline already running, skipping")
		return nil
	}
	return err
}

func (a *App) shutdown(srv *xhttp.Server, sched *Scheduler) error {
	// in-flight jobs see the cancelled context and stop at their next request
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.l.Info("shutdown complete")
	return nil
}

func (a *App) logAPIStats() {
	if a.api == nil {
		return
	}
	st := a.api.Stats()
	a.l.Info("data api stats",
		applogger.Int64("attempts", st.Attempts),
		applogger.Int64("successes", st.Successes),
		applogger.Int64("retries", st.Retries),
	)
}
