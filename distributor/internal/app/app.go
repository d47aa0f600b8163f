package dapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	di *dependencyInjector
}

func New(ctx context.Context) *app {
	di := newDI()
	di.Logger()
	return &app{di: di}
}

func (a *app) Run(ctx context.Context) error {
	d := a.di.Distributor(ctx)
	slog.Info("distributor starting...")

	if err := d.Run(ctx); err != nil {
		a.di.Close(context.Background())
		return err
	}
	d.StartCleanup(ctx)
	slog.Info("cleanup running...")

	metricsSrv := a.startMetrics()

	<-ctx.Done()
	slog.Info("distributor shutting down...")

	d.Stop(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.di.Config().ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}
	a.di.Close(shutdownCtx)

	return nil
}

func (a *app) startMetrics() *http.Server {
	addr := a.di.Config().MetricsAddr
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.di.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", slog.String("error", err.Error()))
		}
	}()

	return srv
}
