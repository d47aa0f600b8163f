package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/you-humble/tasksim/api/internal/transport"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

type app struct {
	di  *dependencyInjector
	srv *http.Server
}

func New(ctx context.Context) *app {
	di := newDI()
	di.Logger()
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(di.Registry(), promhttp.HandlerOpts{}))
	return &app{
		di: di,
		srv: &http.Server{
			Addr:              di.Config().Addr,
			ReadHeaderTimeout: readHeaderTimeout,
			Handler: transport.WithRecover(
				transport.WithMetrics(di.HTTPMetrics(),
					transport.LogMiddleware(
						di.Router(ctx).MountRoutes(mux),
					),
				),
			),
		},
	}
}

// Run serves until ctx is done, then shuts the server down and releases the
// stores and connections.
func (a *app) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		slog.Info("starting server", slog.String("addr", a.srv.Addr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			a.di.Config().ShutdownTimeout,
		)
		defer cancel()

		err := a.srv.Shutdown(shutdownCtx)
		a.di.Close(shutdownCtx)
		if err != nil {
			slog.Error("server shutdown error", slog.String("error", err.Error()))
			return err
		}

		slog.Info("server gracefully stopped")
		return nil
	})

	return eg.Wait()
}
