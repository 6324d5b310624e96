package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Story-Atlas/server/internal/engine"
	"Story-Atlas/server/internal/web"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the live feed and the background syncer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := web.NewFeedHub(a.services, cfg.API.PageSize, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      web.NewRouter(cfg, a.services, hub, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if interval := cfg.Sync.Interval; interval > 0 {
		g.Go(func() error {
			runPeriodicSync(gctx, a.services.Syncer, interval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited", zap.Int64("sessions_served", hub.Served()))
	return nil
}

func runPeriodicSync(ctx context.Context, syncer *engine.Syncer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := syncer.Run(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("background sync failed", zap.Error(err))
				}
				continue
			}
			if len(report.Synced) > 0 || report.Remaining > 0 {
				logger.Info("background sync",
					zap.Int("synced", len(report.Synced)),
					zap.Int("remaining", report.Remaining),
					zap.Bool("offline", report.Offline))
			}
		}
	}
}
