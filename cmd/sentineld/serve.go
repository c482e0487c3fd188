package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/groblegark/sentinel/internal/correlate"
	"github.com/groblegark/sentinel/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sentinel daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, closeAll, err := buildComponents(ctx)
		if err != nil {
			return err
		}
		defer closeAll()
		logger := c.logger

		corr := correlate.New(c.publisher, logger)

		srv := server.New(c.recorder, c.engine, corr, c.sourceDevice(), logger)
		httpServer := &http.Server{
			Addr:    c.cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(c.cfg.AuthToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", c.cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// The engine recovers orphaned unsynced events and begins its
		// interval passes.
		if c.cfg.SyncInterval > 0 && c.engine.Configured() {
			c.engine.Start()
			logger.Info("sync engine started", "interval", c.cfg.SyncInterval)
		}

		logger.Info("sentinel started",
			"http_addr", c.cfg.HTTPAddr,
			"device_id", c.cfg.DeviceID,
			slog.Bool("remote", c.engine.Configured()),
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Graceful shutdown.
		c.engine.Stop()
		logger.Info("sync engine stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		logger.Info("shutdown complete")
		return nil
	},
}
