package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/groblegark/sentinel/internal/config"
	"github.com/groblegark/sentinel/internal/events"
	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/recorder"
	"github.com/groblegark/sentinel/internal/remote"
	"github.com/groblegark/sentinel/internal/store/postgres"
	"github.com/groblegark/sentinel/internal/syncq"
)

// components is everything a subcommand needs, built from config.
type components struct {
	cfg        *config.Config
	store      *postgres.PostgresStore
	publisher  events.Publisher
	recorder   *recorder.Recorder
	reconciler *remote.Reconciler // nil when no remote is configured
	engine     *syncq.Engine
	logger     *slog.Logger
}

// buildComponents connects the store, publisher, recorder, and sync engine.
// Callers must invoke close when done.
func buildComponents(ctx context.Context) (*components, func(), error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	st, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		publisher = pub
		logger.Info("events enabled", "nats_url", cfg.NATSURL)
	} else {
		publisher = &events.NoopPublisher{}
		logger.Info("events disabled (SENTINEL_NATS_URL not set)")
	}

	rec := recorder.New(st, publisher, logger)

	// Remote resolution order: environment and credentials file first, then
	// credentials carried in the stored settings record.
	var reconciler *remote.Reconciler
	if cfg.S3Bucket != "" {
		objects, err := remote.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			publisher.Close()
			st.Close()
			return nil, nil, err
		}
		reconciler = remote.NewReconciler(objects, logger)
		logger.Info("remote enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	} else if settings, err := rec.GetSettings(ctx); err == nil && settings.Remote.Configured() {
		reconciler, err = remote.FromCredentials(ctx, settings.Remote, logger)
		if err != nil {
			publisher.Close()
			st.Close()
			return nil, nil, err
		}
		logger.Info("remote enabled from settings", "bucket", settings.Remote.Bucket)
	} else {
		logger.Info("remote disabled (no bucket in environment or settings)")
	}

	engine := syncq.New(rec, reconciler, publisher, cfg.SyncInterval, logger)

	c := &components{
		cfg:        cfg,
		store:      st,
		publisher:  publisher,
		recorder:   rec,
		reconciler: reconciler,
		engine:     engine,
		logger:     logger,
	}
	closeAll := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
	}
	return c, closeAll, nil
}

// sourceDevice builds the daemon's own device identity from config.
func (c *components) sourceDevice() model.SourceDevice {
	return model.SourceDevice{
		ID:       c.cfg.DeviceID,
		Name:     c.cfg.DeviceName,
		Class:    model.DeviceClass(c.cfg.DeviceClass),
		Location: c.cfg.DeviceLocation,
	}
}
