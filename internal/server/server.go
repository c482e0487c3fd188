// Package server exposes the recorder, sync engine, and correlation engine
// over HTTP.
package server

import (
	"log/slog"

	"github.com/groblegark/sentinel/internal/correlate"
	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/recorder"
	"github.com/groblegark/sentinel/internal/syncq"
)

// Server holds the components handlers dispatch into.
type Server struct {
	recorder  *recorder.Recorder
	engine    *syncq.Engine
	correlate *correlate.Engine
	device    model.SourceDevice // identity used for events ingested without one
	logger    *slog.Logger
}

// New returns a Server wiring the recorder, sync engine, and correlation
// engine together. device is the fallback source identity for ingested
// events that do not carry their own.
func New(rec *recorder.Recorder, eng *syncq.Engine, corr *correlate.Engine, device model.SourceDevice, logger *slog.Logger) *Server {
	return &Server{
		recorder:  rec,
		engine:    eng,
		correlate: corr,
		device:    device,
		logger:    logger,
	}
}
