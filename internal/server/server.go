/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/guipratiko/Clerky-app/internal/config"
	"github.com/guipratiko/Clerky-app/internal/gateway"
	"github.com/guipratiko/Clerky-app/internal/infra/sqlite"
)

// Server wires the HTTP listener and request handling stack.
type Server struct {
	cfg     config.Config
	handler *handler
	http    *http.Server
	db      *sql.DB
	logger  zerolog.Logger
}

// New constructs a Server using the provided configuration.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	db, err := sqlite.InitDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	runner := gateway.NewRunner(cfg.ProjectRoot, config.MaxToolOutputBytes, logger)
	registry := gateway.NewRegistry(runner, sqlite.NewDeviceRepository(db), cfg.ToolBin, config.RegisterTimeout, logger)
	orchestrator := gateway.NewOrchestrator(runner, sqlite.NewBuildRepository(db), cfg.ToolBin, config.BuildTimeout, logger)

	h := newHandler(registry, orchestrator, cfg, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		handler: h,
		http:    httpSrv,
		db:      db,
		logger:  logger,
	}, nil
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("gateway listening")

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully takes down the HTTP server and releases the state
// store with it.
func (s *Server) Shutdown(ctx context.Context) error {
	defer sqlite.CloseDB(s.db)
	return s.http.Shutdown(ctx)
}
