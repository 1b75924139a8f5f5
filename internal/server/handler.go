/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guipratiko/Clerky-app/internal/config"
	"github.com/guipratiko/Clerky-app/internal/domain"
	"github.com/guipratiko/Clerky-app/internal/gateway"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MiB is plenty for a udid and a name.
)

type handler struct {
	mux          *http.ServeMux
	registry     *gateway.Registry
	orchestrator *gateway.Orchestrator
	manifestPath string
	publicDir    string
	logger       zerolog.Logger
}

func newHandler(registry *gateway.Registry, orchestrator *gateway.Orchestrator, cfg config.Config, logger zerolog.Logger) *handler {
	h := &handler{
		registry:     registry,
		orchestrator: orchestrator,
		manifestPath: cfg.ManifestPath,
		publicDir:    cfg.PublicDir,
		logger:       logger.With().Str("component", "http").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /manifest.plist", h.serveManifest)
	mux.HandleFunc("POST /api/register-device", h.registerDevice)
	mux.HandleFunc("POST /api/trigger-build", h.triggerBuild)
	mux.HandleFunc("GET /api/build-status/{udid}", h.buildStatus)
	mux.HandleFunc("GET /device-info", h.deviceInfo)
	mux.HandleFunc("GET /{path...}", h.serveStatic)
	h.mux = mux

	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h.mux.ServeHTTP(rec, r)

	h.logger.Info().
		Str("request_id", uuid.NewString()).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("took", time.Since(start)).
		Msg("request")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type registerRequest struct {
	UDID       string `json:"udid"`
	DeviceName string `json:"deviceName"`
}

type registerResponse struct {
	Success           bool   `json:"success"`
	UDID              string `json:"udid"`
	AlreadyRegistered bool   `json:"alreadyRegistered,omitempty"`
	Output            string `json:"output,omitempty"`
}

type triggerRequest struct {
	UDID string `json:"udid"`
}

type triggerResponse struct {
	Success   bool      `json:"success"`
	BuildID   string    `json:"buildId"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	Note      string    `json:"note,omitempty"`
}

type statusFoundResponse struct {
	Success   bool      `json:"success"`
	UDID      string    `json:"udid"`
	BuildID   string    `json:"buildId"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

type statusMissingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
}

func (h *handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	reg, err := h.registry.Register(r.Context(), req.UDID, req.DeviceName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, registerResponse{
		Success:           true,
		UDID:              reg.UDID,
		AlreadyRegistered: reg.AlreadyRegistered,
		Output:            reg.Output,
	})
}

func (h *handler) triggerBuild(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	build, alreadyPending, err := h.orchestrator.Trigger(r.Context(), req.UDID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := triggerResponse{
		Success:   true,
		BuildID:   build.BuildID,
		Status:    build.Status,
		StartedAt: build.StartedAt,
	}
	if alreadyPending {
		resp.Note = "a build for this device is already in progress"
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) buildStatus(w http.ResponseWriter, r *http.Request) {
	udid := r.PathValue("udid")

	build, err := h.orchestrator.Status(r.Context(), udid)
	if err != nil {
		// An unknown device is a normal steady state for a status poll,
		// not an error; the installer probes before it ever triggers.
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, gateway.ErrUDIDRequired) {
			h.writeJSON(w, http.StatusOK, statusMissingResponse{
				Success: false,
				Message: "no build found for this device",
			})
			return
		}
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, statusFoundResponse{
		Success:   true,
		UDID:      build.UDID,
		BuildID:   build.BuildID,
		Status:    build.Status,
		StartedAt: build.StartedAt,
	})
}

// decodeBody reads a size-limited JSON body into dst, answering 400 itself
// when the body is unusable.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed reading request body")
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
		return false
	}
	if err := r.Body.Close(); err != nil {
		h.logger.Warn().Err(err).Msg("failed closing request body")
	}
	if len(body) == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body required"})
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	var toolErr *gateway.ToolError

	switch {
	case errors.Is(err, gateway.ErrUDIDRequired):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "identifier required"})
	case errors.As(err, &toolErr):
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "build tool failed",
			Details: toolErr.Error(),
			Stderr:  toolErr.Stderr,
		})
	case errors.Is(err, gateway.ErrRunTimeout):
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "build tool timed out",
			Details: err.Error(),
		})
	case errors.Is(err, gateway.ErrOutputLimit):
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "build tool produced too much output",
			Details: err.Error(),
		})
	default:
		h.logger.Error().Err(err).Msg("unhandled error")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal error",
			Details: err.Error(),
		})
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed writing response body")
	}
}
