/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guipratiko/Clerky-app/internal/domain"
	"github.com/guipratiko/Clerky-app/internal/domain/model"
	"github.com/guipratiko/Clerky-app/internal/domain/service"
)

// Registry enrolls devices into the distribution profile exactly once per
// UDID. Membership is monotonic for the process lifetime.
type Registry struct {
	runner  CommandRunner
	devices service.DeviceRepository
	tool    string
	timeout time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Registration is the outcome of one register call.
type Registration struct {
	UDID              string
	Name              string
	AlreadyRegistered bool
	Output            string
}

func NewRegistry(runner CommandRunner, devices service.DeviceRepository, tool string, timeout time.Duration, logger zerolog.Logger) *Registry {
	return &Registry{
		runner:   runner,
		devices:  devices,
		tool:     tool,
		timeout:  timeout,
		logger:   logger.With().Str("component", "registry").Logger(),
		inflight: make(map[string]struct{}),
	}
}

// Register enrolls udid with the external tool unless it is already a
// member. The in-flight set claims the udid before the tool is invoked so
// two concurrent first-time calls cannot both reach the subprocess.
func (g *Registry) Register(ctx context.Context, udid, name string) (*Registration, error) {
	udid = strings.TrimSpace(udid)
	if udid == "" {
		return nil, ErrUDIDRequired
	}

	g.mu.Lock()
	dev, err := g.devices.FindByUDID(ctx, udid)
	if err == nil {
		g.mu.Unlock()
		return &Registration{UDID: udid, Name: dev.Name, AlreadyRegistered: true}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		g.mu.Unlock()
		return nil, err
	}
	if _, busy := g.inflight[udid]; busy {
		g.mu.Unlock()
		// Another request is enrolling this udid right now. The tool is
		// idempotent for registration, so report success rather than race it.
		return &Registration{UDID: udid, AlreadyRegistered: true, Output: "registration already in progress"}, nil
	}
	g.inflight[udid] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.inflight, udid)
		g.mu.Unlock()
	}()

	if strings.TrimSpace(name) == "" {
		name = defaultDeviceName(udid)
	}

	out, err := g.runner.Run(ctx, g.timeout, g.tool,
		"run", "register_device", "udid:"+udid, "name:"+name, "platform:ios")
	already := false
	if err != nil {
		if !alreadyKnownToTool(err, out) {
			return nil, err
		}
		// The tool rejected the udid because it is enrolled on the remote
		// side already. Absorb its failure and record the membership.
		g.logger.Info().Str("udid", udid).Msg("device already known to the build service")
		already = true
	}

	d := &model.Device{UDID: udid, Name: name, RegisteredAt: time.Now().UTC()}
	if err := g.devices.Create(ctx, d); err != nil {
		return nil, err
	}

	g.logger.Info().Str("udid", udid).Str("name", name).Bool("already", already).Msg("device registered")
	return &Registration{
		UDID:              udid,
		Name:              name,
		AlreadyRegistered: already,
		Output:            strings.TrimSpace(out.Stdout),
	}, nil
}

// defaultDeviceName derives a deterministic display name from the tail of
// the udid when the caller supplies none.
func defaultDeviceName(udid string) string {
	tail := udid
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return "Device-" + tail
}

// alreadyKnownToTool classifies a tool failure as the remote side's own
// idempotency rejection. The tool's error taxonomy is only observable as
// text, so substring matching is the whole contract here.
func alreadyKnownToTool(err error, out Output) bool {
	text := strings.ToLower(err.Error() + "\n" + out.Stdout + "\n" + out.Stderr)
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		text += "\n" + strings.ToLower(toolErr.Stderr)
	}
	return strings.Contains(text, "already registered") || strings.Contains(text, "already exists")
}
