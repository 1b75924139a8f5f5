/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gateway

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guipratiko/Clerky-app/internal/domain"
	"github.com/guipratiko/Clerky-app/internal/domain/model"
	"github.com/guipratiko/Clerky-app/internal/domain/service"
)

var buildIDPattern = regexp.MustCompile(`(?i)\bbuild id:[ \t]*([0-9a-z-]+)`)

// Orchestrator requests remote builds, at most one tracked record per
// device for the process lifetime. Records are never evicted.
type Orchestrator struct {
	runner  CommandRunner
	builds  service.BuildRepository
	tool    string
	timeout time.Duration
	logger  zerolog.Logger

	// mu serializes the check-then-claim step so two concurrent triggers
	// for the same fresh udid cannot both reach the subprocess.
	mu sync.Mutex
}

func NewOrchestrator(runner CommandRunner, builds service.BuildRepository, tool string, timeout time.Duration, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		runner:  runner,
		builds:  builds,
		tool:    tool,
		timeout: timeout,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Trigger asks the external tool for a build. The returned bool reports the
// already-pending path: a record for udid existed (or was claimed by a
// concurrent trigger) and no subprocess ran.
//
// A placeholder record is inserted before the subprocess call and removed
// again on failure, so a failed trigger leaves no state and can be retried.
func (o *Orchestrator) Trigger(ctx context.Context, udid string) (*model.Build, bool, error) {
	udid = strings.TrimSpace(udid)
	if udid == "" {
		return nil, false, ErrUDIDRequired
	}

	o.mu.Lock()
	existing, err := o.builds.FindByUDID(ctx, udid)
	if err == nil {
		o.mu.Unlock()
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		o.mu.Unlock()
		return nil, false, err
	}

	claim := &model.Build{
		UDID:      udid,
		BuildID:   model.BuildIDUnknown,
		Status:    model.BuildStatusPending,
		StartedAt: time.Now().UTC(),
	}
	if err := o.builds.Create(ctx, claim); err != nil {
		o.mu.Unlock()
		return nil, false, err
	}
	o.mu.Unlock()

	out, err := o.runner.Run(ctx, o.timeout, o.tool,
		"ios", "adhoc", "udid:"+udid, "profile:ad-hoc", "async:true")
	if err != nil {
		// Roll back the claim even when the request context died with the
		// subprocess, otherwise the udid stays blocked forever.
		if derr := o.builds.DeleteByUDID(context.WithoutCancel(ctx), udid); derr != nil {
			o.logger.Error().Err(derr).Str("udid", udid).Msg("failed to roll back build claim")
		}
		return nil, false, err
	}

	if id, ok := parseBuildID(out.Stdout); ok {
		if err := o.builds.UpdateBuildID(ctx, udid, id); err != nil {
			return nil, false, err
		}
		claim.BuildID = id
	}

	o.logger.Info().Str("udid", udid).Str("build_id", claim.BuildID).Msg("build triggered")
	return claim, false, nil
}

// Status is a pure read of the build record table.
func (o *Orchestrator) Status(ctx context.Context, udid string) (*model.Build, error) {
	udid = strings.TrimSpace(udid)
	if udid == "" {
		return nil, ErrUDIDRequired
	}
	return o.builds.FindByUDID(ctx, udid)
}

// parseBuildID extracts the "Build ID: <token>" line of the tool output.
func parseBuildID(stdout string) (string, bool) {
	m := buildIDPattern.FindStringSubmatch(stdout)
	if m == nil {
		return "", false
	}
	return m[1], true
}
