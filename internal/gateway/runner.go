/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output carries the captured streams of one tool invocation.
type Output struct {
	Stdout string
	Stderr string
}

// CommandRunner executes one external command and captures its output.
// The registry and the orchestrator depend on this interface so tests can
// substitute the build tool.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Output, error)
}

// Runner invokes external commands with a wall-clock timeout and a combined
// stdout+stderr size cap. This is the only place the service blocks on
// external, untrusted work.
type Runner struct {
	// Dir is the working directory every command runs from. The build tool
	// expects the project root, one level above the service directory.
	Dir string
	// MaxOutputBytes caps stdout and stderr combined. A command exceeding
	// the cap is killed.
	MaxOutputBytes int64
	Logger         zerolog.Logger
}

func NewRunner(dir string, maxOutputBytes int64, logger zerolog.Logger) *Runner {
	return &Runner{
		Dir:            dir,
		MaxOutputBytes: maxOutputBytes,
		Logger:         logger.With().Str("component", "runner").Logger(),
	}
}

func (r *Runner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Output, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	budget := &outputCap{remaining: r.MaxOutputBytes, kill: cancel}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = budget.tee(&stdout)
	cmd.Stderr = budget.tee(&stderr)

	r.Logger.Debug().Str("cmd", name).Strs("args", args).Str("dir", r.Dir).Msg("exec")
	start := time.Now()
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	switch {
	case budget.hit():
		return out, fmt.Errorf("%s produced more than %d bytes: %w", name, r.MaxOutputBytes, ErrOutputLimit)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%s did not finish within %s: %w", name, timeout, ErrRunTimeout)
	case err != nil:
		return out, &ToolError{Tool: name, Stderr: strings.TrimSpace(out.Stderr), Err: err}
	}

	r.Logger.Debug().Str("cmd", name).Dur("took", time.Since(start)).Msg("exec done")
	return out, nil
}

// outputCap enforces one byte budget across both stream writers. On
// overflow it stops buffering and kills the command via the context.
type outputCap struct {
	mu        sync.Mutex
	remaining int64
	exceeded  bool
	kill      context.CancelFunc
}

func (c *outputCap) hit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exceeded
}

func (c *outputCap) tee(dst *bytes.Buffer) *cappedWriter {
	return &cappedWriter{budget: c, dst: dst}
}

type cappedWriter struct {
	budget *outputCap
	dst    *bytes.Buffer
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	w.budget.mu.Lock()
	defer w.budget.mu.Unlock()
	if w.budget.exceeded {
		return len(p), nil
	}
	keep := p
	if int64(len(keep)) > w.budget.remaining {
		keep = keep[:w.budget.remaining]
		w.budget.exceeded = true
	}
	w.budget.remaining -= int64(len(keep))
	w.dst.Write(keep)
	if w.budget.exceeded {
		w.budget.kill()
	}
	return len(p), nil
}
