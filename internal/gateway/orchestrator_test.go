/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/guipratiko/Clerky-app/internal/domain"
	"github.com/guipratiko/Clerky-app/internal/domain/model"
	"github.com/guipratiko/Clerky-app/internal/infra/sqlite"
)

func newTestOrchestrator(t *testing.T, runner CommandRunner) *Orchestrator {
	t.Helper()

	db, err := sqlite.InitDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	t.Cleanup(func() { sqlite.CloseDB(db) })

	return NewOrchestrator(runner, sqlite.NewBuildRepository(db), "fastlane", 60*time.Second, zerolog.Nop())
}

func TestOrchestrator_Trigger_ParsesBuildID(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{out: Output{Stdout: "Submitting...\nBuild ID: 7f3a-22\nDone.\n"}}
	orch := newTestOrchestrator(t, runner)

	build, alreadyPending, err := orch.Trigger(ctx, "X")
	assert.Nil(t, err)
	assert.False(t, alreadyPending)
	assert.Equal(t, "7f3a-22", build.BuildID)
	assert.Equal(t, model.BuildStatusPending, build.Status)
	assert.Equal(t, 1, runner.callCount())

	// Second trigger for the same device returns the stored record and
	// never reaches the tool.
	again, alreadyPending, err := orch.Trigger(ctx, "X")
	assert.Nil(t, err)
	assert.True(t, alreadyPending)
	assert.Equal(t, "7f3a-22", again.BuildID)
	assert.Equal(t, 1, runner.callCount())

	// Status reads the same record.
	got, err := orch.Status(ctx, "X")
	assert.Nil(t, err)
	assert.Equal(t, "7f3a-22", got.BuildID)
	assert.Equal(t, model.BuildStatusPending, got.Status)
}

func TestOrchestrator_Trigger_EmptyUDID(t *testing.T) {
	runner := &fakeRunner{}
	orch := newTestOrchestrator(t, runner)

	_, _, err := orch.Trigger(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrUDIDRequired))
	assert.Equal(t, 0, runner.callCount())
}

func TestOrchestrator_Trigger_NoBuildIDInOutput(t *testing.T) {
	runner := &fakeRunner{out: Output{Stdout: "queued without identifier\n"}}
	orch := newTestOrchestrator(t, runner)

	build, _, err := orch.Trigger(context.Background(), "Y")
	assert.Nil(t, err)
	assert.Equal(t, model.BuildIDUnknown, build.BuildID)
}

func TestOrchestrator_Trigger_FailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{
		err: &ToolError{Tool: "fastlane", Stderr: "gym crashed", Err: errors.New("exit status 1")},
	}
	orch := newTestOrchestrator(t, runner)

	_, _, err := orch.Trigger(ctx, "Z")
	var toolErr *ToolError
	assert.True(t, errors.As(err, &toolErr))

	// The claim was rolled back: status knows nothing and a retry reaches
	// the tool again.
	_, err = orch.Status(ctx, "Z")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, _, err = orch.Trigger(ctx, "Z")
	assert.NotNil(t, err)
	assert.Equal(t, 2, runner.callCount())
}

func TestOrchestrator_Trigger_TimeoutLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{err: fmt.Errorf("fastlane did not finish within 60s: %w", ErrRunTimeout)}
	orch := newTestOrchestrator(t, runner)

	_, _, err := orch.Trigger(ctx, "T")
	assert.True(t, errors.Is(err, ErrRunTimeout))

	_, err = orch.Status(ctx, "T")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestOrchestrator_Status_UnknownDevice(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeRunner{})

	_, err := orch.Status(context.Background(), "never-seen")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestOrchestrator_Trigger_ConcurrentDuplicateShortCircuits(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{
		out:     Output{Stdout: "Build ID: abc-1\n"},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	orch := newTestOrchestrator(t, runner)

	done := make(chan error, 1)
	go func() {
		_, _, err := orch.Trigger(ctx, "W")
		done <- err
	}()

	// While the first trigger sits in the subprocess, the duplicate must
	// observe the placeholder claim and take the already-pending path.
	<-runner.started
	build, alreadyPending, err := orch.Trigger(ctx, "W")
	assert.Nil(t, err)
	assert.True(t, alreadyPending)
	assert.Equal(t, model.BuildIDUnknown, build.BuildID)
	assert.Equal(t, model.BuildStatusPending, build.Status)
	assert.Equal(t, 1, runner.callCount())

	close(runner.block)
	assert.Nil(t, <-done)

	got, err := orch.Status(ctx, "W")
	assert.Nil(t, err)
	assert.Equal(t, "abc-1", got.BuildID)
}

func TestParseBuildID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Build ID: 7f3a-22", "7f3a-22", true},
		{"build id: ABC123", "ABC123", true},
		{"noise\nBUILD ID:\t42\nnoise", "42", true},
		{"no identifier here", "", false},
		{"Build ID:", "", false},
	}
	for _, c := range cases {
		got, ok := parseBuildID(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}
