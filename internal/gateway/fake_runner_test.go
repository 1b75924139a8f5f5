/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gateway

import (
	"context"
	"sync"
	"time"
)

// fakeRunner stands in for the build tool. When block is non-nil, Run
// signals started and then waits, which lets tests hold a subprocess open.
type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	out     Output
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, _ time.Duration, _ string, _ ...string) (Output, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.out, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
