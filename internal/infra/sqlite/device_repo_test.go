/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guipratiko/Clerky-app/internal/domain"
	"github.com/guipratiko/Clerky-app/internal/domain/model"
)

func TestSQLite_DeviceCreateFind_OK(t *testing.T) {
	ctx := context.Background()

	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewDeviceRepository(db)

	now := time.Now().UTC().Truncate(time.Second)
	d := &model.Device{
		UDID:         "00008030-001A2B3C4D5E6F7G",
		Name:         "Device-5E6F7G",
		RegisteredAt: now,
	}

	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if d.ID == 0 {
		t.Fatalf("Create did not set ID")
	}

	got, err := repo.FindByUDID(ctx, d.UDID)
	if err != nil {
		t.Fatalf("FindByUDID error: %v", err)
	}

	if got.UDID != d.UDID {
		t.Fatalf("UDID mismatch: got %v want %v", got.UDID, d.UDID)
	}
	if got.Name != d.Name {
		t.Fatalf("Name mismatch: got %v want %v", got.Name, d.Name)
	}
	if !got.RegisteredAt.Equal(d.RegisteredAt) {
		t.Fatalf("RegisteredAt mismatch: got %v want %v", got.RegisteredAt, d.RegisteredAt)
	}
}

func TestSQLite_DeviceFind_NotFound_And_DuplicateInsert(t *testing.T) {
	ctx := context.Background()

	db, err := InitDB(ctx, ":memory:")
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	defer CloseDB(db)

	repo := NewDeviceRepository(db)

	// Not found
	_, err = repo.FindByUDID(ctx, "missing")
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}

	// Duplicate UDID must be rejected by the unique constraint
	now := time.Now().UTC().Truncate(time.Second)
	d := &model.Device{UDID: "dup-udid", Name: "Device-dup", RegisteredAt: now}
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create(ctx, &model.Device{UDID: "dup-udid", Name: "again", RegisteredAt: now}); err == nil {
		t.Fatalf("expected unique constraint violation, got nil")
	}
}
