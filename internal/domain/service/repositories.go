/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/guipratiko/Clerky-app/internal/domain/model"
)

// DeviceRepository defines the interface for enrolled device persistence.
// Membership is monotonic: devices are added once and never removed.
type DeviceRepository interface {
	FindByUDID(ctx context.Context, udid string) (*model.Device, error)
	Create(ctx context.Context, d *model.Device) error
}

// BuildRepository defines the interface for build record persistence.
// At most one record exists per UDID.
type BuildRepository interface {
	FindByUDID(ctx context.Context, udid string) (*model.Build, error)
	Create(ctx context.Context, b *model.Build) error
	UpdateBuildID(ctx context.Context, udid, buildID string) error
	DeleteByUDID(ctx context.Context, udid string) error
}
