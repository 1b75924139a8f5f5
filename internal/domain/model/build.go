/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// BuildStatusPending is the only status this service ever records.
// Completion is tracked by the build farm, not by us.
const BuildStatusPending = "pending"

// BuildIDUnknown is stored when the build tool's output carries no
// recognizable build identifier.
const BuildIDUnknown = "unknown"

// Build is the most recently requested build for one device.
type Build struct {
	ID        int64
	UDID      string
	BuildID   string
	Status    string
	StartedAt time.Time
}
