/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// Device is one enrolled installation target. The UDID is an opaque
// caller-supplied token and is never validated beyond non-emptiness.
type Device struct {
	ID           int64
	UDID         string
	Name         string
	RegisteredAt time.Time
}
