/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrUDIDRequired = errors.New("identifier required")
	ErrRunTimeout   = errors.New("command timed out")
	ErrOutputLimit  = errors.New("command output limit exceeded")
)

// ToolError reports a non-zero exit from the external build tool, keeping
// the captured stderr for operator diagnostics.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
