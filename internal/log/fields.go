// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"

	// Process fields
	FieldPID      = "pid"
	FieldCommand  = "cmd"
	FieldExitCode = "exit_code"
	FieldSignal   = "signal"
	FieldCause    = "cause"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Frame fields
	FieldPTS    = "pts"
	FieldBytes  = "bytes"
	FieldFrames = "frames"
)
