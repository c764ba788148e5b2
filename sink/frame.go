// Copyright (C) 2025, Rafael Caricio <rafael@caricio.com>
// SPDX-License-Identifier: MPL-2.0

package sink

import "time"

// Frame is an immutable view of one raw video frame. The sink never
// mutates Data; the caller owns the buffer and may reuse it once Render
// returns.
type Frame struct {
	// Data is the raw frame payload in the negotiated byte layout.
	Data []byte

	// PTS is the monotonic presentation timestamp of the frame.
	PTS time.Duration

	// Duration is the nominal display duration of the frame.
	Duration time.Duration
}
