// go-dwin
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dwin.
//
// go-dwin is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dwin is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dwin; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package polling

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational metrics for a Monitor
type Metrics struct {
	PollCycles      int64         // Total number of polling cycles
	Events          int64         // Notifications decoded
	FrameTimeouts   int64         // Partial frames dropped
	Errors          int64         // Transport and text read errors
	HandlerErrors   int64         // Errors returned by handlers
	Operations      int64         // Queued operations executed
	LastPollLatency time.Duration // Duration of last poll
}

type counters struct {
	pollCycles      atomic.Int64
	events          atomic.Int64
	frameTimeouts   atomic.Int64
	errors          atomic.Int64
	handlerErrors   atomic.Int64
	operations      atomic.Int64
	lastPollLatency atomic.Int64 // in nanoseconds
}

func (c *counters) snapshot() Metrics {
	return Metrics{
		PollCycles:      c.pollCycles.Load(),
		Events:          c.events.Load(),
		FrameTimeouts:   c.frameTimeouts.Load(),
		Errors:          c.errors.Load(),
		HandlerErrors:   c.handlerErrors.Load(),
		Operations:      c.operations.Load(),
		LastPollLatency: time.Duration(c.lastPollLatency.Load()),
	}
}
