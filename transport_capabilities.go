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

package dwin

import (
	"time"
)

// TransportCapability represents specific capabilities or behaviors of a transport
type TransportCapability string

const (
	// CapabilityInputFlush indicates the transport can drop its whole input
	// buffer in one call (see InputFlusher)
	CapabilityInputFlush TransportCapability = "input_flush"
)

// TransportCapabilityChecker defines an interface for querying transport capabilities
type TransportCapabilityChecker interface {
	// HasCapability returns true if the transport has the specified capability
	HasCapability(capability TransportCapability) bool
}

// InputFlusher is implemented by transports that can discard everything
// buffered on the inbound side at once. It returns the number of bytes dropped.
type InputFlusher interface {
	FlushInput() (int, error)
}

// LinkTimingProvider lets a transport supply its own timing defaults
type LinkTimingProvider interface {
	LinkTiming() *LinkTiming
}

// LinkTiming contains transport dependent delays used by the Device
type LinkTiming struct {
	// WriteSettle is how long to wait after a write before draining acks
	WriteSettle time.Duration
	// PollInterval is the sleep between polls in blocking listens
	PollInterval time.Duration
	// FrameTimeout bounds how long a partial notification frame is kept
	FrameTimeout time.Duration
}

// getLinkTiming returns timing for the given transport
func getLinkTiming(t Transport) *LinkTiming {
	if provider, ok := t.(LinkTimingProvider); ok {
		if timing := provider.LinkTiming(); timing != nil {
			return timing
		}
	}

	switch t.Type() {
	case TransportUART:
		// The display answers a write with an ack well inside 20ms at 115200 baud
		return &LinkTiming{
			WriteSettle:  20 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
			FrameTimeout: 100 * time.Millisecond,
		}
	case TransportMock:
		return &LinkTiming{
			WriteSettle:  0,
			PollInterval: time.Millisecond,
			FrameTimeout: 50 * time.Millisecond,
		}
	default:
		return &LinkTiming{
			WriteSettle:  50 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
			FrameTimeout: 200 * time.Millisecond,
		}
	}
}

// hasCapability checks if the transport has the specified capability
func hasCapability(t Transport, capability TransportCapability) bool {
	if checker, ok := t.(TransportCapabilityChecker); ok {
		return checker.HasCapability(capability)
	}
	return false
}
