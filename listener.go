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
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-dwin/internal/frame"
)

// Event is one decoded notification frame. An Event with Valid false means
// no complete notification was available.
type Event struct {
	// Reserved holds payload bytes 4..N-1, whose meaning depends on the
	// control that sent the notification (usually the word count).
	Reserved []byte
	// Length is the declared LEN of the frame
	Length    int
	Valid     bool
	Command   byte
	StartAddr byte
	EndAddr   byte
	DataVal   byte
}

// Address returns the VP the notification refers to
func (e Event) Address() Address {
	return MergeAddress(e.StartAddr, e.EndAddr)
}

func (e Event) String() string {
	if !e.Valid {
		return "Event{}"
	}
	return fmt.Sprintf("Event{cmd=0x%02X addr=%s data=0x%02X len=%d}",
		e.Command, e.Address(), e.DataVal, e.Length)
}

type decoderState int

const (
	stateIdle decoderState = iota
	stateAwaitingLength
	stateCollectingPayload
)

func (s decoderState) String() string {
	switch s {
	case stateAwaitingLength:
		return "awaiting-length"
	case stateCollectingPayload:
		return "collecting-payload"
	default:
		return "idle"
	}
}

// decoder holds a partially received notification between polls. started
// is when the sync byte (AwaitingLength) or the length byte
// (CollectingPayload) was read.
type decoder struct {
	started time.Time
	now     func() time.Time
	partial []byte
	event   Event
	state   decoderState
}

func (dec *decoder) reset() {
	dec.state = stateIdle
	dec.partial = nil
	dec.event = Event{}
	dec.started = time.Time{}
}

func (dec *decoder) clock() time.Time {
	if dec.now != nil {
		return dec.now()
	}
	return time.Now()
}

// beginFrame starts collecting a frame with declared length n
func (dec *decoder) beginFrame(n byte) {
	dec.state = stateCollectingPayload
	dec.started = dec.clock()
	dec.partial = make([]byte, 0, int(n))
	dec.event = Event{Length: int(n)}
}

// accept takes one payload byte and reports whether the frame is complete
func (dec *decoder) accept(b byte) bool {
	dec.partial = append(dec.partial, b)
	i := len(dec.partial)
	n := dec.event.Length

	if i == 1 {
		dec.event.Command = b
	}
	if i == 2 {
		dec.event.StartAddr = b
	}
	if i == 3 {
		dec.event.EndAddr = b
	}
	if i >= 4 && i < n {
		dec.event.Reserved = append(dec.event.Reserved, b)
	}
	if i == n {
		dec.event.DataVal = b
		dec.event.Valid = true
		return true
	}
	return false
}

// PollEvent consumes whatever notification bytes are buffered and returns
// the event once a frame is complete. It never blocks: with nothing to
// decode it returns an Event with Valid false and a nil error. A frame that
// stays incomplete longer than FrameTimeout is dropped and reported as a
// *FrameTimeoutError.
func (d *Device) PollEvent() (Event, error) {
	dec := &d.decoder

	for {
		available, err := d.transport.Available()
		if err != nil {
			return Event{}, NewTransportError("available", d.port, err, ErrorTypeTransient)
		}
		if available == 0 {
			break
		}

		for ; available > 0; available-- {
			b, err := d.readByte()
			if err != nil {
				return Event{}, err
			}

			switch dec.state {
			case stateIdle, stateAwaitingLength:
				if frame.IsSync(b) {
					// one sync byte per poll
					dec.state = stateAwaitingLength
					dec.started = dec.clock()
					return Event{}, nil
				}
				if b == 0 {
					debugf("dropped zero length byte")
					dec.reset()
					continue
				}
				dec.beginFrame(b)
			case stateCollectingPayload:
				if dec.accept(b) {
					event := dec.event
					debugFrame("rx", append([]byte{byte(event.Length)}, dec.partial...))
					dec.reset()
					return event, nil
				}
			}
		}
	}

	switch dec.state {
	case stateAwaitingLength:
		// a sync byte with nothing after it holds no data worth reporting
		if dec.clock().Sub(dec.started) > d.config.FrameTimeout {
			debugf("sync byte not followed by a length, back to idle")
			dec.reset()
		}
	case stateCollectingPayload:
		elapsed := dec.clock().Sub(dec.started)
		if elapsed > d.config.FrameTimeout {
			timeoutErr := &FrameTimeoutError{
				Partial:  dec.partial,
				Elapsed:  elapsed,
				Length:   dec.event.Length,
				Received: len(dec.partial),
			}
			dec.reset()
			Logger().Warn().Int("len", timeoutErr.Length).Int("received", timeoutErr.Received).
				Msg("dropped incomplete notification")
			return Event{}, timeoutErr
		}
	}
	return Event{}, nil
}

// Listen blocks until a notification arrives
func (d *Device) Listen() (Event, error) {
	return d.ListenContext(context.Background())
}

// ListenContext polls every PollInterval until a notification arrives, a
// poll fails or ctx is done
func (d *Device) ListenContext(ctx context.Context) (Event, error) {
	for {
		event, err := d.PollEvent()
		if err != nil || event.Valid {
			return event, err
		}
		if err := sleepContext(ctx, d.config.PollInterval); err != nil {
			return Event{}, fmt.Errorf("listen cancelled: %w", err)
		}
	}
}
