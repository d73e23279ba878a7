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
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-dwin/internal/frame"
)

// ReadText requests a text variable and returns its content up to the first
// 0xFF. A timeout of zero uses the configured TextTimeout. When no complete
// response arrives in time the partial result is returned together with a
// *ReadTimeoutError, so an empty field can be told apart from a failed read.
func (d *Device) ReadText(addr Address, maxLen int, timeout time.Duration) (string, error) {
	return d.ReadTextContext(context.Background(), addr, maxLen, timeout)
}

// ReadTextContext is ReadText with context support. The read gives up at
// the earlier of the ctx deadline and the timeout.
func (d *Device) ReadTextContext(ctx context.Context, addr Address, maxLen int, timeout time.Duration) (string, error) {
	if err := validateFieldLength("read", maxLen); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = d.config.TextTimeout
	}

	if _, err := d.drain(); err != nil {
		return "", err
	}
	d.decoder.reset()

	if err := d.writeFrame(NewTextRead(addr, byte(maxLen))); err != nil {
		return "", err
	}

	text, err := d.collectText(ctx, addr, maxLen, timeout)

	// whatever is left would confuse the next poll
	if _, drainErr := d.drain(); drainErr != nil && err == nil {
		err = drainErr
	}
	return text, err
}

type textReader struct {
	buf      []byte
	frameLen int
	// seek counts the header bytes matched so far
	seek        int
	headerFound bool
}

// collectText waits for the read response and extracts the text
func (d *Device) collectText(ctx context.Context, addr Address, maxLen int, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	var r textReader
	for {
		done, err := d.stepText(&r, maxLen)
		if err != nil {
			return "", err
		}
		if done {
			debugf("text read at %s returned %d bytes", addr, len(r.buf))
			return string(r.buf), nil
		}

		// a ctx deadline ends the read like the timeout does
		remaining := time.Until(deadline)
		if remaining <= 0 || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return string(r.buf), &ReadTimeoutError{
				Partial:     string(r.buf),
				Timeout:     timeout,
				Address:     addr,
				HeaderFound: r.headerFound,
			}
		}
		if err := ctx.Err(); err != nil {
			return string(r.buf), fmt.Errorf("text read at %s cancelled: %w", addr, err)
		}
		if err := sleepContext(ctx, min(d.config.PollInterval, remaining)); err != nil &&
			!errors.Is(err, context.DeadlineExceeded) {
			return string(r.buf), fmt.Errorf("text read at %s cancelled: %w", addr, err)
		}
	}
}

// stepText makes as much progress as the buffered bytes allow and reports
// whether the text is complete
func (d *Device) stepText(r *textReader, maxLen int) (bool, error) {
	for !r.headerFound {
		available, err := d.transport.Available()
		if err != nil {
			return false, NewTransportError("available", d.port, err, ErrorTypeTransient)
		}
		if available < frame.HeaderLength-r.seek {
			return false, nil
		}
		b, err := d.readByte()
		if err != nil {
			return false, err
		}
		switch {
		case r.seek == 2:
			r.frameLen = int(b)
			r.headerFound = true
		case b == frame.Sync0:
			r.seek = 1
		case r.seek == 1 && b == frame.Sync1:
			r.seek = 2
		default:
			r.seek = 0
		}
	}

	body := min(maxLen+frame.TextEchoLength, r.frameLen)
	available, err := d.transport.Available()
	if err != nil {
		return false, NewTransportError("available", d.port, err, ErrorTypeTransient)
	}
	if available < body {
		return false, nil
	}

	for i := 0; i < min(frame.TextEchoLength, body); i++ {
		if _, err := d.readByte(); err != nil {
			return false, err
		}
	}
	for i := frame.TextEchoLength; i < body; i++ {
		b, err := d.readByte()
		if err != nil {
			return false, err
		}
		if b == frame.Fill {
			break
		}
		r.buf = append(r.buf, b)
	}
	return true, nil
}

func (d *Device) readByte() (byte, error) {
	b, err := d.transport.ReadByte()
	if err != nil {
		return 0, NewTransportError("read", d.port, fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
	}
	return b, nil
}
