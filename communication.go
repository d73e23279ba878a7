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
)

// WriteFloat writes a 32-bit float to a VP
func (d *Device) WriteFloat(addr Address, value float32) error {
	return d.WriteFloatContext(context.Background(), addr, value)
}

// WriteFloatContext is WriteFloat with context support
func (d *Device) WriteFloatContext(ctx context.Context, addr Address, value float32) error {
	return d.send(ctx, NewFloatWrite(addr, value))
}

// WriteInt16 writes a signed 16-bit integer to a VP
func (d *Device) WriteInt16(addr Address, value int16) error {
	return d.WriteInt16Context(context.Background(), addr, value)
}

// WriteInt16Context is WriteInt16 with context support
func (d *Device) WriteInt16Context(ctx context.Context, addr Address, value int16) error {
	return d.send(ctx, NewInt16Write(addr, value))
}

// WriteString writes text to a text VP of maxLen bytes, padding with 0xFF.
// Text longer than maxLen is cut; the frame is still sent and a
// *TruncationWarning is returned.
func (d *Device) WriteString(addr Address, text string, maxLen int) error {
	return d.WriteStringContext(context.Background(), addr, text, maxLen)
}

// WriteStringContext is WriteString with context support
func (d *Device) WriteStringContext(ctx context.Context, addr Address, text string, maxLen int) error {
	cmd, truncated, err := NewStringWrite(addr, text, maxLen)
	if err != nil {
		return err
	}
	if err := d.send(ctx, cmd); err != nil {
		return err
	}
	if truncated {
		return &TruncationWarning{Address: addr, Length: len(text), MaxLength: maxLen}
	}
	return nil
}

// WriteVP writes raw data to a VP
func (d *Device) WriteVP(addr Address, data []byte) error {
	return d.WriteVPContext(context.Background(), addr, data)
}

// WriteVPContext is WriteVP with context support
func (d *Device) WriteVPContext(ctx context.Context, addr Address, data []byte) error {
	cmd, err := NewRawWrite(addr, data)
	if err != nil {
		return err
	}
	return d.send(ctx, cmd)
}

// SetBuzzer turns the buzzer on or off
func (d *Device) SetBuzzer(on bool) error {
	return d.SetBuzzerContext(context.Background(), on)
}

// SetBuzzerContext is SetBuzzer with context support
func (d *Device) SetBuzzerContext(ctx context.Context, on bool) error {
	return d.send(ctx, NewBuzzerSet(d.config.BuzzerAddress, on))
}

// SwitchPage shows the given page
func (d *Device) SwitchPage(page byte) error {
	return d.SwitchPageContext(context.Background(), page)
}

// SwitchPageContext is SwitchPage with context support. Whatever the display
// echoes is read back and logged, not validated.
func (d *Device) SwitchPageContext(ctx context.Context, page byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before page switch: %w", err)
	}
	if err := d.writeFrame(NewPageSwitch(page)); err != nil {
		return err
	}

	if err := sleepContext(ctx, d.config.WriteSettle); err != nil {
		return err
	}
	echo, err := d.readBuffered()
	if err != nil {
		return err
	}

	d.page.Store(int32(page))
	Logger().Debug().Uint8("page", page).Hex("echo", echo).Msg("page switch")
	return nil
}

// AppendCurvePoint pushes one value onto the trend chart
func (d *Device) AppendCurvePoint(value byte) error {
	return d.AppendCurvePointContext(context.Background(), value)
}

// AppendCurvePointContext is AppendCurvePoint with context support
func (d *Device) AppendCurvePointContext(ctx context.Context, value byte) error {
	return d.send(ctx, NewCurveAppend(value))
}

// ClearCurve clears the trend chart
func (d *Device) ClearCurve() error {
	return d.ClearCurveContext(context.Background())
}

// ClearCurveContext is ClearCurve with context support
func (d *Device) ClearCurveContext(ctx context.Context) error {
	return d.send(ctx, NewCurveClear())
}

// readBuffered reads and returns every byte currently buffered
func (d *Device) readBuffered() ([]byte, error) {
	var out []byte
	for {
		n, err := d.transport.Available()
		if err != nil {
			return out, NewTransportError("available", d.port, err, ErrorTypeTransient)
		}
		if n == 0 {
			return out, nil
		}
		for i := 0; i < n; i++ {
			b, err := d.readByte()
			if err != nil {
				return out, err
			}
			out = append(out, b)
		}
	}
}
