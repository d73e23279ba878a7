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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ZaparooProject/go-dwin/internal/frame"
)

// MaxStringLength is the largest text field a single frame can carry
const MaxStringLength = frame.MaxStringLength

// FrameKind identifies the shape of an outbound frame
type FrameKind int

const (
	FrameFloatWrite FrameKind = iota
	FrameInt16Write
	FrameStringWrite
	FramePageSwitch
	FrameBuzzerSet
	FrameCurveAppend
	FrameCurveClear
	FrameTextRead
	FrameRawWrite
)

var frameKindNames = map[FrameKind]string{
	FrameFloatWrite:  "FloatWrite",
	FrameInt16Write:  "Int16Write",
	FrameStringWrite: "StringWrite",
	FramePageSwitch:  "PageSwitch",
	FrameBuzzerSet:   "BuzzerSet",
	FrameCurveAppend: "CurveAppend",
	FrameCurveClear:  "CurveClear",
	FrameTextRead:    "TextRead",
	FrameRawWrite:    "RawWrite",
}

func (k FrameKind) String() string {
	if name, ok := frameKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FrameKind(%d)", int(k))
}

// Command is one outbound frame before encoding. Body is everything after
// the command byte: the target address followed by the data.
type Command struct {
	Body    []byte
	Kind    FrameKind
	Code    byte
	Address Address
}

// Length returns the LEN field of the encoded frame
func (c Command) Length() int {
	return 1 + len(c.Body)
}

// Bytes encodes the command as a complete frame
func (c Command) Bytes() []byte {
	return frame.Build(c.Code, c.Body)
}

func newWrite(kind FrameKind, addr Address, data ...byte) Command {
	body := make([]byte, 0, frame.AddressLength+len(data))
	body = append(body, addr.Bytes()...)
	body = append(body, data...)
	return Command{Kind: kind, Code: frame.CmdWriteVP, Address: addr, Body: body}
}

// FloatBytes returns the IEEE-754 single precision encoding of v in the
// display's byte order (most significant byte first).
func FloatBytes(v float32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// NewFloatWrite builds a 4-byte float variable write (LEN 7)
func NewFloatWrite(addr Address, v float32) Command {
	return newWrite(FrameFloatWrite, addr, FloatBytes(v)...)
}

// NewInt16Write builds a one word variable write, high byte first (LEN 5)
func NewInt16Write(addr Address, v int16) Command {
	u := uint16(v)
	return newWrite(FrameInt16Write, addr, byte(u>>8), byte(u))
}

// NewStringWrite builds a text variable write. The text is cut to maxLen
// bytes and padded with 0xFF up to maxLen (LEN 3+maxLen). The returned bool
// reports whether the text was cut.
func NewStringWrite(addr Address, text string, maxLen int) (Command, bool, error) {
	if err := validateFieldLength("text", maxLen); err != nil {
		return Command{}, false, err
	}
	data := make([]byte, maxLen)
	n := copy(data, text)
	for i := n; i < maxLen; i++ {
		data[i] = frame.Fill
	}
	return newWrite(FrameStringWrite, addr, data...), len(text) > maxLen, nil
}

// NewPageSwitch builds the page switch command (LEN 7)
func NewPageSwitch(page byte) Command {
	return newWrite(FramePageSwitch, AddrPicSet, 0x5A, 0x01, 0x00, page)
}

// NewBuzzerSet builds the buzzer on/off write (LEN 5)
func NewBuzzerSet(addr Address, on bool) Command {
	var state byte
	if on {
		state = 1
	}
	return newWrite(FrameBuzzerSet, addr, 0x00, state)
}

// NewCurveAppend appends one point with the given value to curve channel 0
// of the trend chart buffer (LEN 11)
func NewCurveAppend(value byte) Command {
	return newWrite(FrameCurveAppend, AddrCurveBuffer,
		0x5A, 0xA5, // buffer write marker
		0x01, 0x00, // one block, reserved
		0x00, 0x01, // channel 0, one word
		0x00, value)
}

// NewCurveClear clears all trend chart channels (LEN 5)
func NewCurveClear() Command {
	return newWrite(FrameCurveClear, AddrCurveClear, 0x00, 0x00)
}

// NewTextRead builds a variable read request for length units (LEN 4)
func NewTextRead(addr Address, length byte) Command {
	body := append(addr.Bytes(), length)
	return Command{Kind: FrameTextRead, Code: frame.CmdReadVP, Address: addr, Body: body}
}

// NewRawWrite builds a variable write with arbitrary data
func NewRawWrite(addr Address, data []byte) (Command, error) {
	if len(data) > frame.MaxStringLength {
		return Command{}, fmt.Errorf("%w: %d data bytes exceed %d", ErrInvalidParameter, len(data), frame.MaxStringLength)
	}
	return newWrite(FrameRawWrite, addr, data...), nil
}
