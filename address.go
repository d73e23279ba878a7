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
	"fmt"
	"strconv"
	"strings"
)

// Address is a 16-bit variable pointer (VP) on the display. On the wire it
// travels as a high byte followed by a low byte.
type Address uint16

// Well-known system addresses
const (
	// AddrPicSet is the page switch register
	AddrPicSet Address = 0x0084
	// AddrBuzzer is the default buzzer control VP
	AddrBuzzer Address = 0x0084
	// AddrCurveBuffer is the curve (trend chart) buffer control register
	AddrCurveBuffer Address = 0x0310
	// AddrCurveClear clears all curve channels
	AddrCurveClear Address = 0x0301
	// AddrVersion holds the firmware version words
	AddrVersion Address = 0x000F
)

// MergeAddress combines a high and low byte into an Address
func MergeAddress(high, low byte) Address {
	return Address(uint16(high)<<8 | uint16(low))
}

// SplitAddress returns the high and low bytes of addr
func SplitAddress(addr Address) (high, low byte) {
	return byte(addr >> 8), byte(addr)
}

// Bytes returns the address in wire order
func (a Address) Bytes() []byte {
	high, low := SplitAddress(a)
	return []byte{high, low}
}

func (a Address) String() string {
	return Hex16(uint16(a))
}

// Hex16 formats a 16-bit value as 0x followed by four upper-case hex digits
func Hex16(value uint16) string {
	return fmt.Sprintf("0x%04X", value)
}

// ParseAddress parses a hex address such as "0x5000", "5000" or "h5000"
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(trimmed, "0x"), strings.HasPrefix(trimmed, "0X"):
		trimmed = trimmed[2:]
	case strings.HasPrefix(trimmed, "h"), strings.HasPrefix(trimmed, "H"):
		trimmed = trimmed[1:]
	}
	v, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: address %q: %w", ErrInvalidParameter, s, err)
	}
	return Address(v), nil
}
