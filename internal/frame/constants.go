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

// Package frame provides frame layout and protocol constants for the DGUS serial link
package frame

// Frame header bytes. Neither is ever a valid length value on the wire.
const (
	Sync0 = 0x5A
	Sync1 = 0xA5
)

// Command codes
const (
	CmdWriteVP = 0x82 // Write variable memory
	CmdReadVP  = 0x83 // Read variable memory
)

// Fill is the padding byte for string payloads and the terminator of text reads.
const Fill = 0xFF

// Frame size limits
const (
	HeaderLength    = 3   // Sync0 + Sync1 + LEN
	MaxBodyLength   = 255 // LEN is a single byte
	AddressLength   = 2
	MaxStringLength = MaxBodyLength - 1 - AddressLength
	TextEchoLength  = 3 // CMD + ADDR_H + ADDR_L echoed in read responses
)

// AckFrame is what the display sends after a variable write when
// acknowledgments are enabled ("OK").
var AckFrame = []byte{Sync0, Sync1, 0x03, CmdWriteVP, 0x4F, 0x4B}

// IsSync reports whether b is one of the two header bytes.
func IsSync(b byte) bool {
	return b == Sync0 || b == Sync1
}

// Build assembles a complete outbound frame: header, LEN, command and body.
// LEN is 1 + len(body). The caller guarantees len(body) < MaxBodyLength.
func Build(cmd byte, body []byte) []byte {
	out := make([]byte, 0, HeaderLength+1+len(body))
	out = append(out, Sync0, Sync1, byte(1+len(body)), cmd)
	return append(out, body...)
}
