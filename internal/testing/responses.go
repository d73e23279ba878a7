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

package testing

// Wire constants duplicated here so the helpers stay free of imports
const (
	sync0    = 0x5A
	sync1    = 0xA5
	cmdWrite = 0x82
	cmdRead  = 0x83
	fill     = 0xFF
)

// BuildAck returns the acknowledgment the display sends after a write
func BuildAck() []byte {
	return []byte{sync0, sync1, 0x03, cmdWrite, 0x4F, 0x4B}
}

// BuildNotification returns the frame the display sends when a control
// changes a VP: command, address, word count, then the value word
func BuildNotification(addr uint16, value byte) []byte {
	return BuildNotificationBody(cmdRead, addr, 0x01, 0x00, value)
}

// BuildNotificationBody returns a notification frame carrying an arbitrary
// body after the address
func BuildNotificationBody(cmd byte, addr uint16, body ...byte) []byte {
	payload := []byte{cmd, byte(addr >> 8), byte(addr)}
	payload = append(payload, body...)
	out := []byte{sync0, sync1, byte(len(payload))}
	return append(out, payload...)
}

// BuildTextResponse returns the answer to a text read of length bytes. The
// text is padded with 0xFF, or cut, to exactly length bytes.
func BuildTextResponse(addr uint16, text string, length int) []byte {
	data := make([]byte, length)
	n := copy(data, text)
	for i := n; i < length; i++ {
		data[i] = fill
	}
	return BuildNotificationBody(cmdRead, addr, data...)
}

// BuildTruncatedNotification returns the first n bytes of a notification,
// as seen when the link drops mid-frame
func BuildTruncatedNotification(addr uint16, value byte, n int) []byte {
	full := BuildNotification(addr, value)
	if n > len(full) {
		n = len(full)
	}
	return full[:n]
}
