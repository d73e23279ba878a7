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

import (
	"fmt"
	"sync"
)

const pageSwitchAddress = 0x0084

// VirtualDisplay is a simulated DGUS display that answers frames the way the
// hardware does: writes are stored and acknowledged, reads return the stored
// bytes and page switches change the current page
type VirtualDisplay struct {
	memory  map[uint16][]byte
	Curve   []byte
	Frames  [][]byte
	Page    int
	Present bool
	mu      sync.Mutex
}

// NewVirtualDisplay creates a connected display showing page 0
func NewVirtualDisplay() *VirtualDisplay {
	return &VirtualDisplay{
		memory:  make(map[uint16][]byte),
		Present: true,
	}
}

// SetText stores text at addr as if a user had typed it
func (v *VirtualDisplay) SetText(addr uint16, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.memory[addr] = []byte(text)
}

// Memory returns a copy of the bytes last written to addr
func (v *VirtualDisplay) Memory(addr uint16) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.memory[addr]...)
}

// CurrentPage returns the page last switched to
func (v *VirtualDisplay) CurrentPage() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Page
}

// Handle processes one complete outbound frame and returns the bytes the
// display sends back
func (v *VirtualDisplay) Handle(frame []byte) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.Present {
		return nil, nil
	}
	if len(frame) < 6 || frame[0] != sync0 || frame[1] != sync1 {
		return nil, fmt.Errorf("malformed frame % X", frame)
	}
	if int(frame[2]) != len(frame)-3 {
		return nil, fmt.Errorf("length byte %d does not match %d payload bytes", frame[2], len(frame)-3)
	}
	v.Frames = append(v.Frames, append([]byte(nil), frame...))

	addr := uint16(frame[4])<<8 | uint16(frame[5])
	data := frame[6:]

	switch frame[3] {
	case cmdWrite:
		v.write(addr, data)
		return BuildAck(), nil
	case cmdRead:
		if len(data) != 1 {
			return nil, fmt.Errorf("read frame carries %d length bytes", len(data))
		}
		stored := v.memory[addr]
		end := len(stored)
		for i, b := range stored {
			if b == fill {
				end = i
				break
			}
		}
		return BuildTextResponse(addr, string(stored[:end]), int(data[0])), nil
	default:
		return nil, fmt.Errorf("unknown command 0x%02X", frame[3])
	}
}

func (v *VirtualDisplay) write(addr uint16, data []byte) {
	switch {
	case addr == pageSwitchAddress && len(data) == 4 && data[0] == 0x5A:
		v.Page = int(data[3])
	case addr == 0x0310 && len(data) == 8:
		v.Curve = append(v.Curve, data[7])
	case addr == 0x0301:
		v.Curve = nil
	}
	v.memory[addr] = append([]byte(nil), data...)
}

// Remove simulates unplugging the display
func (v *VirtualDisplay) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = false
}

// Insert simulates plugging the display back in
func (v *VirtualDisplay) Insert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Present = true
}
