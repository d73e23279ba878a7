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


package detection

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// USBID identifies a USB serial adapter by vendor and product
type USBID struct {
	VID uint16
	PID uint16
}

// String formats the ID as upper case VID:PID, the form used in blocklists
func (id USBID) String() string {
	return fmt.Sprintf("%04X:%04X", id.VID, id.PID)
}

// ParseUSBID parses a "VID:PID" pair of hex numbers such as "1a86:7523"
func ParseUSBID(s string) (USBID, error) {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return USBID{}, fmt.Errorf("usb id %q: expected VID:PID", s)
	}
	return USBIDFromPort(vid, pid)
}

// USBIDFromPort builds an ID from the separate hex VID and PID strings a
// port enumerator reports
func USBIDFromPort(vid, pid string) (USBID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(vid), 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("usb vendor id %q: %w", vid, err)
	}
	p, err := strconv.ParseUint(strings.TrimSpace(pid), 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("usb product id %q: %w", pid, err)
	}
	return USBID{VID: uint16(v), PID: uint16(p)}, nil
}

// bridgeChips are the USB serial chips found on DGUS boards and their
// programming cables
var bridgeChips = map[USBID]string{
	{VID: 0x1A86, PID: 0x7523}: "CH340",
	{VID: 0x1A86, PID: 0x5523}: "CH341",
	{VID: 0x0403, PID: 0x6001}: "FT232R",
	{VID: 0x0403, PID: 0x6015}: "FT231X",
	{VID: 0x10C4, PID: 0xEA60}: "CP210x",
	{VID: 0x067B, PID: 0x2303}: "PL2303",
}

// BridgeChip names the USB serial chip behind id, if it is one displays
// are usually wired to
func BridgeChip(id USBID) (string, bool) {
	chip, ok := bridgeChips[id]
	return chip, ok
}

// DefaultBlocklist returns USB devices that must never be probed.
// Opening them resets a board or disturbs a debugger.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno, auto-reset on open
		"1366:1015", // SEGGER J-Link VCOM
		"0483:374B", // ST-LINK/V2-1 VCOM
	}
}

// IsBlocked reports whether id appears in blocklist. Entries that are not
// VID:PID pairs never match.
func IsBlocked(id USBID, blocklist []string) bool {
	return slices.ContainsFunc(blocklist, func(entry string) bool {
		blocked, err := ParseUSBID(entry)
		return err == nil && blocked == id
	})
}

// IsPathIgnored reports whether devicePath is one of ignorePaths. Paths are
// cleaned and compared without case so COM4 matches com4.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := comparablePath(devicePath)
	return slices.ContainsFunc(ignorePaths, func(p string) bool {
		return p != "" && comparablePath(p) == device
	})
}

func comparablePath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
