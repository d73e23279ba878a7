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

// Package uart detects displays on serial ports
package uart

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/detection"
	"github.com/ZaparooProject/go-dwin/transport/uart"
	"go.bug.st/serial/enumerator"
)

// listPorts enumerates serial ports. Replaced in tests.
var listPorts = enumerator.GetDetailedPortsList

// accessible checks device node permissions. Replaced in tests.
var accessible = canAccess

// openTransport opens a port for probing. Replaced in tests.
var openTransport = func(path string, baud int) (dwin.Transport, error) {
	return uart.New(path, uart.WithBaudRate(baud), uart.WithOpenRetries(0, 0))
}

// detector implements detection.Detector for serial ports
type detector struct{}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports and, in Safe mode, probes each candidate
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}

		device, ok := candidate(port, opts)
		if !ok {
			continue
		}

		if opts.Mode == detection.Safe {
			confirmed, metadata := probePort(ctx, device.Path, opts)
			if confirmed {
				device.Confidence = detection.High
				for k, v := range metadata {
					device.Metadata[k] = v
				}
			} else if device.Confidence == detection.Low {
				continue
			}
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// candidate turns an enumerated port into a DeviceInfo, or reports that the
// port must be skipped
func candidate(port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if port == nil || skipPortName(port.Name) {
		return detection.DeviceInfo{}, false
	}
	if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}
	if !accessible(port.Name) {
		dwin.Logger().Debug().Str("port", port.Name).Msg("skipping port without read/write access")
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       port.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}

	if !port.IsUSB {
		// on-board UARTs only show up when they are probed
		if opts.Mode == detection.Passive {
			return detection.DeviceInfo{}, false
		}
		return device, true
	}

	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	if port.Product != "" {
		device.Name = port.Product
	}

	id, err := detection.USBIDFromPort(port.VID, port.PID)
	if err != nil {
		// still a serial port, just not one we can classify
		dwin.Logger().Debug().Err(err).Str("port", port.Name).Msg("unreadable USB id")
		return device, true
	}
	if detection.IsBlocked(id, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}
	device.Metadata["vidpid"] = id.String()
	if chip, ok := detection.BridgeChip(id); ok {
		device.Confidence = detection.Medium
		device.Metadata["chip"] = chip
		if port.Product == "" {
			device.Name = chip
		}
	}
	return device, true
}

// skipPortName filters ports that are never displays
func skipPortName(path string) bool {
	name := filepath.Base(path)
	if strings.Contains(name, "Bluetooth") {
		return true
	}
	// macOS lists each port as tty. and cu.; only the cu. node is used
	if strings.HasPrefix(name, "tty.") && strings.HasPrefix(path, "/dev/") {
		return true
	}
	lower := strings.ToLower(name)
	for _, system := range []string{"console", "debug-", "wlan-debug"} {
		if strings.Contains(lower, system) {
			return true
		}
	}
	return false
}

// probePort sends one text read for the version VP and reports whether a
// DGUS header came back
func probePort(ctx context.Context, path string, opts *detection.Options) (bool, map[string]string) {
	transport, err := openTransport(path, opts.BaudRate)
	if err != nil {
		dwin.Logger().Debug().Err(err).Str("port", path).Msg("failed to open port for probe")
		return false, nil
	}
	defer func() {
		if closeErr := transport.Close(); closeErr != nil {
			dwin.Logger().Debug().Err(closeErr).Str("port", path).Msg("failed to close port after probe")
		}
	}()

	return probeDisplay(ctx, transport, opts.ProbeTimeout)
}

// probeDisplay asks the display on transport for its version words
func probeDisplay(ctx context.Context, transport dwin.Transport, timeout time.Duration) (bool, map[string]string) {
	device, err := dwin.New(transport)
	if err != nil {
		return false, nil
	}

	version, err := device.ReadTextContext(ctx, dwin.AddrVersion, 2, timeout)
	var timeoutErr *dwin.ReadTimeoutError
	switch {
	case err == nil:
		return true, map[string]string{"version": fmt.Sprintf("% X", version)}
	case errors.As(err, &timeoutErr) && timeoutErr.HeaderFound:
		return true, map[string]string{}
	default:
		return false, nil
	}
}
