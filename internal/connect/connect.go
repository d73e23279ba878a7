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

// Package connect opens a display for the commands: it picks the serial
// port, detecting one when none is configured, and initializes the device
package connect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/detection"
	// Import the UART detector to register it
	_ "github.com/ZaparooProject/go-dwin/detection/uart"
	"github.com/ZaparooProject/go-dwin/reset"
	"github.com/ZaparooProject/go-dwin/transport/uart"
)

// Options selects and configures the display
type Options struct {
	Port          string
	ResetPin      string
	DeviceOptions []dwin.Option
	BaudRate      int
	DetectTimeout time.Duration
}

// Seams for tests
var (
	openTransport = func(path string, baud int) (dwin.Transport, error) {
		transport, err := uart.New(path, uart.WithBaudRate(baud))
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	}
	openResetLine = func(pin string) (dwin.Resetter, error) {
		return reset.Open(pin)
	}
)

// Resolve returns the port to use. An explicit port is trusted as is;
// otherwise the display is probed for on every serial port.
func Resolve(ctx context.Context, port string, baud int, timeout time.Duration) (detection.DeviceInfo, error) {
	if port != "" {
		return detection.DeviceInfo{
			Transport:  "uart",
			Path:       port,
			Name:       port,
			Confidence: detection.High,
		}, nil
	}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	opts.BaudRate = baud
	if timeout > 0 {
		opts.Timeout = timeout
	}

	devices, err := detection.DetectAllContext(ctx, &opts)
	if err != nil {
		return detection.DeviceInfo{}, fmt.Errorf("display discovery failed: %w", err)
	}
	for _, d := range devices {
		if d.Transport == "uart" {
			return d, nil
		}
	}
	return detection.DeviceInfo{}, fmt.Errorf("display discovery failed: %w", detection.ErrNoDevicesFound)
}

// Open resolves the port, opens it and runs device initialization
func Open(ctx context.Context, opts Options) (*dwin.Device, detection.DeviceInfo, error) {
	if opts.BaudRate <= 0 {
		opts.BaudRate = uart.DefaultConfig().BaudRate
	}

	info, err := Resolve(ctx, opts.Port, opts.BaudRate, opts.DetectTimeout)
	if err != nil {
		return nil, detection.DeviceInfo{}, err
	}

	transport, err := openTransport(info.Path, opts.BaudRate)
	if err != nil {
		return nil, info, err
	}

	deviceOpts := append([]dwin.Option(nil), opts.DeviceOptions...)
	if opts.ResetPin != "" {
		line, err := openResetLine(opts.ResetPin)
		if err != nil {
			return nil, info, errors.Join(fmt.Errorf("failed to open reset line: %w", err), transport.Close())
		}
		deviceOpts = append(deviceOpts, dwin.WithResetter(line))
	}

	device, err := dwin.New(transport, deviceOpts...)
	if err != nil {
		return nil, info, errors.Join(fmt.Errorf("failed to create device: %w", err), transport.Close())
	}
	if err := device.InitContext(ctx); err != nil {
		return nil, info, errors.Join(fmt.Errorf("failed to initialize display on %s: %w", info.Path, err), device.Close())
	}

	dwin.Logger().Info().Str("port", info.Path).Str("name", info.Name).
		Stringer("confidence", info.Confidence).Msg("display connected")
	return device, info, nil
}
