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
	"sync/atomic"
	"time"
)

// Resetter pulses the display's hardware reset line
type Resetter interface {
	Reset(ctx context.Context) error
}

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// RetryConfig configures retry behavior for transport writes
	RetryConfig *RetryConfig
	// WriteSettle is the wait between a write and the acknowledgment drain
	WriteSettle time.Duration
	// FrameTimeout bounds how long a partially received notification is kept
	FrameTimeout time.Duration
	// PollInterval is the sleep between polls in Listen
	PollInterval time.Duration
	// TextTimeout is the default timeout for ReadText
	TextTimeout time.Duration
	// BuzzerAddress is the VP driven by SetBuzzer
	BuzzerAddress Address
	// InitialPage is shown by Init; negative leaves the current page alone
	InitialPage int
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig:   DefaultRetryConfig(),
		WriteSettle:   50 * time.Millisecond,
		FrameTimeout:  200 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
		TextTimeout:   500 * time.Millisecond,
		BuzzerAddress: AddrBuzzer,
		InitialPage:   0,
	}
}

// Device represents a DWIN DGUS display on a serial link
//
// Thread Safety: Device is NOT thread-safe. The link is half-duplex and
// request/response exchanges assume exclusive ownership, so all methods must
// be called from one goroutine. polling.Monitor provides that ownership and
// lets other goroutines queue work.
type Device struct {
	transport Transport
	config    *DeviceConfig
	resetter  Resetter
	port      string
	decoder   decoder
	page      atomic.Int32
}

// New creates a new display device on the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	config := DefaultDeviceConfig()
	timing := getLinkTiming(transport)
	config.WriteSettle = timing.WriteSettle
	config.PollInterval = timing.PollInterval
	config.FrameTimeout = timing.FrameTimeout

	device := &Device{
		transport: transport,
		config:    config,
	}
	device.page.Store(-1)
	if named, ok := transport.(interface{ PortName() string }); ok {
		device.port = named.PortName()
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Config returns a copy of the device configuration
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// CurrentPage returns the last page switched to, or -1 when unknown
func (d *Device) CurrentPage() int {
	return int(d.page.Load())
}

// SetRetryConfig updates the retry configuration
func (d *Device) SetRetryConfig(config *RetryConfig) {
	d.config.RetryConfig = config
	if tr, ok := d.transport.(*TransportWithRetry); ok {
		tr.SetRetryConfig(config)
	}
}

// Init resets the display when a reset line is configured and shows the
// initial page
func (d *Device) Init() error {
	return d.InitContext(context.Background())
}

// InitContext is Init with context support
func (d *Device) InitContext(ctx context.Context) error {
	if d.resetter != nil {
		if err := d.resetter.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset display: %w", err)
		}
	}

	if _, err := d.drain(); err != nil {
		return fmt.Errorf("failed to clear input: %w", err)
	}
	d.decoder.reset()

	if d.config.InitialPage >= 0 {
		if err := d.SwitchPageContext(ctx, byte(d.config.InitialPage)); err != nil {
			return fmt.Errorf("failed to show initial page: %w", err)
		}
	}
	return nil
}

// Close closes the device connection
func (d *Device) Close() error {
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

// send writes one command frame and runs the acknowledgment drain
func (d *Device) send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending %s: %w", cmd.Kind, err)
	}

	if err := d.writeFrame(cmd); err != nil {
		return err
	}
	return d.settleAndDrain(ctx)
}

// writeFrame encodes cmd and writes it in full
func (d *Device) writeFrame(cmd Command) error {
	data := cmd.Bytes()
	debugFrame("tx", data)

	n, err := d.transport.Write(data)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return err
		}
		return NewWriteError(d.port, err)
	}
	if n != len(data) {
		return NewTransportError("write", d.port,
			fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(data)), ErrorTypeTransient)
	}
	return nil
}

// settleAndDrain waits for the acknowledgment to arrive and throws away
// whatever is buffered, so an ack is never taken for the start of a
// notification frame.
func (d *Device) settleAndDrain(ctx context.Context) error {
	if err := sleepContext(ctx, d.config.WriteSettle); err != nil {
		return err
	}
	dropped, err := d.drain()
	if err != nil {
		return err
	}
	if dropped > 0 {
		debugf("dropped %d bytes after write", dropped)
	}
	return nil
}

// drain discards every byte currently buffered on the inbound side
func (d *Device) drain() (int, error) {
	if hasCapability(d.transport, CapabilityInputFlush) {
		if flusher, ok := d.transport.(InputFlusher); ok {
			n, err := flusher.FlushInput()
			if err != nil {
				return n, NewTransportError("flush", d.port, fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
			}
			return n, nil
		}
	}

	dropped := 0
	for {
		n, err := d.transport.Available()
		if err != nil {
			return dropped, NewTransportError("available", d.port, err, ErrorTypeTransient)
		}
		if n == 0 {
			return dropped, nil
		}
		for i := 0; i < n; i++ {
			if _, err := d.readByte(); err != nil {
				return dropped, err
			}
			dropped++
		}
	}
}

// sleepContext sleeps for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
