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

// Transport is the byte link to the display. Implementations are UART
// backends or mocks; the core only consumes them.
type Transport interface {
	// Available returns the number of bytes that can be read without blocking
	Available() (int, error)

	// ReadByte reads one byte. It may block when nothing is available, so
	// callers check Available first.
	ReadByte() (byte, error)

	// Write sends the whole buffer to the display
	Write(p []byte) (int, error)

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportWithRetry wraps a Transport and retries transient write failures.
// Reads are passed through untouched: a retried read would lose bytes.
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		transport: transport,
		config:    config,
	}
}

// Write sends p, retrying transient errors. Partial writes resume where the
// previous attempt stopped.
func (t *TransportWithRetry) Write(p []byte) (int, error) {
	written := 0
	err := RetryWithConfig(context.Background(), t.config, func() error {
		n, err := t.transport.Write(p[written:])
		written += n
		if err != nil {
			return &TransportError{
				Op:        "Write",
				Err:       err,
				Type:      GetErrorType(err),
				Retryable: IsRetryable(err),
			}
		}
		if written < len(p) {
			return NewTransportError("Write", "", ErrShortWrite, ErrorTypeTransient)
		}
		return nil
	})
	return written, err
}

// Available forwards to the underlying transport
func (t *TransportWithRetry) Available() (int, error) {
	return t.transport.Available()
}

// ReadByte forwards to the underlying transport
func (t *TransportWithRetry) ReadByte() (byte, error) {
	return t.transport.ReadByte()
}

// Close closes the transport connection
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *TransportWithRetry) IsConnected() bool {
	return t.transport.IsConnected()
}

// Type returns the transport type
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// HasCapability forwards capability checking to the underlying transport
func (t *TransportWithRetry) HasCapability(capability TransportCapability) bool {
	if capChecker, ok := t.transport.(TransportCapabilityChecker); ok {
		return capChecker.HasCapability(capability)
	}
	return false
}

// FlushInput forwards to the underlying transport when it supports it
func (t *TransportWithRetry) FlushInput() (int, error) {
	if flusher, ok := t.transport.(InputFlusher); ok {
		return flusher.FlushInput()
	}
	return 0, nil
}

// LinkTiming forwards timing hints of the underlying transport
func (t *TransportWithRetry) LinkTiming() *LinkTiming {
	return getLinkTiming(t.transport)
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

// PortName forwards the port name of the underlying transport
func (t *TransportWithRetry) PortName() string {
	if named, ok := t.transport.(interface{ PortName() string }); ok {
		return named.PortName()
	}
	return ""
}
