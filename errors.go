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
	"errors"
	"fmt"
	"time"
)

// Transport errors
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportClosed  = errors.New("transport closed")
	ErrShortWrite       = errors.New("short write")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Protocol errors
var (
	ErrFrameTimeout     = errors.New("inbound frame timed out")
	ErrReadTimeout      = errors.New("text read timed out")
	ErrTextTruncated    = errors.New("text truncated")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on the next attempt
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts, usually worth retrying
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError wraps a failure of the underlying byte link
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError. Retryable follows the error type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout TransportError
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewWriteError creates a TransportError for a failed write
func NewWriteError(port string, err error) *TransportError {
	return &TransportError{
		Op:        "write",
		Port:      port,
		Err:       fmt.Errorf("%w: %w", ErrTransportWrite, err),
		Type:      ErrorTypeTransient,
		Retryable: !errors.Is(err, ErrTransportClosed),
	}
}

// FrameTimeoutError is returned when a notification frame declared a length
// but the remaining bytes did not arrive in time. The partial frame is dropped.
type FrameTimeoutError struct {
	Partial  []byte
	Elapsed  time.Duration
	Length   int
	Received int
}

func (e *FrameTimeoutError) Error() string {
	return fmt.Sprintf("inbound frame timed out after %s: got %d of %d bytes",
		e.Elapsed.Round(time.Millisecond), e.Received, e.Length)
}

func (*FrameTimeoutError) Unwrap() error {
	return ErrFrameTimeout
}

// ReadTimeoutError is returned by text reads when no complete response arrived
// before the deadline. It tells a failed read apart from an empty field.
type ReadTimeoutError struct {
	Partial     string
	Timeout     time.Duration
	Address     Address
	HeaderFound bool
}

func (e *ReadTimeoutError) Error() string {
	stage := "no response header"
	if e.HeaderFound {
		stage = "incomplete response body"
	}
	return fmt.Sprintf("text read at %s timed out after %s: %s", e.Address, e.Timeout, stage)
}

func (*ReadTimeoutError) Unwrap() error {
	return ErrReadTimeout
}

// TruncationWarning is returned by WriteString when the text did not fit.
// The frame was still sent with the first MaxLength bytes.
type TruncationWarning struct {
	Address   Address
	Length    int
	MaxLength int
}

func (w *TruncationWarning) Error() string {
	return fmt.Sprintf("text for %s truncated from %d to %d bytes", w.Address, w.Length, w.MaxLength)
}

func (*TruncationWarning) Unwrap() error {
	return ErrTextTruncated
}

// IsRetryable reports whether err is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrShortWrite):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrFrameTimeout), errors.Is(err, ErrReadTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead), errors.Is(err, ErrTransportWrite), errors.Is(err, ErrShortWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
