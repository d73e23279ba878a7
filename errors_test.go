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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout", err: ErrTransportTimeout, want: true},
		{name: "wrapped_read", err: fmt.Errorf("poll: %w", ErrTransportRead), want: true},
		{name: "short_write", err: ErrShortWrite, want: true},
		{name: "invalid_parameter", err: ErrInvalidParameter, want: false},
		{name: "closed", err: ErrTransportClosed, want: false},
		{name: "transient_transport_error", err: NewTransportError("write", "x", errors.New("io"), ErrorTypeTransient), want: true},
		{name: "permanent_transport_error", err: NewTransportError("open", "x", errors.New("io"), ErrorTypePermanent), want: false},
		{name: "write_error_on_closed_port", err: NewWriteError("x", ErrTransportClosed), want: false},
		{name: "frame_timeout", err: &FrameTimeoutError{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypePermanent},
		{name: "timeout_error", err: NewTimeoutError("read", "x"), want: ErrorTypeTimeout},
		{name: "frame_timeout", err: &FrameTimeoutError{}, want: ErrorTypeTimeout},
		{name: "read_timeout", err: &ReadTimeoutError{}, want: ErrorTypeTimeout},
		{name: "write", err: ErrTransportWrite, want: ErrorTypeTransient},
		{name: "truncation", err: &TruncationWarning{}, want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestErrorType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "permanent", ErrorTypePermanent.String())
	assert.Equal(t, "transient", ErrorTypeTransient.String())
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	cause := errors.New("device gone")
	err := NewTransportError("write", "/dev/ttyUSB0", cause, ErrorTypeTransient)

	assert.Equal(t, "write on /dev/ttyUSB0: device gone", err.Error())
	require.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)

	noPort := NewTransportError("read", "", cause, ErrorTypePermanent)
	assert.Equal(t, "read: device gone", noPort.Error())
	assert.False(t, noPort.Retryable)
}

func TestTypedErrors_Messages(t *testing.T) {
	t.Parallel()

	frameErr := &FrameTimeoutError{Elapsed: 120 * time.Millisecond, Length: 6, Received: 2}
	assert.Equal(t, "inbound frame timed out after 120ms: got 2 of 6 bytes", frameErr.Error())

	readErr := &ReadTimeoutError{Address: 0x2000, Timeout: 500 * time.Millisecond}
	assert.Equal(t, "text read at 0x2000 timed out after 500ms: no response header", readErr.Error())
	readErr.HeaderFound = true
	assert.True(t, strings.HasSuffix(readErr.Error(), "incomplete response body"))

	warning := &TruncationWarning{Address: 0x2000, Length: 20, MaxLength: 8}
	assert.Equal(t, "text for 0x2000 truncated from 20 to 8 bytes", warning.Error())
}

func TestTypedErrors_Unwrap(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("monitor: %w", &FrameTimeoutError{})
	require.ErrorIs(t, wrapped, ErrFrameTimeout)

	var frameErr *FrameTimeoutError
	require.ErrorAs(t, wrapped, &frameErr)

	require.ErrorIs(t, &ReadTimeoutError{}, ErrReadTimeout)
	require.ErrorIs(t, &TruncationWarning{}, ErrTextTruncated)
	assert.NotErrorIs(t, &ReadTimeoutError{}, ErrFrameTimeout)
}
