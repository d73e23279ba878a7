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

package uart

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-dwin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type fakePort struct {
	readErr  error
	writeErr error
	incoming chan []byte
	closed   chan struct{}
	written  bytes.Buffer
	timeout  time.Duration
	resets   int
	mu       sync.Mutex
	once     sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	readErr := f.readErr
	timeout := f.timeout
	f.mu.Unlock()
	if readErr != nil {
		return 0, readErr
	}

	select {
	case data := <-f.incoming:
		return copy(p, data), nil
	case <-f.closed:
		return 0, errors.New("port closed")
	case <-time.After(timeout):
		return 0, nil
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = t
	return nil
}

func (f *fakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakePort) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func newTestTransport(t *testing.T, opts ...Option) (*Transport, *fakePort) {
	t.Helper()

	config := DefaultConfig()
	config.ReadTimeout = 20 * time.Millisecond
	for _, opt := range opts {
		opt(&config)
	}
	fp := newFakePort()
	tr, err := newWithPort("/dev/ttyTEST", fp, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, fp
}

func waitAvailable(t *testing.T, tr *Transport, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, err := tr.Available()
		return err == nil && got >= n
	}, time.Second, time.Millisecond)
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	transport := &Transport{portName: "/dev/ttyUSB0"}

	assert.Equal(t, "/dev/ttyUSB0", transport.PortName())
	assert.Equal(t, dwin.TransportUART, transport.Type())
	assert.False(t, transport.IsConnected(), "uninitialized transport is not connected")
	require.NoError(t, transport.Close())
}

func TestTransport_BuffersIncomingBytes(t *testing.T) {
	t.Parallel()

	tr, fp := newTestTransport(t)
	assert.True(t, tr.IsConnected())
	assert.Equal(t, pollTimeout, fp.timeout)

	fp.incoming <- []byte{0x5A, 0xA5}
	fp.incoming <- []byte{0x03, 0x82, 0x4F, 0x4B}
	waitAvailable(t, tr, 6)

	var got []byte
	for range 6 {
		b, err := tr.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	assert.Equal(t, []byte{0x5A, 0xA5, 0x03, 0x82, 0x4F, 0x4B}, got)

	n, err := tr.Available()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransport_ReadByteTimeout(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTransport(t, WithReadTimeout(15*time.Millisecond))

	start := time.Now()
	_, err := tr.ReadByte()
	require.Error(t, err)
	require.ErrorIs(t, err, dwin.ErrTransportTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	var te *dwin.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/dev/ttyTEST", te.Port)
}

func TestTransport_Write(t *testing.T) {
	t.Parallel()

	tr, fp := newTestTransport(t)

	n, err := tr.Write([]byte{0x5A, 0xA5, 0x05, 0x82, 0x00, 0x84, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{0x5A, 0xA5, 0x05, 0x82, 0x00, 0x84, 0x00, 0x01}, fp.written.Bytes())
}

func TestTransport_WriteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err           error
		name          string
		wantConnected bool
		wantRetryable bool
	}{
		{
			name:          "transient",
			err:           errors.New("resource temporarily unavailable"),
			wantConnected: true,
			wantRetryable: true,
		},
		{
			name:          "unplugged",
			err:           errors.New("write /dev/ttyUSB0: input/output error"),
			wantConnected: false,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr, fp := newTestTransport(t)
			fp.mu.Lock()
			fp.writeErr = tt.err
			fp.mu.Unlock()

			_, err := tr.Write([]byte{0x01})
			require.Error(t, err)
			assert.Equal(t, tt.wantRetryable, dwin.IsRetryable(err))
			assert.Equal(t, tt.wantConnected, tr.IsConnected())
		})
	}
}

func TestTransport_DetectsDisconnection(t *testing.T) {
	t.Parallel()

	tr, fp := newTestTransport(t)
	fp.incoming <- []byte{0x42}
	waitAvailable(t, tr, 1)

	fp.setReadErr(errors.New("read /dev/ttyUSB0: no such device"))
	require.Eventually(t, func() bool { return !tr.IsConnected() }, time.Second, time.Millisecond)

	// bytes received before the unplug stay readable
	b, err := tr.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b)

	_, err = tr.Available()
	require.ErrorIs(t, err, dwin.ErrTransportClosed)
	_, err = tr.ReadByte()
	require.ErrorIs(t, err, dwin.ErrTransportClosed)
	_, err = tr.Write([]byte{0x01})
	require.ErrorIs(t, err, dwin.ErrTransportClosed)
}

func TestTransport_FlushInput(t *testing.T) {
	t.Parallel()

	tr, fp := newTestTransport(t)
	assert.True(t, tr.HasCapability(dwin.CapabilityInputFlush))

	fp.incoming <- []byte{1, 2, 3, 4}
	waitAvailable(t, tr, 4)

	resetsBefore := fp.resets
	n, err := tr.FlushInput()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, resetsBefore+1, fp.resets)

	avail, err := tr.Available()
	require.NoError(t, err)
	assert.Zero(t, avail)
}

func TestTransport_Close(t *testing.T) {
	t.Parallel()

	tr, _ := newTestTransport(t)

	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
	require.NoError(t, tr.Close(), "second close is a no-op")
}

func TestTransport_LinkTiming(t *testing.T) {
	t.Parallel()

	slow := &Transport{config: Config{BaudRate: 9600}}
	fast := &Transport{config: Config{BaudRate: 115200}}

	assert.Equal(t, 50*time.Millisecond, slow.LinkTiming().WriteSettle)
	assert.Equal(t, 20*time.Millisecond, fast.LinkTiming().WriteSettle)
}

func TestTransport_WithDevice(t *testing.T) {
	t.Parallel()

	tr, fp := newTestTransport(t)
	device, err := dwin.New(tr, dwin.WithWriteSettle(time.Millisecond))
	require.NoError(t, err)

	fp.incoming <- []byte{0x5A, 0xA5, 0x06, 0x83, 0x10, 0x00, 0x01, 0x00, 0x07}
	waitAvailable(t, tr, 9)

	var event dwin.Event
	for range 5 {
		event, err = device.PollEvent()
		require.NoError(t, err)
		if event.Valid {
			break
		}
	}
	require.True(t, event.Valid)
	assert.Equal(t, dwin.Address(0x1000), event.Address())
	assert.Equal(t, byte(0x07), event.DataVal)
}

func TestNew_OpenRetries(t *testing.T) {
	busy := &serial.PortError{}
	require.Equal(t, serial.PortBusy, busy.Code())

	tests := []struct {
		openErrs  []error
		name      string
		wantCalls int
		wantErr   bool
	}{
		{name: "first_try", openErrs: []error{nil}, wantCalls: 1},
		{name: "busy_then_open", openErrs: []error{busy, busy, nil}, wantCalls: 3},
		{name: "stays_busy", openErrs: []error{busy, busy, busy, busy}, wantCalls: 3, wantErr: true},
		{name: "not_found", openErrs: []error{errors.New("no such file or directory")}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			original := openPort
			t.Cleanup(func() { openPort = original })
			openPort = func(string, *serial.Mode) (port, error) {
				err := tt.openErrs[calls]
				calls++
				if err != nil {
					return nil, err
				}
				return newFakePort(), nil
			}

			tr, err := New("/dev/ttyTEST", WithOpenRetries(2, time.Millisecond))
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, tr.Close())
		})
	}
}

func TestNew_InvalidBaudRate(t *testing.T) {
	t.Parallel()

	_, err := New("/dev/ttyTEST", WithBaudRate(0))
	require.ErrorIs(t, err, dwin.ErrInvalidParameter)
}

func TestIsDisconnectionError(t *testing.T) {
	t.Parallel()

	assert.False(t, isDisconnectionError(nil))
	assert.False(t, isDisconnectionError(&serial.PortError{}), "busy is not a disconnection")
	assert.True(t, isDisconnectionError(errors.New("read: broken pipe")))
	assert.True(t, isDisconnectionError(errors.New("Device not configured")))
	assert.False(t, isDisconnectionError(errors.New("timeout")))
}
