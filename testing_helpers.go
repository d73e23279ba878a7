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
	"sync"
	"time"
)

// MockTransport is an in-memory Transport for tests. Bytes handed to Feed
// become readable; OnWrite lets a test answer each written frame the way a
// display would.
type MockTransport struct {
	writeErr   error
	onWrite    func(frame []byte) ([]byte, error)
	inbound    []byte
	frames     [][]byte
	shortWrite int
	mu         sync.Mutex
	closed     bool
}

// NewMockTransport creates a connected mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{shortWrite: -1}
}

// Feed appends bytes to the inbound buffer
func (m *MockTransport) Feed(data ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = append(m.inbound, data...)
}

// FeedAfter appends bytes to the inbound buffer once delay has passed
func (m *MockTransport) FeedAfter(delay time.Duration, data ...byte) {
	data = append([]byte(nil), data...)
	time.AfterFunc(delay, func() { m.Feed(data...) })
}

// OnWrite installs a handler called with every written frame. The bytes it
// returns are appended to the inbound buffer; an error fails the write.
func (m *MockTransport) OnWrite(fn func(frame []byte) ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWrite = fn
}

// SetWriteError makes every following Write fail with err
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetShortWrite makes every following Write report only n bytes written.
// A negative n restores full writes.
func (m *MockTransport) SetShortWrite(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortWrite = n
}

// Frames returns a copy of every frame written so far
func (m *MockTransport) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	for i, f := range m.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// LastFrame returns the most recently written frame, or nil
func (m *MockTransport) LastFrame() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return append([]byte(nil), m.frames[len(m.frames)-1]...)
}

// Pending returns the number of unread inbound bytes
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbound)
}

// Available implements Transport
func (m *MockTransport) Available() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	return len(m.inbound), nil
}

// ReadByte implements Transport
func (m *MockTransport) ReadByte() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrTransportClosed
	}
	if len(m.inbound) == 0 {
		return 0, NewTimeoutError("read", "mock")
	}
	b := m.inbound[0]
	m.inbound = m.inbound[1:]
	return b, nil
}

// Write implements Transport
func (m *MockTransport) Write(data []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return 0, err
	}

	n := len(data)
	if m.shortWrite >= 0 && m.shortWrite < n {
		n = m.shortWrite
	}
	frame := append([]byte(nil), data[:n]...)
	m.frames = append(m.frames, frame)
	handler := m.onWrite
	m.mu.Unlock()

	if handler != nil && n == len(data) {
		reply, err := handler(frame)
		if err != nil {
			return 0, err
		}
		m.Feed(reply...)
	}
	return n, nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// PortName returns the name used in transport errors
func (*MockTransport) PortName() string {
	return "mock"
}
