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

// Package uart provides a serial port transport for DWIN displays
package uart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/internal/transport"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory setting of most DGUS panels
	DefaultBaudRate = 115200

	// readChunk is the size of a single port read
	readChunk = 256
	// pollTimeout bounds each blocking port read so Close is noticed
	pollTimeout = 50 * time.Millisecond
)

// port is the subset of serial.Port the transport needs
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// openPort opens a serial device. Replaced in tests.
var openPort = func(name string, mode *serial.Mode) (port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Config holds UART settings
type Config struct {
	BaudRate int
	// ReadTimeout bounds how long ReadByte waits for a byte
	ReadTimeout time.Duration
	// OpenRetries is how often a busy port is retried
	OpenRetries    int
	OpenRetryDelay time.Duration
}

// DefaultConfig returns the default UART settings
func DefaultConfig() Config {
	return Config{
		BaudRate:       DefaultBaudRate,
		ReadTimeout:    100 * time.Millisecond,
		OpenRetries:    3,
		OpenRetryDelay: 200 * time.Millisecond,
	}
}

// Option configures the transport
type Option func(*Config)

// WithBaudRate sets the line speed
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		c.BaudRate = baud
	}
}

// WithReadTimeout sets how long ReadByte waits for a byte
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = timeout
	}
}

// WithOpenRetries sets how often opening a busy port is retried
func WithOpenRetries(retries int, delay time.Duration) Option {
	return func(c *Config) {
		c.OpenRetries = retries
		c.OpenRetryDelay = delay
	}
}

// Transport implements dwin.Transport over a serial port. A reader
// goroutine moves incoming bytes into a buffer so Available never blocks.
type Transport struct {
	port     port
	readErr  error
	done     chan struct{}
	portName string
	buf      []byte
	config   Config
	wg       sync.WaitGroup
	mu       sync.Mutex
	closeMu  sync.Once

	connected atomic.Bool
}

// New opens the serial device at portName
func New(portName string, opts ...Option) (*Transport, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.BaudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate %d", dwin.ErrInvalidParameter, config.BaudRate)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := transport.WithRetry(transport.RetryConfig{
		Description: portName,
		MaxRetries:  config.OpenRetries,
		RetryDelay:  config.OpenRetryDelay,
		OnRetryFailed: func() error {
			return dwin.NewTransportError("open", portName,
				fmt.Errorf("port stayed busy: %w", dwin.ErrRetriesExhausted), dwin.ErrorTypeTransient)
		},
	}, func() (port, bool, error) {
		p, err := openPort(portName, mode)
		if err == nil {
			return p, false, nil
		}
		if code, ok := portErrorCode(err); ok && code == serial.PortBusy {
			dwin.Logger().Debug().Str("port", portName).Msg("port busy, retrying open")
			return nil, true, nil
		}
		return nil, false, dwin.NewTransportError("open", portName, err, dwin.ErrorTypePermanent)
	})
	if err != nil {
		return nil, err
	}

	t, err := newWithPort(portName, p, config)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return t, nil
}

// newWithPort wraps an already open port and starts the reader
func newWithPort(portName string, p port, config Config) (*Transport, error) {
	if err := p.SetReadTimeout(pollTimeout); err != nil {
		return nil, dwin.NewTransportError("open", portName,
			fmt.Errorf("failed to set read timeout: %w", err), dwin.ErrorTypePermanent)
	}
	if err := p.ResetInputBuffer(); err != nil {
		dwin.Logger().Debug().Err(err).Str("port", portName).Msg("failed to reset input buffer")
	}

	t := &Transport{
		port:     p,
		portName: portName,
		config:   config,
		done:     make(chan struct{}),
	}
	t.connected.Store(true)

	t.wg.Add(1)
	go t.readLoop()
	return t, nil
}

func (t *Transport) readLoop() {
	defer t.wg.Done()

	chunk := make([]byte, readChunk)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		n, err := t.port.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf = append(t.buf, chunk[:n]...)
			t.mu.Unlock()
		}
		if err == nil {
			continue
		}

		select {
		case <-t.done:
			return
		default:
		}
		if isDisconnectionError(err) {
			dwin.Logger().Warn().Err(err).Str("port", t.portName).Msg("serial port disconnected")
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			t.connected.Store(false)
			return
		}
		dwin.Logger().Debug().Err(err).Str("port", t.portName).Msg("serial read failed")
		time.Sleep(pollTimeout)
	}
}

// Available returns the number of buffered bytes
func (t *Transport) Available() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 && !t.connected.Load() {
		return 0, t.closedError("available")
	}
	return len(t.buf), nil
}

// ReadByte returns the next buffered byte, waiting up to the read timeout
func (t *Transport) ReadByte() (byte, error) {
	b, err := transport.TimeoutRetry(t.config.ReadTimeout, time.Millisecond, func() (byte, bool, error) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if len(t.buf) > 0 {
			b := t.buf[0]
			t.buf = t.buf[1:]
			return b, false, nil
		}
		if !t.connected.Load() {
			return 0, false, t.closedError("read")
		}
		return 0, true, nil
	})
	if err != nil {
		var te *dwin.TransportError
		if errors.As(err, &te) && te.Port == "" {
			te.Port = t.portName
		}
		return 0, err
	}
	return b, nil
}

// Write sends data to the display
func (t *Transport) Write(data []byte) (int, error) {
	if !t.connected.Load() {
		return 0, t.closedError("write")
	}
	n, err := t.port.Write(data)
	if err != nil {
		if isDisconnectionError(err) {
			t.connected.Store(false)
			return n, dwin.NewTransportError("write", t.portName,
				fmt.Errorf("%w: %w", dwin.ErrTransportClosed, err), dwin.ErrorTypePermanent)
		}
		return n, dwin.NewWriteError(t.portName, err)
	}
	return n, nil
}

// FlushInput drops everything received so far, including bytes still held
// by the operating system
func (t *Transport) FlushInput() (int, error) {
	t.mu.Lock()
	n := len(t.buf)
	t.buf = t.buf[:0]
	t.mu.Unlock()

	if !t.connected.Load() {
		return n, nil
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return n, fmt.Errorf("failed to reset input buffer: %w", err)
	}
	return n, nil
}

// HasCapability implements dwin.TransportCapabilityChecker
func (*Transport) HasCapability(capability dwin.TransportCapability) bool {
	return capability == dwin.CapabilityInputFlush
}

// LinkTiming scales the settle delay with the line speed. At 9600 baud an
// acknowledgment alone takes over 6ms on the wire.
func (t *Transport) LinkTiming() *dwin.LinkTiming {
	if t.config.BaudRate < 57600 {
		return &dwin.LinkTiming{
			WriteSettle:  50 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
			FrameTimeout: 300 * time.Millisecond,
		}
	}
	return &dwin.LinkTiming{
		WriteSettle:  20 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		FrameTimeout: 100 * time.Millisecond,
	}
}

// Close stops the reader and closes the port
func (t *Transport) Close() error {
	var err error
	t.closeMu.Do(func() {
		if t.done == nil {
			return
		}
		close(t.done)
		t.connected.Store(false)
		if t.port != nil {
			err = t.port.Close()
		}
		t.wg.Wait()
	})
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true until the port is closed or unplugged
func (t *Transport) IsConnected() bool {
	return t.connected.Load()
}

// Type returns the transport type
func (*Transport) Type() dwin.TransportType {
	return dwin.TransportUART
}

// PortName returns the device path
func (t *Transport) PortName() string {
	return t.portName
}

func (t *Transport) closedError(op string) error {
	err := dwin.ErrTransportClosed
	if t.readErr != nil {
		err = fmt.Errorf("%w: %w", dwin.ErrTransportClosed, t.readErr)
	}
	return dwin.NewTransportError(op, t.portName, err, dwin.ErrorTypePermanent)
}

// isDisconnectionError reports whether err means the device went away
func isDisconnectionError(err error) bool {
	if err == nil {
		return false
	}

	if code, ok := portErrorCode(err); ok {
		switch code {
		case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
			return true
		default:
			return false
		}
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "device not configured") ||
		strings.Contains(errStr, "input/output error") ||
		strings.Contains(errStr, "no such device") ||
		strings.Contains(errStr, "broken pipe")
}

// portErrorCode extracts the code of a serial.PortError, which the library
// returns both by value and by pointer
func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}
