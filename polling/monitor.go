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

// Package polling runs the display control loop. A Monitor owns the
// Device: it polls for touch notifications, dispatches them to handlers
// and runs work queued by other goroutines between polls.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-dwin"
)

// Monitor errors
var (
	ErrMonitorNotRunning = errors.New("monitor is not running")
	ErrMonitorStopped    = errors.New("monitor was stopped")
	ErrAlreadyRunning    = errors.New("monitor is already running")
)

// Handler reacts to a notification. It runs on the monitor goroutine and
// may use the device directly.
type Handler func(ctx context.Context, device *dwin.Device, event dwin.Event) error

// Operation is work queued with Do
type Operation func(ctx context.Context, device *dwin.Device) error

// TextUpdate is the result of a text watch
type TextUpdate struct {
	Trigger dwin.Event
	Text    string
	Field   dwin.Address
}

type textWatch struct {
	fn      func(TextUpdate)
	trigger dwin.Address
	field   dwin.Address
	length  int
}

type request struct {
	ctx     context.Context
	fn      Operation
	result  chan error
	claimed atomic.Bool
}

// Monitor handles continuous notification polling for one display
type Monitor struct {
	// OnEvent is called for every notification before address handlers
	OnEvent func(dwin.Event)
	// OnText is called for every text watch result after the watch's own fn
	OnText func(TextUpdate)
	// OnError is called for frame timeouts, transport errors, failed text
	// watches and handler errors
	OnError func(error)

	device   *dwin.Device
	config   *Config
	requests chan *request
	handlers map[dwin.Address][]Handler
	done     chan struct{}
	cancel   context.CancelFunc
	runErr   error
	watches  []textWatch
	state    linkState
	metrics  counters
	mu       sync.RWMutex
	runMu    sync.Mutex
	running  atomic.Bool
	interval atomic.Int64 // current poll interval in nanoseconds
}

// NewMonitor creates a new monitor for device
func NewMonitor(device *dwin.Device, config *Config) (*Monitor, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}

	m := &Monitor{
		device:   device,
		config:   config,
		requests: make(chan *request, config.QueueSize),
		handlers: make(map[dwin.Address][]Handler),
	}
	m.interval.Store(int64(config.PollInterval))
	return m, nil
}

// Handle registers fn for notifications whose start address is addr.
// Several handlers may share an address; they run in registration order.
func (m *Monitor) Handle(addr dwin.Address, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[addr] = append(m.handlers[addr], fn)
}

// WatchText reads the text field at field whenever a notification for
// trigger arrives and passes the result to fn, which may be nil. The
// trigger is usually the return key VP of a text input control.
func (m *Monitor) WatchText(trigger, field dwin.Address, length int, fn func(TextUpdate)) error {
	if length < 1 || length > dwin.MaxStringLength {
		return fmt.Errorf("%w: watch length %d", dwin.ErrInvalidParameter, length)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watches = append(m.watches, textWatch{trigger: trigger, field: field, length: length, fn: fn})
	return nil
}

// Device returns the underlying device. Only use it from handlers and
// operations while the monitor runs.
func (m *Monitor) Device() *dwin.Device {
	return m.device
}

// GetMetrics returns current operational metrics
func (m *Monitor) GetMetrics() Metrics {
	return m.metrics.snapshot()
}

// GetState returns what the monitor has seen so far
func (m *Monitor) GetState() State {
	return m.state.get()
}

// CurrentPollInterval returns the adaptive polling interval
func (m *Monitor) CurrentPollInterval() time.Duration {
	return time.Duration(m.interval.Load())
}

// IsRunning returns whether the monitor loop is active
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Start runs the monitor in the background
func (m *Monitor) Start(ctx context.Context) error {
	runCtx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		if err := m.loop(runCtx); err != nil {
			m.reportError(err)
		}
	}()
	return nil
}

// Run runs the monitor until ctx is done, Stop is called or the link is
// lost. It returns nil after Stop.
func (m *Monitor) Run(ctx context.Context) error {
	runCtx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	return m.loop(runCtx)
}

// Stop cancels the loop and waits for it to finish. Pending operations
// fail with ErrMonitorStopped.
func (m *Monitor) Stop() error {
	m.runMu.Lock()
	cancel, done := m.cancel, m.done
	m.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done returns a channel that is closed when the current run ends, whether
// through Stop, cancellation or a lost link. It is nil before the first
// Start or Run.
func (m *Monitor) Done() <-chan struct{} {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.done
}

// Err returns why the last run ended. It is nil while running and after a
// Stop or cancellation.
func (m *Monitor) Err() error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.runErr
}

// Do queues fn to run on the monitor goroutine between polls and waits for
// its result
func (m *Monitor) Do(ctx context.Context, fn Operation) error {
	m.runMu.Lock()
	running, done := m.running.Load(), m.done
	m.runMu.Unlock()
	if !running {
		return ErrMonitorNotRunning
	}

	req := &request{ctx: ctx, fn: fn, result: make(chan error, 1)}

	select {
	case m.requests <- req:
	case <-ctx.Done():
		return fmt.Errorf("operation not queued: %w", ctx.Err())
	case <-done:
		return ErrMonitorStopped
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		if req.claimed.CompareAndSwap(false, true) {
			return fmt.Errorf("operation abandoned: %w", ctx.Err())
		}
		// already running, its result follows
		return <-req.result
	case <-done:
		if req.claimed.CompareAndSwap(false, true) {
			return ErrMonitorStopped
		}
		return <-req.result
	}
}

func (m *Monitor) begin(ctx context.Context) (context.Context, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.runErr = nil
	m.state.setRunning(true)
	return runCtx, nil
}

func (m *Monitor) finish(err error) {
	m.runMu.Lock()
	m.runErr = err
	if m.cancel != nil {
		m.cancel()
	}
	done := m.done
	m.cancel = nil
	m.running.Store(false)
	m.runMu.Unlock()

	m.state.setRunning(false)
	close(done)
	m.failPending()
}

func (m *Monitor) loop(ctx context.Context) (err error) {
	defer func() { m.finish(err) }()

	started := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-m.requests:
			m.runRequest(ctx, req)
		case <-timer.C:
			m.runQueued(ctx)
			if pollErr := m.poll(ctx); pollErr != nil {
				return pollErr
			}
			m.adjustPollInterval(started)
			timer.Reset(m.CurrentPollInterval())
		}
	}
}

// runQueued empties the queue without blocking
func (m *Monitor) runQueued(ctx context.Context) {
	for {
		select {
		case req := <-m.requests:
			m.runRequest(ctx, req)
		default:
			return
		}
	}
}

func (m *Monitor) runRequest(ctx context.Context, req *request) {
	if !req.claimed.CompareAndSwap(false, true) {
		return
	}
	opCtx, cancel := mergeContext(ctx, req.ctx)
	defer cancel()

	m.metrics.operations.Add(1)
	err := req.fn(opCtx, m.device)
	m.state.recordPage(m.device.CurrentPage())
	req.result <- err
}

func (m *Monitor) failPending() {
	for {
		select {
		case req := <-m.requests:
			if req.claimed.CompareAndSwap(false, true) {
				req.result <- ErrMonitorStopped
			}
		default:
			return
		}
	}
}

// poll performs one poll cycle. Only a closed link stops the loop.
func (m *Monitor) poll(ctx context.Context) error {
	start := time.Now()
	event, err := m.device.PollEvent()
	m.metrics.pollCycles.Add(1)
	m.metrics.lastPollLatency.Store(int64(time.Since(start)))

	if err != nil {
		var frameErr *dwin.FrameTimeoutError
		if errors.As(err, &frameErr) {
			m.metrics.frameTimeouts.Add(1)
		} else {
			m.metrics.errors.Add(1)
		}
		m.reportError(err)
		if errors.Is(err, dwin.ErrTransportClosed) {
			return fmt.Errorf("link lost: %w", err)
		}
		return nil
	}
	if !event.Valid {
		return nil
	}

	m.metrics.events.Add(1)
	m.state.recordEvent(event, m.device.CurrentPage(), time.Now())
	m.dispatch(ctx, event)
	return nil
}

func (m *Monitor) dispatch(ctx context.Context, event dwin.Event) {
	if m.OnEvent != nil {
		m.OnEvent(event)
	}

	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers[event.Address()]...)
	var watches []textWatch
	for _, w := range m.watches {
		if w.trigger == event.Address() {
			watches = append(watches, w)
		}
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, m.device, event); err != nil {
			m.metrics.handlerErrors.Add(1)
			m.reportError(fmt.Errorf("handler for %s: %w", event.Address(), err))
		}
	}
	// handlers may have switched page
	m.state.recordPage(m.device.CurrentPage())

	for _, w := range watches {
		text, err := m.device.ReadTextContext(ctx, w.field, w.length, m.config.TextTimeout)
		if err != nil {
			m.metrics.errors.Add(1)
			m.reportError(fmt.Errorf("text watch %s: %w", w.field, err))
			continue
		}
		update := TextUpdate{Trigger: event, Field: w.field, Text: text}
		if w.fn != nil {
			w.fn(update)
		}
		if m.OnText != nil {
			m.OnText(update)
		}
	}
}

func (m *Monitor) reportError(err error) {
	m.state.recordError(err, time.Now())
	if m.OnError != nil {
		m.OnError(err)
	}
}

// adjustPollInterval slows polling down when the display has been quiet
func (m *Monitor) adjustPollInterval(started time.Time) {
	interval := m.config.PollInterval
	if m.config.IdleInterval > 0 && m.state.idleSince(started, time.Now()) > m.config.IdleAfter {
		interval = m.config.IdleInterval
	}
	m.interval.Store(int64(interval))
}

// mergeContext returns a context cancelled when either parent is done
func mergeContext(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
