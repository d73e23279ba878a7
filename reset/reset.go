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

// Package reset drives the hardware reset line of a display through GPIO
package reset

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// DefaultPulse is how long the line is held active
	DefaultPulse = 100 * time.Millisecond
	// DefaultBootDelay covers the splash screen shown after a reset
	DefaultBootDelay = time.Second
)

// Line is a reset line on a GPIO pin. The display resets while the line
// is low unless WithActiveHigh is used.
type Line struct {
	pin        gpio.PinIO
	pulse      time.Duration
	bootDelay  time.Duration
	activeHigh bool
}

// Option configures a Line
type Option func(*Line)

// WithPulse sets how long the line is held active
func WithPulse(d time.Duration) Option {
	return func(l *Line) {
		l.pulse = d
	}
}

// WithBootDelay sets the wait after releasing the line
func WithBootDelay(d time.Duration) Option {
	return func(l *Line) {
		l.bootDelay = d
	}
}

// WithActiveHigh inverts the line for boards with a transistor driver
func WithActiveHigh() Option {
	return func(l *Line) {
		l.activeHigh = true
	}
}

// Open initializes the host drivers and opens the pin by name, such as
// "GPIO17"
func Open(name string, opts ...Option) (*Line, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return New(pin, opts...), nil
}

// New wraps an already opened pin. The line is not touched until Reset.
func New(pin gpio.PinIO, opts ...Option) *Line {
	l := &Line{
		pin:       pin,
		pulse:     DefaultPulse,
		bootDelay: DefaultBootDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the pin name
func (l *Line) Name() string {
	return l.pin.Name()
}

// Reset pulses the line and waits for the display to boot
func (l *Line) Reset(ctx context.Context) error {
	active, idle := gpio.Low, gpio.High
	if l.activeHigh {
		active, idle = gpio.High, gpio.Low
	}

	if err := l.pin.Out(active); err != nil {
		return fmt.Errorf("failed to assert reset on %s: %w", l.pin.Name(), err)
	}

	pulseErr := sleep(ctx, l.pulse)

	// the line is released even when ctx is done so the display is not
	// left in reset
	if err := l.pin.Out(idle); err != nil {
		return fmt.Errorf("failed to release reset on %s: %w", l.pin.Name(), err)
	}
	if pulseErr != nil {
		return pulseErr
	}
	return sleep(ctx, l.bootDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("reset interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
