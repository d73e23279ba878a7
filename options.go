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
	"fmt"
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithRetryConfig sets the retry configuration for the device
func WithRetryConfig(config *RetryConfig) Option {
	return func(d *Device) error {
		d.SetRetryConfig(config)
		return nil
	}
}

// WithWriteRetry wraps the transport so transient write failures are retried
func WithWriteRetry() Option {
	return func(d *Device) error {
		if _, ok := d.transport.(*TransportWithRetry); ok {
			return nil
		}
		d.transport = NewTransportWithRetry(d.transport, d.config.RetryConfig)
		return nil
	}
}

// WithMaxRetries sets the maximum number of write attempts
func WithMaxRetries(maxAttempts int) Option {
	return func(device *Device) error {
		if device.config.RetryConfig == nil {
			device.config.RetryConfig = DefaultRetryConfig()
		}
		device.config.RetryConfig.MaxAttempts = maxAttempts
		if tr, ok := device.transport.(*TransportWithRetry); ok {
			tr.SetRetryConfig(device.config.RetryConfig)
		}
		return nil
	}
}

// WithWriteSettle sets the delay between a write and the acknowledgment drain
func WithWriteSettle(settle time.Duration) Option {
	return func(d *Device) error {
		if settle < 0 {
			return fmt.Errorf("%w: negative write settle %s", ErrInvalidParameter, settle)
		}
		d.config.WriteSettle = settle
		return nil
	}
}

// WithFrameTimeout sets how long a partially received notification is kept
func WithFrameTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: frame timeout must be positive", ErrInvalidParameter)
		}
		d.config.FrameTimeout = timeout
		return nil
	}
}

// WithPollInterval sets the sleep between polls in Listen
func WithPollInterval(interval time.Duration) Option {
	return func(d *Device) error {
		if interval <= 0 {
			return fmt.Errorf("%w: poll interval must be positive", ErrInvalidParameter)
		}
		d.config.PollInterval = interval
		return nil
	}
}

// WithTextTimeout sets the default timeout of ReadText
func WithTextTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: text timeout must be positive", ErrInvalidParameter)
		}
		d.config.TextTimeout = timeout
		return nil
	}
}

// WithBuzzerAddress overrides the VP driven by SetBuzzer
func WithBuzzerAddress(addr Address) Option {
	return func(d *Device) error {
		d.config.BuzzerAddress = addr
		return nil
	}
}

// WithInitialPage sets the page shown by Init. A negative page skips the switch.
func WithInitialPage(page int) Option {
	return func(d *Device) error {
		if page > 0xFF {
			return fmt.Errorf("%w: page %d out of range", ErrInvalidParameter, page)
		}
		d.config.InitialPage = page
		return nil
	}
}

// WithResetter sets the hardware reset line pulsed by Init
func WithResetter(r Resetter) Option {
	return func(d *Device) error {
		d.resetter = r
		return nil
	}
}
