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

package polling

import (
	"errors"
	"time"
)

// Config holds configuration options for the Monitor
type Config struct {
	// PollInterval is the time between polls while the display is active
	PollInterval time.Duration
	// IdleInterval is used once nothing has arrived for IdleAfter. Zero
	// keeps PollInterval.
	IdleInterval time.Duration
	// IdleAfter is how long without events before slowing down
	IdleAfter time.Duration
	// TextTimeout bounds each text watch read; zero uses the device default
	TextTimeout time.Duration
	// QueueSize is the capacity of the Do queue
	QueueSize int
}

// DefaultConfig returns sensible default configuration values
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 10 * time.Millisecond,
		IdleInterval: 50 * time.Millisecond,
		IdleAfter:    30 * time.Second,
		QueueSize:    16,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.IdleInterval < 0 || c.IdleAfter < 0 || c.TextTimeout < 0 {
		return errors.New("idle interval, idle after and text timeout must not be negative")
	}
	if c.QueueSize < 1 {
		return errors.New("queue size must be at least 1")
	}
	return nil
}
