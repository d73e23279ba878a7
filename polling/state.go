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
	"sync"
	"time"

	"github.com/ZaparooProject/go-dwin"
)

// State is a snapshot of what the Monitor has seen on the link
type State struct {
	LastEventAt time.Time
	LastErrorAt time.Time
	LastError   error
	LastEvent   dwin.Event
	Page        int
	Running     bool
}

// linkState is written by the monitor goroutine and read by anyone
type linkState struct {
	state State
	mu    sync.RWMutex
}

func (s *linkState) get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *linkState) setRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Running = running
}

func (s *linkState) recordEvent(event dwin.Event, page int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastEvent = event
	s.state.LastEventAt = at
	s.state.Page = page
}

func (s *linkState) recordPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Page = page
}

func (s *linkState) recordError(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = err
	s.state.LastErrorAt = at
}

// idleSince reports how long the link has been quiet, measured from start
// when nothing has arrived yet
func (s *linkState) idleSince(start, now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := s.state.LastEventAt
	if last.Before(start) {
		last = start
	}
	return now.Sub(last)
}
