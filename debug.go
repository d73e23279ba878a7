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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	logMu        sync.RWMutex
	pkgLogger    = log.Logger.With().Str("component", "dwin").Logger()
	debugEnabled bool
)

// SetLogger replaces the logger used by the library
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	pkgLogger = l
}

// SetDebugEnabled turns frame level debug output on or off
func SetDebugEnabled(enabled bool) {
	logMu.Lock()
	defer logMu.Unlock()
	debugEnabled = enabled
}

// Logger returns the logger used by the library
func Logger() *zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	l := pkgLogger
	return &l
}

// debugEvent returns a debug event, or nil when debug output is off.
// zerolog events are nil-safe so callers chain without checking.
func debugEvent() *zerolog.Event {
	logMu.RLock()
	enabled := debugEnabled
	l := pkgLogger
	logMu.RUnlock()
	if !enabled {
		return nil
	}
	return l.Debug()
}

func debugf(format string, args ...any) {
	debugEvent().Msgf(format, args...)
}

func debugFrame(dir string, data []byte) {
	debugEvent().Str("dir", dir).Hex("frame", data).Msg("frame")
}
