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

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/bridge"
	"github.com/ZaparooProject/go-dwin/internal/config"
	"github.com/ZaparooProject/go-dwin/polling"
)

// publisher is the part of the bridge the monitor callbacks use
type publisher interface {
	PublishEvent(dwin.Event) error
	PublishText(polling.TextUpdate) error
}

var (
	_ publisher = (*bridge.Bridge)(nil)
	_ starter   = (*bridge.Bridge)(nil)
)

// newMonitor wires logging, page navigation and text watches
func newMonitor(device *dwin.Device, cfg *config.Config, logger zerolog.Logger) (*polling.Monitor, error) {
	monitorConfig := polling.DefaultConfig()
	monitorConfig.PollInterval = cfg.Monitor.PollInterval
	monitorConfig.TextTimeout = cfg.Display.TextTimeout

	monitor, err := polling.NewMonitor(device, monitorConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	monitor.OnEvent = func(e dwin.Event) {
		if ignored(e) {
			return
		}
		logger.Info().Stringer("addr", e.Address()).Uint8("value", e.DataVal).
			Int("len", e.Length).Msg("touch event")
	}
	monitor.OnError = func(err error) {
		logger.Warn().Err(err).Msg("link error")
	}

	if cfg.Monitor.PageNav {
		monitor.Handle(cfg.Monitor.PageNavAddress, navigate(cfg.Monitor.MaxPage, logger))
	}

	for _, w := range cfg.Watches {
		name := w.Name
		err := monitor.WatchText(w.Trigger, w.Field, w.Length, func(u polling.TextUpdate) {
			logger.Info().Str("watch", name).Stringer("addr", u.Field).Str("text", u.Text).Msg("text entered")
		})
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", name, err)
		}
	}
	return monitor, nil
}

// ignored reports notifications with a zero address. Displays emit them
// for controls that have no VP assigned.
func ignored(e dwin.Event) bool {
	return e.Address() == 0
}

// navigate switches to the page number carried by the notification, the
// usual wiring for buttons that return a page index instead of using the
// display's own page jump. Values above maxPage are not page indexes.
func navigate(maxPage int, logger zerolog.Logger) polling.Handler {
	return func(ctx context.Context, device *dwin.Device, e dwin.Event) error {
		if int(e.DataVal) > maxPage {
			logger.Debug().Uint8("value", e.DataVal).Int("max", maxPage).Msg("ignoring page value")
			return nil
		}
		if int(e.DataVal) == device.CurrentPage() {
			return nil
		}
		logger.Info().Uint8("page", e.DataVal).Msg("switching page")
		if err := device.SwitchPageContext(ctx, e.DataVal); err != nil {
			return fmt.Errorf("failed to switch to page %d: %w", e.DataVal, err)
		}
		return nil
	}
}

// attachBridge forwards events and watch results to p
func attachBridge(monitor *polling.Monitor, p publisher, logger zerolog.Logger) {
	logEvent := monitor.OnEvent
	monitor.OnEvent = func(e dwin.Event) {
		if logEvent != nil {
			logEvent(e)
		}
		if ignored(e) {
			return
		}
		if err := p.PublishEvent(e); err != nil {
			logger.Warn().Err(err).Msg("event publish failed")
		}
	}
	monitor.OnText = func(u polling.TextUpdate) {
		if err := p.PublishText(u); err != nil {
			logger.Warn().Err(err).Msg("text publish failed")
		}
	}
}

// applyInits writes the configured start values
func applyInits(ctx context.Context, device *dwin.Device, inits []config.InitWrite) error {
	for _, w := range inits {
		if err := device.WriteFloatContext(ctx, w.Address, w.Value); err != nil {
			return fmt.Errorf("failed to write init value to %s: %w", w.Address, err)
		}
	}
	return nil
}

// starter is the part of the bridge serveBridge needs
type starter interface {
	Start() error
}

// serveBridge starts monitor and then b, and blocks until ctx is done or
// the monitor ends on its own. A lost link is returned as an error.
func serveBridge(ctx context.Context, monitor *polling.Monitor, b starter) error {
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	done := monitor.Done()
	if err := b.Start(); err != nil {
		_ = monitor.Stop()
		return fmt.Errorf("failed to start mqtt bridge: %w", err)
	}

	select {
	case <-ctx.Done():
		return monitor.Stop()
	case <-done:
		return monitor.Err()
	}
}
