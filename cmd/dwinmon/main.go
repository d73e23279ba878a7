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
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/bridge"
	"github.com/ZaparooProject/go-dwin/internal/config"
	"github.com/ZaparooProject/go-dwin/internal/connect"
)

type flags struct {
	configPath *string
	devicePath *string
	debug      *bool
}

func parseFlags() *flags {
	f := &flags{
		configPath: flag.String("config", "", "Path to a TOML configuration file"),
		devicePath: flag.String("device", "",
			"Serial device path (e.g., /dev/ttyUSB0 or COM3). Overrides the config; empty means auto-detect."),
		debug: flag.Bool("debug", false, "Enable frame level debug output"),
	}
	flag.Parse()
	return f
}

func initLogger(debug bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", "dwinmon").Logger()
	log.Logger = logger
	dwin.SetLogger(logger)
	dwin.SetDebugEnabled(debug)
	return logger
}

func loadConfig(f *flags) (config.Config, error) {
	cfg := config.Default()
	if *f.configPath != "" {
		loaded, err := config.Load(*f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if *f.devicePath != "" {
		cfg.Serial.Port = *f.devicePath
	}
	return cfg, nil
}

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("dwinmon failed")
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()
	logger := initLogger(*f.debug)

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	device, info, err := connect.Open(ctx, connect.Options{
		Port:          cfg.Serial.Port,
		BaudRate:      cfg.Serial.BaudRate,
		ResetPin:      cfg.Display.ResetPin,
		DeviceOptions: cfg.DeviceOptions(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to display: %w", err)
	}
	defer func() { _ = device.Close() }()

	if err := applyInits(ctx, device, cfg.Inits); err != nil {
		return err
	}

	monitor, err := newMonitor(device, &cfg, logger)
	if err != nil {
		return err
	}

	if cfg.MQTT.Broker != "" {
		b, err := bridge.Dial(bridge.Config{
			Broker:   cfg.MQTT.Broker,
			Prefix:   cfg.MQTT.Prefix,
			ClientID: cfg.MQTT.ClientID,
			Timeout:  5 * time.Second,
		}, monitor)
		if err != nil {
			return fmt.Errorf("failed to create mqtt bridge: %w", err)
		}
		// the bridge needs the monitor running to route commands
		attachBridge(monitor, b, logger)
		defer b.Close()
		logger.Info().Str("port", info.Path).Msg("monitoring display, press Ctrl+C to stop")
		return serveBridge(ctx, monitor, b)
	}

	logger.Info().Str("port", info.Path).Msg("monitoring display, press Ctrl+C to stop")
	err = monitor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
