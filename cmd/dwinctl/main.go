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

	"github.com/abiosoft/ishell"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/detection"
	"github.com/ZaparooProject/go-dwin/internal/config"
	"github.com/ZaparooProject/go-dwin/internal/connect"
)

const unconnectedPrompt = "dwin [none] > "

// session holds the lazily opened device shared by all commands
type session struct {
	open     func(ctx context.Context) (*dwin.Device, string, error)
	detect   func(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error)
	device   *dwin.Device
	ctx      context.Context
	lastErr  error
	port     string
	baudRate int
}

func newSession(ctx context.Context, cfg *config.Config) *session {
	return &session{
		ctx:      ctx,
		baudRate: cfg.Serial.BaudRate,
		detect:   detection.DetectAllContext,
		open: func(ctx context.Context) (*dwin.Device, string, error) {
			opts := cfg.DeviceOptions()
			// the shell leaves the current page alone
			opts = append(opts, dwin.WithInitialPage(-1))
			device, info, err := connect.Open(ctx, connect.Options{
				Port:          cfg.Serial.Port,
				BaudRate:      cfg.Serial.BaudRate,
				ResetPin:      cfg.Display.ResetPin,
				DeviceOptions: opts,
			})
			if err != nil {
				return nil, "", err
			}
			return device, info.Path, nil
		},
	}
}

// connect opens the device on first use
func (s *session) connect() error {
	if s.device != nil {
		return nil
	}
	device, port, err := s.open(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to display: %w", err)
	}
	s.device = device
	s.port = port
	return nil
}

// exec runs cmd and records its error for the exit status
func (s *session) exec(cmd command, args []string, out func(string)) error {
	err := s.execute(cmd, args, out)
	s.lastErr = err
	return err
}

func (s *session) execute(cmd command, args []string, out func(string)) error {
	if cmd.needsDevice {
		if err := s.connect(); err != nil {
			return err
		}
	}
	return cmd.run(s.ctx, s, args, out)
}

func (s *session) close() {
	if s.device != nil {
		_ = s.device.Close()
		s.device = nil
		s.port = ""
	}
}

func newShell(s *session) *ishell.Shell {
	shell := ishell.New()
	shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		cmd := cmd
		shell.AddCmd(&ishell.Cmd{
			Name:    cmd.name,
			Aliases: cmd.aliases,
			Help:    cmd.help,
			Func: func(c *ishell.Context) {
				wasConnected := s.device != nil
				err := s.exec(cmd, c.Args, func(line string) { c.Println(line) })
				if !wasConnected && s.device != nil {
					c.SetPrompt(fmt.Sprintf("dwin [%s] > ", s.port))
				}
				if err != nil {
					c.Err(err)
				}
			},
		})
	}
	return shell
}

func initLogger(debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
	log.Logger = logger
	dwin.SetLogger(logger)
	dwin.SetDebugEnabled(debug)
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	devicePath := flag.String("device", "",
		"Serial device path (e.g., /dev/ttyUSB0 or COM3). Empty means auto-detect.")
	baud := flag.Int("baud", 0, "Baud rate, overrides the config")
	debug := flag.Bool("debug", false, "Enable frame level debug output")
	flag.Parse()

	initLogger(*debug)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *devicePath != "" {
		cfg.Serial.Port = *devicePath
	}
	if *baud > 0 {
		cfg.Serial.BaudRate = *baud
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	s := newSession(ctx, &cfg)
	defer s.close()
	shell := newShell(s)

	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return 1
		}
		if s.lastErr != nil {
			if errors.Is(s.lastErr, errUsage) {
				return 2
			}
			return 1
		}
		return 0
	}

	shell.Println("DWIN display shell. Type 'help' for commands.")
	shell.Run()
	return 0
}
