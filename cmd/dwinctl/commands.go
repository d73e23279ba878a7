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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/detection"
)

// command is one shell command. run reports through out so the same code
// serves the interactive shell and tests.
type command struct {
	run         func(ctx context.Context, s *session, args []string, out func(string)) error
	name        string
	help        string
	aliases     []string
	needsDevice bool
}

var errUsage = errors.New("usage")

func usage(cmd, format string) error {
	return fmt.Errorf("%w: %s %s", errUsage, cmd, format)
}

var commands = []command{
	{
		name: "page", help: "PAGE - switch to a page", needsDevice: true,
		aliases: []string{"p"},
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) != 1 {
				return usage("page", "PAGE")
			}
			page, err := strconv.ParseUint(args[0], 0, 8)
			if err != nil {
				return fmt.Errorf("invalid page %q: %w", args[0], err)
			}
			if err := s.device.SwitchPageContext(ctx, byte(page)); err != nil {
				return err
			}
			out(fmt.Sprintf("page %d", page))
			return nil
		},
	},
	{
		name: "float", help: "ADDR VALUE - write a 32 bit float", needsDevice: true,
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) != 2 {
				return usage("float", "ADDR VALUE")
			}
			addr, err := dwin.ParseAddress(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 32)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			if err := s.device.WriteFloatContext(ctx, addr, float32(value)); err != nil {
				return err
			}
			out(fmt.Sprintf("%s = %g", addr, float32(value)))
			return nil
		},
	},
	{
		name: "int", help: "ADDR VALUE - write a 16 bit integer", needsDevice: true,
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) != 2 {
				return usage("int", "ADDR VALUE")
			}
			addr, err := dwin.ParseAddress(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseInt(args[1], 0, 16)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			if err := s.device.WriteInt16Context(ctx, addr, int16(value)); err != nil {
				return err
			}
			out(fmt.Sprintf("%s = %d", addr, value))
			return nil
		},
	},
	{
		name: "text", help: "ADDR LEN TEXT... - write a text field", needsDevice: true,
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) < 3 {
				return usage("text", "ADDR LEN TEXT...")
			}
			addr, err := dwin.ParseAddress(args[0])
			if err != nil {
				return err
			}
			length, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid length %q: %w", args[1], err)
			}
			text := strings.Join(args[2:], " ")
			err = s.device.WriteStringContext(ctx, addr, text, length)
			var warning *dwin.TruncationWarning
			if errors.As(err, &warning) {
				out(fmt.Sprintf("warning: %v", warning))
			} else if err != nil {
				return err
			}
			out(fmt.Sprintf("%s = %q", addr, text))
			return nil
		},
	},
	{
		name: "read", help: "ADDR LEN [TIMEOUT] - read a text field", needsDevice: true,
		aliases: []string{"r"},
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) < 2 || len(args) > 3 {
				return usage("read", "ADDR LEN [TIMEOUT]")
			}
			addr, err := dwin.ParseAddress(args[0])
			if err != nil {
				return err
			}
			length, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid length %q: %w", args[1], err)
			}
			var timeout time.Duration
			if len(args) == 3 {
				if timeout, err = time.ParseDuration(args[2]); err != nil {
					return fmt.Errorf("invalid timeout %q: %w", args[2], err)
				}
			}
			text, err := s.device.ReadTextContext(ctx, addr, length, timeout)
			if err != nil {
				return err
			}
			out(fmt.Sprintf("%s: %q", addr, text))
			return nil
		},
	},
	{
		name: "buzzer", help: "on|off - switch the buzzer", needsDevice: true,
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) != 1 {
				return usage("buzzer", "on|off")
			}
			var on bool
			switch strings.ToLower(args[0]) {
			case "on", "1", "true":
				on = true
			case "off", "0", "false":
			default:
				return usage("buzzer", "on|off")
			}
			if err := s.device.SetBuzzerContext(ctx, on); err != nil {
				return err
			}
			out("buzzer " + strings.ToLower(args[0]))
			return nil
		},
	},
	{
		name: "curve", help: "VALUE... - append points to the trend curve", needsDevice: true,
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			if len(args) == 0 {
				return usage("curve", "VALUE...")
			}
			for _, arg := range args {
				value, err := strconv.ParseUint(arg, 0, 8)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", arg, err)
				}
				if err := s.device.AppendCurvePointContext(ctx, byte(value)); err != nil {
					return err
				}
			}
			out(fmt.Sprintf("appended %d point(s)", len(args)))
			return nil
		},
	},
	{
		name: "clear-curve", help: "- clear the trend curve", needsDevice: true,
		run: func(ctx context.Context, s *session, _ []string, out func(string)) error {
			if err := s.device.ClearCurveContext(ctx); err != nil {
				return err
			}
			out("curve cleared")
			return nil
		},
	},
	{
		name: "listen", help: "[DURATION] - print touch events (default 10s)", needsDevice: true,
		aliases: []string{"l"},
		run: func(ctx context.Context, s *session, args []string, out func(string)) error {
			duration := 10 * time.Second
			if len(args) == 1 {
				d, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", args[0], err)
				}
				duration = d
			}
			listenCtx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()

			count := 0
			for {
				event, err := s.device.ListenContext(listenCtx)
				var frameErr *dwin.FrameTimeoutError
				switch {
				case errors.As(err, &frameErr):
					out(fmt.Sprintf("dropped: %v", frameErr))
					continue
				case errors.Is(err, context.DeadlineExceeded):
					out(fmt.Sprintf("%d event(s)", count))
					return nil
				case err != nil:
					return err
				}
				count++
				out(event.String())
			}
		},
	},
	{
		name: "ports", help: "- list serial ports that may be displays",
		run: func(ctx context.Context, s *session, _ []string, out func(string)) error {
			opts := detection.DefaultOptions()
			opts.BaudRate = s.baudRate
			devices, err := s.detect(ctx, &opts)
			if errors.Is(err, detection.ErrNoDevicesFound) {
				out("no ports found")
				return nil
			}
			if err != nil {
				return err
			}
			for _, d := range devices {
				out(d.String())
			}
			return nil
		},
	},
}
