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

/*
Package dwin provides a pure Go library for driving DWIN DGUS HMI displays
over a serial link.

A DGUS display exposes its UI through variable pointers (VPs): 16-bit
addresses whose contents drive numbers, text, icons and trend charts. The
host writes VPs to update the screen, and the display sends notification
frames when the user touches a control. Every frame starts with 5A A5,
followed by a length byte and a command byte (0x82 write, 0x83 read).

Features:
  - Float, integer, text and raw VP writes
  - Page switching, buzzer control and trend chart curves
  - Non-blocking notification decoder that resumes across polls
  - Bounded text reads with typed timeout errors
  - Retry logic with configurable backoff
  - UART transport, port detection and GPIO reset line support

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-dwin"
	    "github.com/ZaparooProject/go-dwin/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer transport.Close()

	device, err := dwin.New(transport, dwin.WithInitialPage(1))
	if err != nil {
	    log.Fatal(err)
	}
	if err := device.Init(); err != nil {
	    log.Fatal(err)
	}

	_ = device.WriteFloat(0x1200, 21.5)

	for {
	    event, err := device.PollEvent()
	    if err != nil {
	        log.Println(err)
	        continue
	    }
	    if event.Valid {
	        fmt.Printf("VP %s changed to %d\n", event.Address(), event.DataVal)
	    }
	    time.Sleep(10 * time.Millisecond)
	}

Acknowledgments:

The display answers every write with 5A A5 03 82 4F 4B. Write operations
wait for the configured settle time and then discard everything buffered,
so acknowledgments never reach the decoder. A notification that arrives
inside that window is lost as well.

Error Handling:

	var timeout *dwin.ReadTimeoutError
	if errors.As(err, &timeout) {
	    // the field could not be read, which is not the same as empty
	}

	if errors.Is(err, dwin.ErrTextTruncated) {
	    // the frame was sent with the first maxLen bytes
	}

Thread Safety:

Device operations are not thread-safe. The polling package provides a
Monitor that owns the device and lets other goroutines queue work.
*/
package dwin
