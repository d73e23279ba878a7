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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-dwin"
)

const fullConfig = `
[serial]
port = "/dev/ttyUSB0"
baud = 921600

[display]
initial_page = 2
buzzer_address = "0x00A0"
write_settle = "20ms"
frame_timeout = "150ms"
text_timeout = "1s"
reset_pin = "GPIO17"

[monitor]
poll_interval = "5ms"
page_nav_address = "0x1100"
max_page = 7

[[init]]
address = "0x6000"
value = 0.0

[[init]]
address = "0x6002"
value = 1.5

[[watch]]
name = "ssid"
trigger = "0x1000"
field = "0x2000"
length = 32

[[watch]]
trigger = "0x1001"
field = "0x2100"
length = 8

[mqtt]
broker = "tcp://localhost:1883"
prefix = "/hmi/"
client_id = "panel-1"
`

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, dwin.AddrBuzzer, cfg.Display.BuzzerAddress)
	assert.False(t, cfg.Monitor.PageNav)
	assert.Equal(t, 0x0F, cfg.Monitor.MaxPage)
	assert.Empty(t, cfg.Inits)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Equal(t, "dwin", cfg.MQTT.Prefix)
}

func TestParse_Full(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(fullConfig)
	require.NoError(t, err)

	assert.Equal(t, Serial{Port: "/dev/ttyUSB0", BaudRate: 921600}, cfg.Serial)
	assert.Equal(t, Display{
		ResetPin:      "GPIO17",
		WriteSettle:   20 * time.Millisecond,
		FrameTimeout:  150 * time.Millisecond,
		TextTimeout:   time.Second,
		InitialPage:   2,
		BuzzerAddress: 0x00A0,
	}, cfg.Display)
	assert.Equal(t, Monitor{
		PollInterval:   5 * time.Millisecond,
		MaxPage:        7,
		PageNavAddress: 0x1100,
		PageNav:        true,
	}, cfg.Monitor)
	assert.Equal(t, []InitWrite{
		{Address: 0x6000, Value: 0},
		{Address: 0x6002, Value: 1.5},
	}, cfg.Inits)
	assert.Equal(t, []Watch{
		{Name: "ssid", Trigger: 0x1000, Field: 0x2000, Length: 32},
		{Name: "0x2100", Trigger: 0x1001, Field: 0x2100, Length: 8},
	}, cfg.Watches)
	assert.Equal(t, MQTT{Broker: "tcp://localhost:1883", Prefix: "hmi", ClientID: "panel-1"}, cfg.MQTT)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse("[serial]\nport = \"COM3\"\n")
	require.NoError(t, err)

	want := Default()
	want.Serial.Port = "COM3"
	assert.Equal(t, want, cfg)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "syntax", doc: "[serial\n", want: "parse config"},
		{name: "unknown key", doc: "[serial]\nspeed = 9600\n", want: "serial.speed"},
		{name: "bad duration", doc: "[display]\nwrite_settle = \"soon\"\n", want: "display.write_settle"},
		{name: "bad address", doc: "[monitor]\npage_nav_address = \"zz\"\n", want: "monitor.page_nav_address"},
		{name: "bad watch", doc: "[[watch]]\ntrigger = \"0x1\"\nfield = \"nope\"\nlength = 4\n", want: "watch 0"},
		{name: "watch too long", doc: "[[watch]]\ntrigger = \"0x1\"\nfield = \"0x2\"\nlength = 300\n", want: "length must be"},
		{name: "zero baud", doc: "[serial]\nbaud = 0\n", want: "serial.baud"},
		{name: "page range", doc: "[display]\ninitial_page = 256\n", want: "initial_page"},
		{name: "max page range", doc: "[monitor]\nmax_page = 300\n", want: "monitor.max_page"},
		{name: "bad init", doc: "[[init]]\naddress = \"zz\"\nvalue = 1.0\n", want: "init 0"},
		{name: "zero poll", doc: "[monitor]\npoll_interval = \"0s\"\n", want: "poll_interval"},
		{name: "empty prefix", doc: "[mqtt]\nbroker = \"tcp://h:1883\"\nprefix = \"/\"\n", want: "mqtt.prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dwin.toml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestConfig_DeviceOptions(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(fullConfig)
	require.NoError(t, err)

	device, err := dwin.New(dwin.NewMockTransport(), cfg.DeviceOptions()...)
	require.NoError(t, err)

	got := device.Config()
	assert.Equal(t, 2, got.InitialPage)
	assert.Equal(t, dwin.Address(0x00A0), got.BuzzerAddress)
	assert.Equal(t, 20*time.Millisecond, got.WriteSettle)
	assert.Equal(t, 150*time.Millisecond, got.FrameTimeout)
	assert.Equal(t, time.Second, got.TextTimeout)
	assert.Equal(t, 5*time.Millisecond, got.PollInterval)
}
