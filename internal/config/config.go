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

// Package config loads the TOML configuration shared by the commands
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ZaparooProject/go-dwin"
)

// Config is the complete command configuration
type Config struct {
	Serial  Serial
	MQTT    MQTT
	Display Display
	Watches []Watch
	Inits   []InitWrite
	Monitor Monitor
}

// Serial selects the port. An empty Port means auto-detect.
type Serial struct {
	Port     string
	BaudRate int
}

// Display holds device options
type Display struct {
	ResetPin      string
	WriteSettle   time.Duration
	FrameTimeout  time.Duration
	TextTimeout   time.Duration
	InitialPage   int
	BuzzerAddress dwin.Address
}

// Monitor holds polling options. PageNav enables switching to the page
// carried in notifications on PageNavAddress; values above MaxPage are
// ignored.
type Monitor struct {
	PollInterval   time.Duration
	MaxPage        int
	PageNavAddress dwin.Address
	PageNav        bool
}

// InitWrite is a float written once after the display is opened
type InitWrite struct {
	Value   float32
	Address dwin.Address
}

// Watch reads Field when Trigger changes
type Watch struct {
	Name    string
	Length  int
	Trigger dwin.Address
	Field   dwin.Address
}

// MQTT configures the optional bridge. An empty Broker disables it.
type MQTT struct {
	Broker   string
	Prefix   string
	ClientID string
}

type fileConfig struct {
	MQTT    fileMQTT    `toml:"mqtt"`
	Serial  fileSerial  `toml:"serial"`
	Watches []fileWatch `toml:"watch"`
	Inits   []fileInit  `toml:"init"`
	Monitor fileMonitor `toml:"monitor"`
	Display fileDisplay `toml:"display"`
}

type fileSerial struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

type fileDisplay struct {
	BuzzerAddress string `toml:"buzzer_address"`
	WriteSettle   string `toml:"write_settle"`
	FrameTimeout  string `toml:"frame_timeout"`
	TextTimeout   string `toml:"text_timeout"`
	ResetPin      string `toml:"reset_pin"`
	InitialPage   int    `toml:"initial_page"`
}

type fileMonitor struct {
	PollInterval   string `toml:"poll_interval"`
	PageNavAddress string `toml:"page_nav_address"`
	MaxPage        int    `toml:"max_page"`
}

type fileInit struct {
	Address string  `toml:"address"`
	Value   float64 `toml:"value"`
}

type fileWatch struct {
	Name    string `toml:"name"`
	Trigger string `toml:"trigger"`
	Field   string `toml:"field"`
	Length  int    `toml:"length"`
}

type fileMQTT struct {
	Broker   string `toml:"broker"`
	Prefix   string `toml:"prefix"`
	ClientID string `toml:"client_id"`
}

// DefaultMaxPage is the highest page a navigation value may select
const DefaultMaxPage = 0x0F

// Default returns the configuration used when no file is given
func Default() Config {
	device := dwin.DefaultDeviceConfig()
	return Config{
		Serial: Serial{BaudRate: 115200},
		Display: Display{
			InitialPage:   device.InitialPage,
			BuzzerAddress: device.BuzzerAddress,
			WriteSettle:   device.WriteSettle,
			FrameTimeout:  device.FrameTimeout,
			TextTimeout:   device.TextTimeout,
		},
		Monitor: Monitor{PollInterval: device.PollInterval, MaxPage: DefaultMaxPage},
		MQTT:    MQTT{Prefix: "dwin"},
	}
}

// Load reads path over the defaults and validates the result
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return build(meta, raw)
}

// Parse is Load for an in-memory document
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return build(meta, raw)
}

func build(meta toml.MetaData, raw fileConfig) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	cfg := Default()

	if meta.IsDefined("serial", "port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Serial.Port)
	}
	if meta.IsDefined("serial", "baud") {
		cfg.Serial.BaudRate = raw.Serial.Baud
	}

	if meta.IsDefined("display", "initial_page") {
		cfg.Display.InitialPage = raw.Display.InitialPage
	}
	if meta.IsDefined("display", "buzzer_address") {
		addr, err := dwin.ParseAddress(raw.Display.BuzzerAddress)
		if err != nil {
			return Config{}, fmt.Errorf("parse display.buzzer_address: %w", err)
		}
		cfg.Display.BuzzerAddress = addr
	}
	if meta.IsDefined("display", "reset_pin") {
		cfg.Display.ResetPin = strings.TrimSpace(raw.Display.ResetPin)
	}

	durations := []struct {
		dst  *time.Duration
		key  []string
		text string
	}{
		{&cfg.Display.WriteSettle, []string{"display", "write_settle"}, raw.Display.WriteSettle},
		{&cfg.Display.FrameTimeout, []string{"display", "frame_timeout"}, raw.Display.FrameTimeout},
		{&cfg.Display.TextTimeout, []string{"display", "text_timeout"}, raw.Display.TextTimeout},
		{&cfg.Monitor.PollInterval, []string{"monitor", "poll_interval"}, raw.Monitor.PollInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key...) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.text))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", strings.Join(d.key, "."), err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("monitor", "page_nav_address") {
		addr, err := dwin.ParseAddress(raw.Monitor.PageNavAddress)
		if err != nil {
			return Config{}, fmt.Errorf("parse monitor.page_nav_address: %w", err)
		}
		cfg.Monitor.PageNavAddress = addr
		cfg.Monitor.PageNav = true
	}
	if meta.IsDefined("monitor", "max_page") {
		cfg.Monitor.MaxPage = raw.Monitor.MaxPage
	}

	for i, w := range raw.Inits {
		addr, err := dwin.ParseAddress(w.Address)
		if err != nil {
			return Config{}, fmt.Errorf("init %d: parse address: %w", i, err)
		}
		cfg.Inits = append(cfg.Inits, InitWrite{Address: addr, Value: float32(w.Value)})
	}

	for i, w := range raw.Watches {
		watch, err := buildWatch(w)
		if err != nil {
			return Config{}, fmt.Errorf("watch %d: %w", i, err)
		}
		cfg.Watches = append(cfg.Watches, watch)
	}

	if meta.IsDefined("mqtt", "broker") {
		cfg.MQTT.Broker = strings.TrimSpace(raw.MQTT.Broker)
	}
	if meta.IsDefined("mqtt", "prefix") {
		cfg.MQTT.Prefix = strings.Trim(strings.TrimSpace(raw.MQTT.Prefix), "/")
	}
	if meta.IsDefined("mqtt", "client_id") {
		cfg.MQTT.ClientID = strings.TrimSpace(raw.MQTT.ClientID)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func buildWatch(w fileWatch) (Watch, error) {
	trigger, err := dwin.ParseAddress(w.Trigger)
	if err != nil {
		return Watch{}, fmt.Errorf("parse trigger: %w", err)
	}
	field, err := dwin.ParseAddress(w.Field)
	if err != nil {
		return Watch{}, fmt.Errorf("parse field: %w", err)
	}
	name := strings.TrimSpace(w.Name)
	if name == "" {
		name = field.String()
	}
	return Watch{Name: name, Trigger: trigger, Field: field, Length: w.Length}, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error

	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.BaudRate))
	}
	if c.Display.InitialPage > 0xFF {
		errs = append(errs, fmt.Errorf("display.initial_page %d out of range", c.Display.InitialPage))
	}
	if c.Display.WriteSettle < 0 {
		errs = append(errs, errors.New("display.write_settle must not be negative"))
	}
	if c.Display.FrameTimeout <= 0 {
		errs = append(errs, errors.New("display.frame_timeout must be positive"))
	}
	if c.Display.TextTimeout <= 0 {
		errs = append(errs, errors.New("display.text_timeout must be positive"))
	}
	if c.Monitor.PollInterval <= 0 {
		errs = append(errs, errors.New("monitor.poll_interval must be positive"))
	}
	if c.Monitor.MaxPage < 0 || c.Monitor.MaxPage > 0xFF {
		errs = append(errs, fmt.Errorf("monitor.max_page %d out of range", c.Monitor.MaxPage))
	}
	for _, w := range c.Watches {
		if w.Length < 1 || w.Length > dwin.MaxStringLength {
			errs = append(errs, fmt.Errorf("watch %s: length must be 1..%d, got %d",
				w.Name, dwin.MaxStringLength, w.Length))
		}
	}
	if c.MQTT.Broker != "" && c.MQTT.Prefix == "" {
		errs = append(errs, errors.New("mqtt.prefix must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DeviceOptions converts the display section to device options
func (c *Config) DeviceOptions() []dwin.Option {
	return []dwin.Option{
		dwin.WithInitialPage(c.Display.InitialPage),
		dwin.WithBuzzerAddress(c.Display.BuzzerAddress),
		dwin.WithWriteSettle(c.Display.WriteSettle),
		dwin.WithFrameTimeout(c.Display.FrameTimeout),
		dwin.WithTextTimeout(c.Display.TextTimeout),
		dwin.WithPollInterval(c.Monitor.PollInterval),
	}
}
