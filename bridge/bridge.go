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

// Package bridge mirrors display activity to an MQTT broker and accepts
// page and buzzer commands from it
package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ZaparooProject/go-dwin"
	"github.com/ZaparooProject/go-dwin/polling"
)

// Topic suffixes under the prefix
const (
	TopicEvent  = "event"
	TopicText   = "text"
	TopicStatus = "status"
	TopicPage   = "page/set"
	TopicBuzzer = "buzzer/set"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

// ErrNotConnected is returned when the broker could not be reached in time
var ErrNotConnected = errors.New("mqtt not connected")

// Client is the part of paho.Client the bridge uses
type Client interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Executor runs display work on the goroutine owning the link.
// *polling.Monitor implements it.
type Executor interface {
	Do(ctx context.Context, fn polling.Operation) error
}

// Config configures a Bridge
type Config struct {
	Broker   string
	Prefix   string
	ClientID string
	// Timeout bounds broker round trips and queued display commands
	Timeout time.Duration
	QoS     byte
}

// DefaultConfig returns the bridge defaults for broker
func DefaultConfig(broker string) Config {
	return Config{
		Broker:  broker,
		Prefix:  "dwin",
		Timeout: 5 * time.Second,
	}
}

// EventMessage is the JSON published for every notification
type EventMessage struct {
	Time     time.Time `json:"time"`
	Address  string    `json:"addr"`
	Command  string    `json:"command"`
	Reserved string    `json:"reserved,omitempty"`
	Length   int       `json:"len"`
	Value    byte      `json:"value"`
}

// NewEventMessage converts an event for publishing
func NewEventMessage(e dwin.Event, at time.Time) EventMessage {
	return EventMessage{
		Time:     at.UTC(),
		Address:  e.Address().String(),
		Command:  fmt.Sprintf("0x%02X", e.Command),
		Reserved: hex.EncodeToString(e.Reserved),
		Length:   e.Length,
		Value:    e.DataVal,
	}
}

// Bridge publishes events and routes commands
type Bridge struct {
	client   Client
	executor Executor
	logger   zerolog.Logger
	now      func() time.Time
	config   Config
}

// New creates a bridge over an existing client
func New(client Client, executor Executor, config Config) (*Bridge, error) {
	if client == nil || executor == nil {
		return nil, errors.New("client and executor are required")
	}
	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		return nil, errors.New("topic prefix must not be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Bridge{
		client:   client,
		executor: executor,
		config:   config,
		logger:   dwin.Logger().With().Str("component", "bridge").Logger(),
		now:      time.Now,
	}, nil
}

// Dial creates a paho client for config and a bridge over it. Call Start
// to connect.
func Dial(config Config, executor Executor) (*Bridge, error) {
	opts, err := ClientOptions(config)
	if err != nil {
		return nil, err
	}

	var b *Bridge
	// paho reconnects on its own; subscriptions are restored on each connect
	opts.SetOnConnectHandler(func(paho.Client) {
		if b == nil {
			return
		}
		if err := b.subscribe(); err != nil {
			b.logger.Warn().Err(err).Msg("resubscribe failed")
		}
		b.publishStatus(statusOnline)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		if b != nil {
			b.logger.Warn().Err(err).Msg("mqtt connection lost")
		}
	})

	b, err = New(paho.NewClient(opts), executor, config)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ClientOptions builds paho options for config. Brokers without a scheme
// default to tcp.
func ClientOptions(config Config) (*paho.ClientOptions, error) {
	broker := config.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	u, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("invalid broker %q: %w", config.Broker, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid broker %q: missing host", config.Broker)
	}
	if u.Scheme == "mqtt" {
		u.Scheme = "tcp"
	}

	clientID := config.ClientID
	if clientID == "" {
		clientID = DefaultClientID()
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(u.Scheme + "://" + u.Host).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetWill(topic(config.Prefix, TopicStatus), statusOffline, config.QoS, true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	return opts, nil
}

// DefaultClientID derives a stable client ID from the machine ID, falling
// back to the host name
func DefaultClientID() string {
	id, err := machineid.ProtectedID("go-dwin")
	if err == nil && len(id) >= 12 {
		return "dwin-" + id[:12]
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "dwin"
	}
	return "dwin-" + host
}

// Start connects to the broker and subscribes to the command topics
func (b *Bridge) Start() error {
	token := b.client.Connect()
	if !token.WaitTimeout(b.config.Timeout) {
		return fmt.Errorf("%w: connect to %s timed out", ErrNotConnected, b.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	if err := b.subscribe(); err != nil {
		return err
	}
	b.publishStatus(statusOnline)
	b.logger.Info().Str("broker", b.config.Broker).Str("prefix", b.config.Prefix).Msg("mqtt bridge started")
	return nil
}

// Close publishes the offline status and disconnects
func (b *Bridge) Close() {
	b.publishStatus(statusOffline)
	b.client.Disconnect(250)
}

// PublishEvent publishes e as JSON to <prefix>/event
func (b *Bridge) PublishEvent(e dwin.Event) error {
	payload, err := json.Marshal(NewEventMessage(e, b.now()))
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return b.publish(topic(b.config.Prefix, TopicEvent), false, payload)
}

// PublishText publishes the text of a watched field to
// <prefix>/text/<field>, retained so late subscribers see the last value
func (b *Bridge) PublishText(u polling.TextUpdate) error {
	return b.publish(topic(b.config.Prefix, TopicText, u.Field.String()), true, []byte(u.Text))
}

func (b *Bridge) publish(name string, retained bool, payload []byte) error {
	token := b.client.Publish(name, b.config.QoS, retained, payload)
	if !token.WaitTimeout(b.config.Timeout) {
		return fmt.Errorf("publish to %s timed out", name)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", name, err)
	}
	return nil
}

func (b *Bridge) publishStatus(status string) {
	if err := b.publish(topic(b.config.Prefix, TopicStatus), true, []byte(status)); err != nil {
		b.logger.Warn().Err(err).Str("status", status).Msg("status publish failed")
	}
}

func (b *Bridge) subscribe() error {
	routes := map[string]func([]byte) error{
		TopicPage:   b.handlePage,
		TopicBuzzer: b.handleBuzzer,
	}
	for suffix, handle := range routes {
		name := topic(b.config.Prefix, suffix)
		handle := handle
		token := b.client.Subscribe(name, b.config.QoS, func(_ paho.Client, msg paho.Message) {
			if err := handle(msg.Payload()); err != nil {
				b.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("command failed")
			}
		})
		if !token.WaitTimeout(b.config.Timeout) {
			return fmt.Errorf("subscribe to %s timed out", name)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribe to %s: %w", name, err)
		}
	}
	return nil
}

func (b *Bridge) handlePage(payload []byte) error {
	page, err := strconv.ParseUint(strings.TrimSpace(string(payload)), 0, 8)
	if err != nil {
		return fmt.Errorf("%w: page %q", dwin.ErrInvalidParameter, payload)
	}
	return b.run(func(ctx context.Context, device *dwin.Device) error {
		return device.SwitchPageContext(ctx, byte(page))
	})
}

func (b *Bridge) handleBuzzer(payload []byte) error {
	on, err := parseSwitch(string(payload))
	if err != nil {
		return err
	}
	return b.run(func(ctx context.Context, device *dwin.Device) error {
		return device.SetBuzzerContext(ctx, on)
	})
}

func (b *Bridge) run(fn polling.Operation) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.config.Timeout)
	defer cancel()
	if err := b.executor.Do(ctx, fn); err != nil {
		return fmt.Errorf("display command failed: %w", err)
	}
	return nil
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	on, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("%w: switch value %q", dwin.ErrInvalidParameter, s)
	}
	return on, nil
}

func topic(prefix string, parts ...string) string {
	return strings.Join(append([]string{strings.Trim(prefix, "/")}, parts...), "/")
}
