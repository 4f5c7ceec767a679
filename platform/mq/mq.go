/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mq is a platform.Client that talks to an MQTT broker:
// events arrive as JSON on a subscription topic, and outbound
// messages are published as JSON commands.
package mq

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/oakbot/oak/platform"
)

// Options configure the broker session.
type Options struct {
	// Broker is the broker URL (e.g. "tcp://localhost:1883").
	Broker string

	// ClientId identifies this session to the broker.
	ClientId string

	Username string
	Password string

	// EventTopic is the subscription for inbound events.
	EventTopic string

	// CommandTopic is where outbound send/react commands are
	// published.
	CommandTopic string

	QoS       byte
	KeepAlive time.Duration

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.EventTopic == "" {
		out.EventTopic = "oak/events"
	}
	if out.CommandTopic == "" {
		out.CommandTopic = "oak/commands"
	}
	if out.KeepAlive == 0 {
		out.KeepAlive = 60 * time.Second
	}
	if out.Quiesce == 0 {
		out.Quiesce = 100
	}
	return out
}

// command is the outbound wire format.
type command struct {
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	MessageId string `json:"messageId,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Bridge is a platform.Client over an MQTT broker.
type Bridge struct {
	opts Options
	log  *zap.Logger

	client mqtt.Client
	events chan platform.Event
}

// NewBridge makes a bridge with the given options.  A nil logger
// means no logging.
func NewBridge(opts Options, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		opts:   opts.withDefaults(),
		log:    log,
		events: make(chan platform.Event, 32),
	}
}

// Events implements platform.Client.
func (b *Bridge) Events() <-chan platform.Event {
	return b.events
}

// Start creates the MQTT session and subscribes to the event topic.
func (b *Bridge) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.opts.Broker)
	opts.SetClientID(b.opts.ClientId)
	opts.SetKeepAlive(b.opts.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.Username = b.opts.Username
	opts.Password = b.opts.Password
	opts.AutoReconnect = true
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		b.log.Warn("broker connection lost", zap.Error(err))
	}
	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		b.consume(ctx, msg.Topic(), msg.Payload())
	}

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if t := b.client.Subscribe(b.opts.EventTopic, b.opts.QoS, nil); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	b.log.Info("subscribed to broker",
		zap.String("broker", b.opts.Broker),
		zap.String("topic", b.opts.EventTopic))

	return nil
}

// consume decodes one inbound payload and forwards it as an event.
// A payload that isn't an event document is wrapped in a generic
// event carrying the topic and raw payload.
func (b *Bridge) consume(ctx context.Context, topic string, payload []byte) {
	var ev platform.Event
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Name == "" {
		ev = platform.Event{
			Name: topic,
			Args: map[string]interface{}{
				"topic":   topic,
				"payload": string(payload),
			},
		}
	}

	select {
	case b.events <- ev:
	case <-ctx.Done():
	default:
		b.log.Warn("event channel blocked; dropping",
			zap.String("topic", topic))
	}
}

func (b *Bridge) publish(cmd command) error {
	js, err := json.Marshal(&cmd)
	if err != nil {
		return err
	}
	token := b.client.Publish(b.opts.CommandTopic, b.opts.QoS, false, js)
	token.Wait()
	return token.Error()
}

// Send implements platform.Client.
func (b *Bridge) Send(ctx context.Context, channel, text string) error {
	return b.publish(command{
		Type:    "send",
		Channel: channel,
		Text:    text,
	})
}

// React implements platform.Client.
func (b *Bridge) React(ctx context.Context, channel, messageId, emoji string) error {
	return b.publish(command{
		Type:      "react",
		Channel:   channel,
		MessageId: messageId,
		Emoji:     emoji,
	})
}

// Stop implements platform.Client.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.client != nil && b.client.IsConnected() {
		if t := b.client.Unsubscribe(b.opts.EventTopic); t.Wait() && t.Error() != nil {
			b.log.Warn("unsubscribe failed", zap.Error(t.Error()))
		}
		b.client.Disconnect(b.opts.Quiesce)
	}
	close(b.events)
	return nil
}
