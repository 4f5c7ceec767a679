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

// Package platform couples the bot to a chat platform: a stream of
// inbound events plus an outbound messenger.
package platform

import (
	"context"
)

// Standard event names.  A platform is free to emit others; the
// interaction engine dispatches on the name either way.
const (
	EventMessage  = "message"
	EventReaction = "reaction"
)

// Event is one inbound platform occurrence.  Args carry the
// event-specific payload ("channel", "author", "content",
// "messageId", "emoji", ...).
type Event struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Arg returns a named payload value as a string ("" if absent or not
// a string).
func (e *Event) Arg(name string) string {
	s, _ := e.Args[name].(string)
	return s
}

// NewMessageEvent makes a standard message event.
func NewMessageEvent(channel, messageId, author, content string) Event {
	return Event{
		Name: EventMessage,
		Args: map[string]interface{}{
			"channel":   channel,
			"messageId": messageId,
			"author":    author,
			"content":   content,
		},
	}
}

// NewReactionEvent makes a standard reaction event.
func NewReactionEvent(channel, messageId, author, emoji string) Event {
	return Event{
		Name: EventReaction,
		Args: map[string]interface{}{
			"channel":   channel,
			"messageId": messageId,
			"author":    author,
			"emoji":     emoji,
		},
	}
}

// Client provides channels for event input and methods for message
// output.
//
// For example, an implementation could couple the bot to a chat
// gateway over a websocket, or to an MQTT broker.
type Client interface {
	// Start establishes the platform connection.
	Start(ctx context.Context) error

	// Events returns the inbound event channel.  The channel is
	// closed when the client stops for good.
	Events() <-chan Event

	// Send posts text to a channel.
	Send(ctx context.Context, channel, text string) error

	// React attaches an emoji reaction to a message.
	React(ctx context.Context, channel, messageId, emoji string) error

	// Stop shuts down the connection.
	Stop(ctx context.Context) error
}
