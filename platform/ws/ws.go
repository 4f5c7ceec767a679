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

// Package ws is a platform.Client that talks JSON frames to a chat
// gateway over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oakbot/oak/platform"
)

var (
	// PingInterval is how often the client pings the gateway.
	PingInterval = 30 * time.Second

	// PongWait bounds how long the client waits for any read
	// (including pong replies) before declaring the connection
	// dead.
	PongWait = 75 * time.Second

	// WriteWait bounds a single frame write.
	WriteWait = 10 * time.Second

	// MaxBackoff caps the reconnection delay.
	MaxBackoff = time.Minute
)

// ErrStopped is returned by Send and React after Stop.
var ErrStopped = errors.New("websocket client stopped")

// frame is the gateway wire format in both directions.
type frame struct {
	Type      string `json:"type"`
	Channel   string `json:"channel,omitempty"`
	MessageId string `json:"messageId,omitempty"`
	Author    string `json:"author,omitempty"`
	Content   string `json:"content,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Client is a platform.Client over a websocket gateway.  The client
// reconnects with exponential backoff when the connection drops.
type Client struct {
	URL    string
	Header map[string][]string

	log *zap.Logger

	events   chan platform.Event
	outbound chan frame

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewClient makes a client for the given gateway URL.  A nil logger
// means no logging.
func NewClient(url string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		URL:      url,
		log:      log,
		events:   make(chan platform.Event, 32),
		outbound: make(chan frame, 32),
	}
}

// Events implements platform.Client.
func (c *Client) Events() <-chan platform.Event {
	return c.events
}

// Start dials the gateway and spawns the connection loop.  The
// initial dial is synchronous so configuration errors surface
// immediately; later drops are retried with backoff.
func (c *Client) Start(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, c.Header)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.loop(ctx, conn)
	return nil
}

// loop runs one connection at a time, reconnecting until ctx is
// done.
func (c *Client) loop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.events)

	backoff := time.Second
	for {
		if conn == nil {
			var err error
			conn, _, err = websocket.DefaultDialer.DialContext(ctx, c.URL, c.Header)
			if err != nil {
				c.log.Warn("gateway dial failed",
					zap.String("url", c.URL),
					zap.Duration("retryIn", backoff),
					zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; MaxBackoff < backoff {
					backoff = MaxBackoff
				}
				continue
			}
		}

		backoff = time.Second
		c.serve(ctx, conn)
		conn.Close()
		conn = nil

		select {
		case <-ctx.Done():
			return
		default:
		}
		c.log.Info("gateway connection lost; reconnecting")
	}
}

// serve pumps one live connection until it breaks or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	ctl := make(chan bool)
	defer close(ctl)

	go func() {
		ping := time.NewTicker(PingInterval)
		defer ping.Stop()

	LOOP:
		for {
			select {
			case <-ctl:
				break LOOP
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(WriteWait))
				break LOOP
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil,
					time.Now().Add(WriteWait)); err != nil {
					c.log.Warn("ping write failed", zap.Error(err))
					break LOOP
				}
			case f := <-c.outbound:
				js, err := json.Marshal(&f)
				if err != nil {
					c.log.Warn("outbound marshal failed", zap.Error(err))
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(WriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
					c.log.Warn("outbound write failed", zap.Error(err))
					break LOOP
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("gateway read failed", zap.Error(err))
			}
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			c.log.Warn("unparseable gateway frame",
				zap.ByteString("frame", message),
				zap.Error(err))
			continue
		}

		ev, ok := decode(f)
		if !ok {
			continue
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		default:
			c.log.Warn("event channel blocked; dropping",
				zap.String("event", ev.Name))
		}
	}
}

// decode maps a gateway frame onto a platform event.
func decode(f frame) (platform.Event, bool) {
	switch f.Type {
	case "message":
		return platform.NewMessageEvent(f.Channel, f.MessageId, f.Author, f.Content), true
	case "reaction":
		return platform.NewReactionEvent(f.Channel, f.MessageId, f.Author, f.Emoji), true
	case "ping", "ack":
		return platform.Event{}, false
	default:
		return platform.Event{
			Name: f.Type,
			Args: map[string]interface{}{
				"channel":   f.Channel,
				"messageId": f.MessageId,
				"author":    f.Author,
				"content":   f.Content,
			},
		}, true
	}
}

func (c *Client) enqueue(ctx context.Context, f frame) error {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	select {
	case c.outbound <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send implements platform.Client.
func (c *Client) Send(ctx context.Context, channel, text string) error {
	return c.enqueue(ctx, frame{
		Type:    "send",
		Channel: channel,
		Text:    text,
	})
}

// React implements platform.Client.
func (c *Client) React(ctx context.Context, channel, messageId, emoji string) error {
	return c.enqueue(ctx, frame{
		Type:      "react",
		Channel:   channel,
		MessageId: messageId,
		Emoji:     emoji,
	})
}

// Stop implements platform.Client.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
