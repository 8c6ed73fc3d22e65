// Package signaling connects a peer to the relay over a websocket.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Wyydra/meet/internal/adapter/wire"
	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var ErrClosed = errors.New("signaling connection closed")

// Client implements port.SignalSender and delivers relay frames on
// Incoming.
type Client struct {
	serverURL string
	room      string
	codec     wire.Codec

	conn     *websocket.Conn
	incoming chan domain.Message
	outgoing chan domain.Message
	done     chan struct{}
	once     sync.Once
}

func NewClient(serverURL, room string, codec wire.Codec) *Client {
	if codec == nil {
		codec = wire.JSON
	}
	return &Client{
		serverURL: serverURL,
		room:      room,
		codec:     codec,
		incoming:  make(chan domain.Message, 64),
		outgoing:  make(chan domain.Message, 64),
		done:      make(chan struct{}),
	}
}

// Connect dials the relay and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if c.room != "" {
		q := u.Query()
		q.Set("room", c.room)
		u.RawQuery = q.Encode()
	}

	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = []string{c.codec.Name()}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if got := conn.Subprotocol(); got != "" && got != c.codec.Name() {
		conn.Close()
		return fmt.Errorf("server chose subprotocol %q", got)
	}
	// A server that negotiates nothing speaks JSON.
	if conn.Subprotocol() == "" {
		c.codec = wire.JSON
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	log.Info().Str("url", u.String()).Str("codec", c.codec.Name()).Msg("Connected to relay")
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Warn().Err(err).Msg("Relay connection lost")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := c.codec.Decode(data)
		if err != nil {
			log.Debug().Err(err).Msg("Ignoring relay frame")
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			data, err := c.codec.Encode(msg)
			if err != nil {
				log.Error().Err(err).Msg("Failed to encode message")
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues msg for the relay.
func (c *Client) Send(msg domain.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Incoming is closed when the connection ends.
func (c *Client) Incoming() <-chan domain.Message {
	return c.incoming
}

func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return nil
}
