package http

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Wyydra/meet/internal/adapter/wire"
	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// WSClient is one browser or peer connection. Reads happen on the handler
// goroutine, writes on WritePump; nothing else touches conn.
type WSClient struct {
	id    domain.ClientID
	room  domain.RoomID
	conn  *websocket.Conn
	codec wire.Codec
	log   zerolog.Logger

	send      chan domain.Message
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(id domain.ClientID, room domain.RoomID, conn *websocket.Conn, codec wire.Codec, queue int) *WSClient {
	return &WSClient{
		id:    id,
		room:  room,
		conn:  conn,
		codec: codec,
		log:   log.With().Str("client_id", id.String()).Str("room", room.String()).Logger(),
		send:  make(chan domain.Message, queue),
		done:  make(chan struct{}),
	}
}

func (c *WSClient) ID() domain.ClientID {
	return c.id
}

func (c *WSClient) Send(msg domain.Message) error {
	select {
	case <-c.done:
		return domain.ErrClientNotFound
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return domain.ErrSendQueueFull
	}
}

// Close stops the write pump, which sends a close frame and closes the
// connection; the blocked read then returns.
func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// WritePump drains the send queue to the connection and keeps it alive
// with pings.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case msg := <-c.send:
			data, err := c.codec.Encode(msg)
			if err != nil {
				c.log.Error().Err(err).Str("type", msg.Type.String()).Msg("Failed to encode message")
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.log.Debug().Err(err).Msg("Write failed")
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// ReadPump hands every decoded frame to handle until the connection fails.
func (c *WSClient) ReadPump(limit int64, handle func(domain.Message), dropped func(error)) {
	c.conn.SetReadLimit(limit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			dropped(err)
			continue
		}
		handle(msg)
	}
}

// HTTP handler
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    wire.Subprotocols(),
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	room := domain.NewRoomID(r.URL.Query().Get("room"))
	client := newWSClient(domain.NewClientID(), room, conn, wire.ForSubprotocol(conn.Subprotocol()), h.opts.SendQueueSize)
	l := client.log
	ctx := context.WithoutCancel(r.Context())

	if err := h.Hub.Register(client); err != nil {
		l.Warn().Err(err).Msg("Rejecting client")
		conn.Close()
		return
	}
	go client.WritePump()

	l.Info().Str("codec", client.codec.Name()).Msg("New client connected")
	h.Signaling.Connect(ctx, room, client.id)

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Hub.Unregister(client)
		h.Signaling.Disconnect(ctx, client.id)
		client.Close()
	}()

	client.ReadPump(h.opts.MaxMessageBytes,
		func(msg domain.Message) {
			if err := h.Signaling.HandleSignal(ctx, client.id, msg); err != nil {
				l.Debug().Err(err).Str("type", msg.Type.String()).Msg("Message dropped")
			}
		},
		func(err error) {
			kind := domain.Kind("unknown")
			if errors.Is(err, domain.ErrUnknownKind) {
				kind = domain.Kind("invalid")
			}
			h.Metrics.MessageDropped(kind, port.DropMalformed)
			l.Debug().Err(err).Msg("Malformed frame")
		},
	)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.opts.AllowedOrigins, origin)
}
