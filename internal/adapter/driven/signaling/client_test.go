package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/meet/internal/adapter/wire"
	"github.com/Wyydra/meet/internal/core/domain"
)

// echoRelay greets with an empty all-clients and then echoes every frame
// back, reporting the room it was asked for.
func echoRelay(t *testing.T, rooms chan<- string) string {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: wire.Subprotocols()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		rooms <- r.URL.Query().Get("room")

		codec := wire.ForSubprotocol(conn.Subprotocol())
		hello, _ := codec.Encode(domain.NewAllClients(nil))
		if err := conn.WriteMessage(codec.FrameType(), hello); err != nil {
			return
		}
		for {
			ft, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(ft, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func receive(t *testing.T, c *Client) domain.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Incoming():
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for relay frame")
	}
	return domain.Message{}
}

func TestClient_RoundTrip(t *testing.T) {
	for _, codec := range []wire.Codec{wire.JSON, wire.Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			rooms := make(chan string, 1)
			c := NewClient(echoRelay(t, rooms), "standup", codec)
			require.NoError(t, c.Connect(context.Background()))
			defer c.Close()

			assert.Equal(t, "standup", <-rooms)
			assert.Equal(t, domain.KindAllClients, receive(t, c).Type)

			offer, _ := domain.NewNegotiationMessage(domain.KindOffer, "peer", []byte(`{"type":"offer","sdp":"x"}`))
			require.NoError(t, c.Send(offer))

			got := receive(t, c)
			assert.Equal(t, domain.KindOffer, got.Type)
			assert.Equal(t, domain.ClientID("peer"), got.SocketID)
			assert.JSONEq(t, `{"type":"offer","sdp":"x"}`, string(got.Offer))
		})
	}
}

func TestClient_SendAfterClose(t *testing.T) {
	rooms := make(chan string, 1)
	c := NewClient(echoRelay(t, rooms), "", nil)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(domain.NewReady()), ErrClosed)

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-c.Incoming():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestClient_BadURL(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
}
