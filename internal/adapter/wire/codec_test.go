package wire

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/meet/internal/core/domain"
)

func TestJSON_BrowserFrames(t *testing.T) {
	msg, err := JSON.Decode([]byte(`{"type":"offer","socketId":"b","offer":{"type":"offer","sdp":"v=0\r\n"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.KindOffer, msg.Type)
	assert.Equal(t, domain.ClientID("b"), msg.SocketID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0\r\n"}`, string(msg.Payload()))

	out, err := JSON.Encode(domain.NewStartCall("x", true))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start-call","remoteId":"x","isCaller":true}`, string(out))
}

func TestJSON_CalleeFlagSurvives(t *testing.T) {
	out, err := JSON.Encode(domain.NewStartCall("x", false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"start-call","remoteId":"x","isCaller":false}`, string(out))
}

func TestJSON_EmptyMembershipKeepsClients(t *testing.T) {
	out, err := JSON.Encode(domain.NewAllClients(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"all-clients","clients":[]}`, string(out))
}

func TestDecode_Rejects(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		_, err := c.Decode([]byte{0xc1, '{'})
		assert.ErrorIs(t, err, ErrMalformedFrame, c.Name())
	}

	_, err := JSON.Decode([]byte(`{"type":"chat"}`))
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestMsgpack_CarriesNegotiation(t *testing.T) {
	in, err := domain.NewNegotiationMessage(domain.KindICECandidate, "peer", []byte(`{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host"}`))
	require.NoError(t, err)

	data, err := Msgpack.Encode(in)
	require.NoError(t, err)
	out, err := Msgpack.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.SocketID, out.SocketID)
	assert.JSONEq(t, string(in.Candidate), string(out.Candidate))
}

func TestCodecSelection(t *testing.T) {
	assert.Equal(t, Msgpack, ForSubprotocol(SubprotocolMsgpack))
	assert.Equal(t, JSON, ForSubprotocol(""))
	assert.Equal(t, websocket.BinaryMessage, Msgpack.FrameType())
	assert.Equal(t, websocket.TextMessage, JSON.FrameType())

	c, err := ByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, Msgpack, c)
	_, err = ByName("xml")
	assert.Error(t, err)
}
