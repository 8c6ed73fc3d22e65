package pion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const pliInterval = 3 * time.Second

// Transport wraps one PeerConnection. Descriptions and candidates cross the
// port as the JSON forms browsers exchange (RTCSessionDescriptionInit and
// RTCIceCandidateInit).
type Transport struct {
	remote domain.ClientID
	pc     *webrtc.PeerConnection
	log    zerolog.Logger

	mu          sync.Mutex
	onCandidate func([]byte)
	onState     func(domain.TransportState)

	closed chan struct{}
	once   sync.Once
}

func newTransport(remote domain.ClientID, pc *webrtc.PeerConnection) *Transport {
	t := &Transport{
		remote: remote,
		pc:     pc,
		log:    log.With().Str("peer_id", remote.String()).Logger(),
		closed: make(chan struct{}),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			t.log.Error().Err(err).Msg("Failed to marshal candidate")
			return
		}
		t.mu.Lock()
		cb := t.onCandidate
		t.mu.Unlock()
		if cb != nil {
			cb(data)
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		t.log.Debug().Str("state", s.String()).Msg("Peer connection state")
		t.mu.Lock()
		cb := t.onState
		t.mu.Unlock()
		if cb != nil {
			cb(transportState(s))
		}
	})

	pc.OnTrack(t.drain)
	return t
}

func (t *Transport) OnLocalCandidate(fn func([]byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCandidate = fn
}

func (t *Transport) OnStateChange(fn func(domain.TransportState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onState = fn
}

func (t *Transport) CreateOffer(ctx context.Context) ([]byte, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(t.pc.LocalDescription())
}

func (t *Transport) ApplyOffer(ctx context.Context, offer []byte) ([]byte, error) {
	desc, err := decodeDescription(offer, webrtc.SDPTypeOffer)
	if err != nil {
		return nil, err
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(t.pc.LocalDescription())
}

func (t *Transport) ApplyAnswer(ctx context.Context, answer []byte) error {
	desc, err := decodeDescription(answer, webrtc.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (t *Transport) AddCandidate(ctx context.Context, candidate []byte) error {
	var c webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return t.pc.AddICECandidate(c)
}

func (t *Transport) Stats(ctx context.Context) (domain.StatsSample, error) {
	return sampleFromReport(t.pc.GetStats(), time.Now())
}

func (t *Transport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.closed)
		err = t.pc.Close()
	})
	return err
}

// drain reads an inbound track so its counters advance, and keeps asking
// for keyframes on video.
func (t *Transport) drain(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	t.log.Debug().Str("kind", track.Kind().String()).Str("codec", track.Codec().MimeType).Msg("Received remote track")

	if track.Kind() == webrtc.RTPCodecTypeVideo {
		go func() {
			ticker := time.NewTicker(pliInterval)
			defer ticker.Stop()
			for {
				if err := t.pc.WriteRTCP([]rtcp.Packet{
					&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
				}); err != nil {
					return
				}
				select {
				case <-t.closed:
					return
				case <-ticker.C:
				}
			}
		}()
	}

	buf := make([]byte, 1500)
	for {
		if _, _, err := track.Read(buf); err != nil {
			return
		}
	}
}

func decodeDescription(data []byte, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if desc.Type != want {
		return desc, fmt.Errorf("%w: got %s, want %s", domain.ErrInvalidPayload, desc.Type, want)
	}
	return desc, nil
}

func transportState(s webrtc.PeerConnectionState) domain.TransportState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return domain.TransportConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.TransportConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.TransportDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.TransportFailed
	case webrtc.PeerConnectionStateClosed:
		return domain.TransportClosed
	}
	return domain.TransportNew
}
