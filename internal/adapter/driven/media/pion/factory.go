// Package pion implements the peer transport on github.com/pion/webrtc.
package pion

import (
	"context"
	"fmt"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

type Options struct {
	STUNURLs     []string
	TURNURLs     []string
	TURNUsername string
	TURNPassword string
}

// ICEServers builds the pion ICE server list, STUN first.
func (o Options) ICEServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(o.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: o.STUNURLs})
	}
	if len(o.TURNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       o.TURNURLs,
			Username:   o.TURNUsername,
			Credential: o.TURNPassword,
		})
	}
	return servers
}

// implements port.TransportFactory
type Factory struct {
	api    *webrtc.API
	config webrtc.Configuration
}

func NewFactory(opts Options) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{LoggerFactory: newLoggerFactory()}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(i),
		webrtc.WithSettingEngine(se),
	)

	return &Factory{
		api: api,
		config: webrtc.Configuration{
			ICEServers:   opts.ICEServers(),
			BundlePolicy: webrtc.BundlePolicyMaxBundle,
		},
	}, nil
}

func (f *Factory) NewTransport(ctx context.Context, remote domain.ClientID) (port.PeerTransport, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	// Receive-only transceivers so our offers always carry audio and video
	// sections even though this peer captures nothing.
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}

	return newTransport(remote, pc), nil
}
