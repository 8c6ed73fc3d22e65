package domain

import "time"

// StreamCounters are cumulative inbound counters for one media kind, as
// reported by the transport.
type StreamCounters struct {
	BytesReceived   uint64
	PacketsReceived uint64
	PacketsLost     uint64
	// FramesDecoded is nil for audio and for video before the first frame.
	FramesDecoded *uint64
	// Jitter in seconds, nil when not reported.
	Jitter *float64
}

// RemoteInbound is the remote side's view of the stream we send it.
type RemoteInbound struct {
	PacketsLost   int64
	RoundTripTime *time.Duration
	FractionLost  *float64
}

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// StatsSample is one raw pull from a peer's transport.
type StatsSample struct {
	Timestamp time.Time
	Audio     *StreamCounters
	Video     *StreamCounters

	RoundTripTime            *time.Duration
	AvailableOutgoingBitrate *float64 // bits per second
	AvailableIncomingBitrate *float64 // bits per second

	Remote *RemoteInbound
	// Frame size seen by the decoder, used when no playback surface is wired.
	Resolution *Resolution
}

// Snapshot is the previous cumulative state kept between polls.
type Snapshot struct {
	Timestamp time.Time
	Audio     *StreamCounters
	Video     *StreamCounters
}

type StreamReport struct {
	BitrateKbps int64    `json:"bitrateKbps"`
	JitterMs    *float64 `json:"jitterMs,omitempty"`
	LossPct     float64  `json:"lossPct"`
	FPS         *int64   `json:"fps,omitempty"`
}

type RemoteReport struct {
	PacketsLost  int64    `json:"packetsLost"`
	RoundTripMs  *float64 `json:"roundTripMs,omitempty"`
	FractionLost *float64 `json:"fractionLost,omitempty"`
}

// PeerReport is the derived telemetry for one remote peer and one cycle.
// Nil fields mean the transport had no data for them.
type PeerReport struct {
	PeerID    ClientID  `json:"peerId"`
	Timestamp time.Time `json:"timestamp"`
	ElapsedMs int64     `json:"elapsedMs"`

	RoundTripMs  *float64 `json:"roundTripMs,omitempty"`
	OutgoingKbps *int64   `json:"availableOutgoingKbps,omitempty"`
	IncomingKbps *int64   `json:"availableIncomingKbps,omitempty"`

	Audio      *StreamReport `json:"audio,omitempty"`
	Video      *StreamReport `json:"video,omitempty"`
	Resolution *Resolution   `json:"resolution,omitempty"`
	Remote     *RemoteReport `json:"remote,omitempty"`
}
