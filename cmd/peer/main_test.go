package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/metrics"
)

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauges := metrics.NewTelemetry(reg)
	rtt := 12.5
	gauges.Observe(domain.PeerReport{
		PeerID:      "peer-1",
		RoundTripMs: &rtt,
		Audio:       &domain.StreamReport{BitrateKbps: 64},
	})

	srv := httptest.NewServer(metricsRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `meet_peer_round_trip_ms{peer="peer-1"} 12.5`)
	assert.Contains(t, string(body), `meet_peer_inbound_bitrate_kbps{kind="audio",peer="peer-1"} 64`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
