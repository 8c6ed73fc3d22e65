package http

import (
	"encoding/json"
	"net/http"

	"github.com/Wyydra/meet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/Wyydra/meet/internal/core/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	defaultSendQueueSize   = 256
	defaultMaxMessageBytes = 64 * 1024
)

type Options struct {
	// StaticDir is served at / when set.
	StaticDir string
	// AllowedOrigins restricts websocket upgrades; empty allows any origin.
	AllowedOrigins  []string
	SendQueueSize   int
	MaxMessageBytes int64
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

type Handler struct {
	Signaling *service.SignalingService
	Hub       *ws.Hub
	Metrics   port.RelayMetrics

	opts Options
}

func NewHandler(signaling *service.SignalingService, hub *ws.Hub, metrics port.RelayMetrics, opts Options) *Handler {
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaultSendQueueSize
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaultMaxMessageBytes
	}
	return &Handler{
		Signaling: signaling,
		Hub:       hub,
		Metrics:   metrics,
		opts:      opts,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS)
	r.Get("/healthz", h.Health)
	if h.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	if h.opts.StaticDir != "" {
		fs := http.FileServer(http.Dir(h.opts.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "clients": h.Hub.Len()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
