package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/meet/internal/adapter/driven/media/pion"
	"github.com/Wyydra/meet/internal/adapter/driven/signaling"
	"github.com/Wyydra/meet/internal/adapter/driven/telemetry"
	"github.com/Wyydra/meet/internal/config"
	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/Wyydra/meet/internal/core/service"
	"github.com/Wyydra/meet/internal/logging"
	"github.com/Wyydra/meet/internal/metrics"
	"github.com/Wyydra/meet/internal/ui"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errRelayClosed = errors.New("relay closed the connection")

var opts config.PeerOptions

var rootCmd = &cobra.Command{
	Use:   "meet-peer [room]",
	Short: "Headless call participant that prints connection statistics",
	Long: `meet-peer joins a room on a meet relay, negotiates a receive-only
connection with every other participant and reports per-peer bitrate,
loss, jitter and round trip time once per interval.

Examples:
  meet-peer standup
  meet-peer --mode paired --url ws://relay.example:5000/ws
  meet-peer standup --output log --metrics-addr :9100`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			opts.Room = args[0]
		}
		cfg, err := config.LoadPeer(opts)
		if err != nil {
			return &exitError{code: 2, err: err}
		}
		if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
			return &exitError{code: 2, err: err}
		}
		return run(cmd.Context(), cfg)
	},
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.SignalURL, "url", "u", "", "relay websocket URL (env SIGNAL_URL)")
	f.StringVarP(&opts.Mode, "mode", "m", "", "signaling mode of the relay: paired or mesh (env SIGNAL_MODE)")
	f.StringSliceVar(&opts.STUNURLs, "stun", nil, "STUN server URLs (env STUN_URLS)")
	f.StringSliceVar(&opts.TURNURLs, "turn", nil, "TURN server URLs (env TURN_URLS)")
	f.StringVar(&opts.TURNUsername, "turn-user", "", "TURN username (env TURN_USERNAME)")
	f.StringVar(&opts.TURNPassword, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	f.DurationVarP(&opts.StatsInterval, "interval", "i", 0, "statistics period (env STATS_INTERVAL, default 1s)")
	f.StringVarP(&opts.StatsOutput, "output", "o", "", "table, log or none (env STATS_OUTPUT)")
	f.StringVar(&opts.WireCodec, "codec", "", "wire codec: json or msgpack (env WIRE_CODEC)")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve peer gauges on /metrics at this address (env METRICS_ADDR)")
	f.StringVar(&opts.LogLevel, "log-level", "", "trace, debug, info, warn or error (env LOG_LEVEL)")
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func run(parent context.Context, cfg *config.Peer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := pion.NewFactory(pion.Options{
		STUNURLs:     cfg.STUNURLs,
		TURNURLs:     cfg.TURNURLs,
		TURNUsername: cfg.TURNUsername,
		TURNPassword: cfg.TURNPassword,
	})
	if err != nil {
		return fmt.Errorf("create media engine: %w", err)
	}

	client := signaling.NewClient(cfg.SignalURL, cfg.Room, cfg.Codec())
	if err := client.Connect(ctx); err != nil {
		return err
	}
	ui.PrintTitle("meet", fmt.Sprintf("%s (%s)", cfg.SignalURL, cfg.Mode))

	calls := service.NewCallService(factory, client)
	defer func() {
		if err := calls.Leave(); err != nil {
			log.Warn().Err(err).Msg("Failed to leave cleanly")
		}
	}()

	if cfg.SignalMode() == domain.ModePaired {
		if err := client.Send(domain.NewReady()); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	sinks := outputSinks(cfg)
	if cfg.MetricsAddr != "" {
		sinks = append(sinks, telemetry.NewPrometheusSink(metrics.NewTelemetry(reg)))
	}
	aggregator := service.NewAggregator(calls, cfg.StatsInterval, sinks)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return aggregator.Run(gctx)
	})
	g.Go(func() error {
		return relayLoop(gctx, client, calls)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, reg)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		ui.PrintSuccess("Left the call")
		return nil
	}
	return err
}

func outputSinks(cfg *config.Peer) []port.TelemetrySink {
	switch cfg.StatsOutput {
	case "table":
		return []port.TelemetrySink{telemetry.NewTableSink(os.Stdout)}
	case "log":
		return []port.TelemetrySink{telemetry.NewLogSink(log.Logger)}
	}
	return nil
}

func relayLoop(ctx context.Context, client *signaling.Client, calls *service.CallService) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-calls.Waiting():
			ui.PrintWaiting("Waiting for a partner")
		case msg, ok := <-client.Incoming():
			if !ok {
				return errRelayClosed
			}
			announce(msg)
			if err := calls.Handle(ctx, msg); err != nil {
				log.Debug().Err(err).Str("type", msg.Type.String()).Msg("Relay message not handled")
			}
		}
	}
}

func announce(msg domain.Message) {
	switch msg.Type {
	case domain.KindStartCall:
		ui.PrintPeer(msg.RemoteID.String(), "paired")
	case domain.KindNewPeer:
		ui.PrintPeer(msg.SocketID.String(), "joined")
	case domain.KindAllClients:
		for _, id := range msg.Clients {
			ui.PrintPeer(id.String(), "in room")
		}
	case domain.KindPeerDisconnected:
		ui.PrintPeer(msg.SocketID.String(), "left")
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: metricsRouter(reg), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Serving peer metrics")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func metricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
