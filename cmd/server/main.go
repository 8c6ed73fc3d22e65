package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/meet/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/meet/internal/adapter/driven/registry/memory"
	handler "github.com/Wyydra/meet/internal/adapter/driving/http"
	"github.com/Wyydra/meet/internal/config"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/Wyydra/meet/internal/core/service"
	"github.com/Wyydra/meet/internal/logging"
	"github.com/Wyydra/meet/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var opts config.ServerOptions

var rootCmd = &cobra.Command{
	Use:   "meet-server",
	Short: "Signaling relay for browser video calls",
	Long: `meet-server accepts websocket connections from call participants and
relays offers, answers and ICE candidates between them. In paired mode
clients are matched two at a time; in mesh mode everyone in a room is
introduced to everyone else.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(opts)
		if err != nil {
			return &exitError{code: 2, err: err}
		}
		if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
			return &exitError{code: 2, err: err}
		}
		return serve(cfg)
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
	f.StringVar(&opts.Host, "host", "", "interface to listen on (env HOST)")
	f.IntVarP(&opts.Port, "port", "p", 0, "listen port (env PORT, default 5000)")
	f.StringVarP(&opts.Mode, "mode", "m", "", "signaling mode: paired or mesh (env SIGNAL_MODE)")
	f.StringVar(&opts.LogLevel, "log-level", "", "trace, debug, info, warn or error (env LOG_LEVEL)")
	f.StringVar(&opts.LogFormat, "log-format", "", "console or json (env LOG_FORMAT)")
	f.StringVar(&opts.StaticDir, "static", "", "serve this directory at / (env STATIC_DIR)")
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Server failed")
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func serve(cfg *config.Server) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relayMetrics := metrics.NewRelay(reg)

	mode := cfg.SignalMode()
	hub := ws.NewHub()
	rooms := service.NewRoomService(func() port.SessionRegistry { return memory.New(mode) }, hub, relayMetrics)
	signaling := service.NewSignalingService(rooms, hub, relayMetrics)

	h := handler.NewHandler(signaling, hub, relayMetrics, handler.Options{
		StaticDir:       cfg.StaticDir,
		AllowedOrigins:  cfg.AllowedOrigins,
		SendQueueSize:   cfg.SendQueueSize,
		MaxMessageBytes: cfg.MaxMessageBytes,
		Gatherer:        reg,
	})

	// Bind before logging readiness so a taken port fails fast.
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("mode", string(mode)).Msg("Starting server")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Stop()
	log.Info().Msg("Server exited")
	return nil
}
