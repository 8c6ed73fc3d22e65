// Package config loads settings for both binaries. Precedence is command
// line flags, then the environment (optionally seeded from a .env file),
// then defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Wyydra/meet/internal/adapter/wire"
	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/logging"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Server configures the relay.
type Server struct {
	Host            string   `env:"HOST" env-description:"interface to listen on"`
	Port            int      `env:"PORT" env-default:"5000" env-description:"listen port"`
	Mode            string   `env:"SIGNAL_MODE" env-default:"mesh" env-description:"paired or mesh"`
	LogLevel        string   `env:"LOG_LEVEL" env-default:"info"`
	LogFormat       string   `env:"LOG_FORMAT" env-default:"console" env-description:"console or json"`
	SendQueueSize   int      `env:"SEND_QUEUE_SIZE" env-default:"256"`
	MaxMessageBytes int64    `env:"MAX_MESSAGE_BYTES" env-default:"65536"`
	StaticDir       string   `env:"STATIC_DIR" env-description:"directory served at /"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" env-separator:","`
}

// ServerOptions carries flag values; zero values leave the environment in
// charge.
type ServerOptions struct {
	Host      string
	Port      int
	Mode      string
	LogLevel  string
	LogFormat string
	StaticDir string
}

func LoadServer(opts ServerOptions) (*Server, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	var cfg Server
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	override(&cfg.Host, opts.Host)
	override(&cfg.Mode, opts.Mode)
	override(&cfg.LogLevel, opts.LogLevel)
	override(&cfg.LogFormat, opts.LogFormat)
	override(&cfg.StaticDir, opts.StaticDir)
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Server) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Server) SignalMode() domain.Mode {
	m, _ := domain.ParseMode(c.Mode)
	return m
}

func (c *Server) validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := domain.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if err := logging.Validate(c.LogLevel, c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if c.SendQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("send queue size must be positive"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max message bytes must be positive"))
	}
	return errors.Join(errs...)
}

// Peer configures the headless peer client.
type Peer struct {
	SignalURL     string        `env:"SIGNAL_URL" env-default:"ws://localhost:5000/ws"`
	Mode          string        `env:"SIGNAL_MODE" env-default:"mesh"`
	Room          string        `env:"ROOM"`
	STUNURLs      []string      `env:"STUN_URLS" env-default:"stun:stun.l.google.com:19302" env-separator:","`
	TURNURLs      []string      `env:"TURN_URLS" env-separator:","`
	TURNUsername  string        `env:"TURN_USERNAME"`
	TURNPassword  string        `env:"TURN_PASSWORD"`
	StatsInterval time.Duration `env:"STATS_INTERVAL" env-default:"1s"`
	StatsOutput   string        `env:"STATS_OUTPUT" env-default:"table" env-description:"table, log or none"`
	WireCodec     string        `env:"WIRE_CODEC" env-default:"json"`
	MetricsAddr   string        `env:"METRICS_ADDR" env-description:"serve /metrics here when set"`
	LogLevel      string        `env:"LOG_LEVEL" env-default:"info"`
	LogFormat     string        `env:"LOG_FORMAT" env-default:"console"`
}

type PeerOptions struct {
	SignalURL     string
	Mode          string
	Room          string
	STUNURLs      []string
	TURNURLs      []string
	TURNUsername  string
	TURNPassword  string
	StatsInterval time.Duration
	StatsOutput   string
	WireCodec     string
	MetricsAddr   string
	LogLevel      string
}

func LoadPeer(opts PeerOptions) (*Peer, error) {
	_ = godotenv.Load()

	var cfg Peer
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	override(&cfg.SignalURL, opts.SignalURL)
	override(&cfg.Mode, opts.Mode)
	override(&cfg.Room, opts.Room)
	override(&cfg.TURNUsername, opts.TURNUsername)
	override(&cfg.TURNPassword, opts.TURNPassword)
	override(&cfg.StatsOutput, opts.StatsOutput)
	override(&cfg.WireCodec, opts.WireCodec)
	override(&cfg.MetricsAddr, opts.MetricsAddr)
	override(&cfg.LogLevel, opts.LogLevel)
	if len(opts.STUNURLs) > 0 {
		cfg.STUNURLs = opts.STUNURLs
	}
	if len(opts.TURNURLs) > 0 {
		cfg.TURNURLs = opts.TURNURLs
	}
	if opts.StatsInterval > 0 {
		cfg.StatsInterval = opts.StatsInterval
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Peer) SignalMode() domain.Mode {
	m, _ := domain.ParseMode(c.Mode)
	return m
}

func (c *Peer) Codec() wire.Codec {
	codec, _ := wire.ByName(c.WireCodec)
	return codec
}

func (c *Peer) validate() error {
	var errs []error
	if c.SignalURL == "" {
		errs = append(errs, errors.New("signal URL is required"))
	}
	if _, err := domain.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := wire.ByName(c.WireCodec); err != nil {
		errs = append(errs, err)
	}
	if c.StatsInterval <= 0 {
		errs = append(errs, fmt.Errorf("stats interval must be positive, got %s", c.StatsInterval))
	}
	switch c.StatsOutput {
	case "table", "log", "none":
	default:
		errs = append(errs, fmt.Errorf("invalid stats output %q (want table, log or none)", c.StatsOutput))
	}
	if err := logging.Validate(c.LogLevel, c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}
