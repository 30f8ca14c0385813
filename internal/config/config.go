package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/llrpd/internal/logging"
	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/reader"
	"github.com/danmuck/llrpd/internal/sink"
)

const (
	DefaultName       = "llrpd"
	DefaultHTTPAddr   = ":8080"
	DefaultReaderAddr = "localhost:5084"
	DefaultRedisAddr  = "localhost:6379"
	DefaultRecent     = 100
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name      string
	LogLevel  string
	HTTP      HTTPConfig
	Session   session.Options
	Transport reader.Config
	Readers   []reader.Target
	Sinks     SinksConfig
}

type HTTPConfig struct {
	Enabled     bool
	Addr        string
	CorsOrigins []string
	// Token, when set, is required as a bearer token on the API routes.
	Token       string
}

type SinksConfig struct {
	Log       bool
	Redis     RedisSink
	WebSocket WebSocketSink
	Journal   JournalSink
}

type RedisSink struct {
	Enabled bool
	sink.RedisConfig
}

type WebSocketSink struct {
	Enabled bool
	sink.HubConfig
}

type JournalSink struct {
	Enabled bool
	sink.JournalConfig
	// RecentLimit caps /readings/recent.
	RecentLimit int
}

func Default() Config {
	return Config{
		Name:      DefaultName,
		LogLevel:  "info",
		HTTP:      HTTPConfig{Enabled: true, Addr: DefaultHTTPAddr},
		Session:   session.DefaultOptions(),
		Transport: reader.DefaultConfig(),
		Readers:   []reader.Target{{Name: "local", Address: DefaultReaderAddr}},
		Sinks: SinksConfig{
			Log: true,
			Redis: RedisSink{RedisConfig: sink.RedisConfig{
				Addr:    DefaultRedisAddr,
				Channel: sink.DefaultRedisChannel,
				History: sink.DefaultRedisHistory,
			}},
			WebSocket: WebSocketSink{Enabled: true, HubConfig: sink.DefaultHubConfig()},
			Journal:   JournalSink{RecentLimit: DefaultRecent},
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default; keys the loader does not know are rejected. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, Validate(cfg)
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if err := overlay(&cfg, raw, meta); err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlay(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("http", "enabled") {
		cfg.HTTP.Enabled = raw.HTTP.Enabled
	}
	if meta.IsDefined("http", "addr") {
		cfg.HTTP.Addr = strings.TrimSpace(raw.HTTP.Addr)
	}
	if meta.IsDefined("http", "cors_origins") {
		cfg.HTTP.CorsOrigins = normalizeOrigins(raw.HTTP.CorsOrigins)
	}
	if meta.IsDefined("http", "token") {
		cfg.HTTP.Token = strings.TrimSpace(raw.HTTP.Token)
	}

	if meta.IsDefined("session", "stitch_frames") {
		cfg.Session.Stitch = raw.Session.StitchFrames
	}
	if meta.IsDefined("session", "report_all_tags") {
		cfg.Session.ReportAllTags = raw.Session.ReportAllTags
	}
	if meta.IsDefined("session", "max_frame_bytes") {
		cfg.Session.Limits.MaxFrameBytes = raw.Session.MaxFrameBytes
	}

	if err := overlayTransport(&cfg.Transport, raw.Transport, meta); err != nil {
		return err
	}

	if meta.IsDefined("readers") {
		cfg.Readers = toTargets(raw.Readers)
	}

	return overlaySinks(&cfg.Sinks, raw.Sinks, meta)
}

func overlayTransport(t *reader.Config, raw fileTransport, meta toml.MetaData) error {
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &t.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &t.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &t.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &t.WriteTimeout},
	}
	for _, d := range durations {
		if err := setDuration(meta, d.raw, d.dst, "transport", d.key); err != nil {
			return err
		}
	}
	if meta.IsDefined("transport", "read_buffer") {
		t.ReadBuffer = raw.ReadBuffer
	}
	if meta.IsDefined("transport", "max_connect_attempts") {
		t.MaxConnectAttempts = raw.MaxConnectAttempts
	}
	if meta.IsDefined("transport", "security_mode") {
		t.SecurityMode = reader.NormalizeSecurityMode(reader.SecurityMode(raw.SecurityMode))
	}

	if err := setDuration(meta, raw.Backoff.InitialDelay, &t.Backoff.InitialDelay, "transport", "backoff", "initial_delay"); err != nil {
		return err
	}
	if err := setDuration(meta, raw.Backoff.MaxDelay, &t.Backoff.MaxDelay, "transport", "backoff", "max_delay"); err != nil {
		return err
	}
	if meta.IsDefined("transport", "backoff", "multiplier") {
		t.Backoff.Multiplier = raw.Backoff.Multiplier
	}
	if meta.IsDefined("transport", "backoff", "jitter") {
		t.Backoff.Jitter = raw.Backoff.Jitter
	}

	if meta.IsDefined("transport", "tls") {
		t.TLS = toTLS(raw.TLS)
	}
	return nil
}

func overlaySinks(s *SinksConfig, raw fileSinks, meta toml.MetaData) error {
	if meta.IsDefined("sinks", "log", "enabled") {
		s.Log = raw.Log.Enabled
	}

	if meta.IsDefined("sinks", "redis", "enabled") {
		s.Redis.Enabled = raw.Redis.Enabled
	}
	if meta.IsDefined("sinks", "redis", "addr") {
		s.Redis.Addr = strings.TrimSpace(raw.Redis.Addr)
	}
	if meta.IsDefined("sinks", "redis", "password") {
		s.Redis.Password = raw.Redis.Password
	}
	if meta.IsDefined("sinks", "redis", "db") {
		s.Redis.DB = raw.Redis.DB
	}
	if meta.IsDefined("sinks", "redis", "channel") {
		s.Redis.Channel = strings.TrimSpace(raw.Redis.Channel)
	}
	if meta.IsDefined("sinks", "redis", "history") {
		s.Redis.History = raw.Redis.History
	}

	if meta.IsDefined("sinks", "websocket", "enabled") {
		s.WebSocket.Enabled = raw.WebSocket.Enabled
	}
	if meta.IsDefined("sinks", "websocket", "buffer") {
		s.WebSocket.Buffer = raw.WebSocket.Buffer
	}
	if err := setDuration(meta, raw.WebSocket.WriteTimeout, &s.WebSocket.WriteTimeout, "sinks", "websocket", "write_timeout"); err != nil {
		return err
	}

	if meta.IsDefined("sinks", "journal", "enabled") {
		s.Journal.Enabled = raw.Journal.Enabled
	}
	if meta.IsDefined("sinks", "journal", "dir") {
		s.Journal.Dir = strings.TrimSpace(raw.Journal.Dir)
	}
	if meta.IsDefined("sinks", "journal", "recent_limit") {
		s.Journal.RecentLimit = raw.Journal.RecentLimit
	}
	return setDuration(meta, raw.Journal.TTL, &s.Journal.TTL, "sinks", "journal", "ttl")
}

func setDuration(meta toml.MetaData, raw string, dst *time.Duration, key ...string) error {
	if !meta.IsDefined(key...) {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse %s: %w", strings.Join(key, "."), err)
	}
	*dst = d
	return nil
}

// Validate checks cross-field constraints.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, cfg.LogLevel)
	}
	if cfg.HTTP.Enabled && strings.TrimSpace(cfg.HTTP.Addr) == "" {
		return fmt.Errorf("%w: http.addr is required when http is enabled", ErrInvalid)
	}
	if cfg.Sinks.WebSocket.Enabled && !cfg.HTTP.Enabled {
		return fmt.Errorf("%w: the websocket sink needs http enabled", ErrInvalid)
	}
	if len(cfg.Readers) == 0 {
		return fmt.Errorf("%w: at least one [[readers]] entry is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(cfg.Readers))
	for i, target := range cfg.Readers {
		if err := validateTarget(cfg.Transport, target); err != nil {
			return fmt.Errorf("%w: readers[%d]: %w", ErrInvalid, i, err)
		}
		if seen[target.Address] {
			return fmt.Errorf("%w: readers[%d]: duplicate address %s", ErrInvalid, i, target.Address)
		}
		seen[target.Address] = true
	}
	if cfg.Transport.Backoff.Multiplier < 1 {
		return fmt.Errorf("%w: transport.backoff.multiplier must be >= 1", ErrInvalid)
	}
	if cfg.Sinks.Redis.Enabled && strings.TrimSpace(cfg.Sinks.Redis.Addr) == "" {
		return fmt.Errorf("%w: sinks.redis.addr is required", ErrInvalid)
	}
	if cfg.Sinks.Journal.TTL < 0 {
		return fmt.Errorf("%w: sinks.journal.ttl must not be negative", ErrInvalid)
	}
	return nil
}

func validateTarget(transport reader.Config, target reader.Target) error {
	addr := strings.TrimSpace(target.Address)
	if addr == "" {
		return reader.ErrAddressRequired
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("address %q: %w", addr, err)
	}
	if target.TLS != nil {
		transport.TLS = *target.TLS
	}
	return transport.ValidateTransport()
}
