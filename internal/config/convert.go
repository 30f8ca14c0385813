package config

import (
	"strings"

	"github.com/danmuck/llrpd/internal/reader"
)

type fileConfig struct {
	Name      string        `toml:"name"`
	LogLevel  string        `toml:"log_level"`
	HTTP      fileHTTP      `toml:"http"`
	Session   fileSession   `toml:"session"`
	Transport fileTransport `toml:"transport"`
	Readers   []fileReader  `toml:"readers"`
	Sinks     fileSinks     `toml:"sinks"`
}

type fileHTTP struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Token       string   `toml:"token"`
}

type fileSession struct {
	StitchFrames  bool   `toml:"stitch_frames"`
	ReportAllTags bool   `toml:"report_all_tags"`
	MaxFrameBytes uint32 `toml:"max_frame_bytes"`
}

type fileTransport struct {
	ConnectTimeout     string      `toml:"connect_timeout"`
	HandshakeTimeout   string      `toml:"handshake_timeout"`
	ReadTimeout        string      `toml:"read_timeout"`
	WriteTimeout       string      `toml:"write_timeout"`
	ReadBuffer         int         `toml:"read_buffer"`
	MaxConnectAttempts int         `toml:"max_connect_attempts"`
	SecurityMode       string      `toml:"security_mode"`
	Backoff            fileBackoff `toml:"backoff"`
	TLS                fileTLS     `toml:"tls"`
}

type fileBackoff struct {
	InitialDelay string  `toml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxDelay     string  `toml:"max_delay"`
	Jitter       bool    `toml:"jitter"`
}

type fileTLS struct {
	Enabled            bool   `toml:"enabled"`
	Mutual             bool   `toml:"mutual"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type fileReader struct {
	Name    string   `toml:"name"`
	Address string   `toml:"address"`
	TLS     *fileTLS `toml:"tls"`
}

type fileSinks struct {
	Log struct {
		Enabled bool `toml:"enabled"`
	} `toml:"log"`
	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Channel  string `toml:"channel"`
		History  int64  `toml:"history"`
	} `toml:"redis"`
	WebSocket struct {
		Enabled      bool   `toml:"enabled"`
		Buffer       int    `toml:"buffer"`
		WriteTimeout string `toml:"write_timeout"`
	} `toml:"websocket"`
	Journal struct {
		Enabled     bool   `toml:"enabled"`
		Dir         string `toml:"dir"`
		TTL         string `toml:"ttl"`
		RecentLimit int    `toml:"recent_limit"`
	} `toml:"journal"`
}

func toTLS(raw fileTLS) reader.TLSConfig {
	return reader.TLSConfig{
		Enabled:            raw.Enabled,
		Mutual:             raw.Mutual,
		CAFile:             strings.TrimSpace(raw.CAFile),
		CertFile:           strings.TrimSpace(raw.CertFile),
		KeyFile:            strings.TrimSpace(raw.KeyFile),
		ServerName:         strings.TrimSpace(raw.ServerName),
		InsecureSkipVerify: raw.InsecureSkipVerify,
	}
}

func toTargets(entries []fileReader) []reader.Target {
	targets := make([]reader.Target, 0, len(entries))
	for _, entry := range entries {
		target := reader.Target{
			Name:    strings.TrimSpace(entry.Name),
			Address: strings.TrimSpace(entry.Address),
		}
		if target.Name == "" {
			target.Name = target.Address
		}
		if entry.TLS != nil {
			tls := toTLS(*entry.TLS)
			target.TLS = &tls
		}
		targets = append(targets, target)
	}
	return targets
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}
