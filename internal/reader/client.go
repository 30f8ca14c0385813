package reader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/llrpd/internal/observability"
	"github.com/danmuck/llrpd/internal/protocol"
	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/reading"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired = errors.New("reader: address required")
	ErrDecoderRequired = errors.New("reader: decoder required")
	ErrGaveUp          = errors.New("reader: connect attempts exhausted")
)

// Decoder turns a connection's chunks into messages, replies and readings.
// *session.Registry implements it.
type Decoder interface {
	Decode(chunk []byte, origin string, captureTime time.Time) session.Result
	ResetStream(origin string)
}

// Emitter receives extracted readings.
type Emitter interface {
	Emit(ctx context.Context, r reading.Reading) error
}

// EventPublisher receives connection lifecycle and status events.
type EventPublisher interface {
	Publish(kind string, data any) error
}

// Target is one reader endpoint. Address doubles as the origin that keys
// the reader's identity. TLS overrides the shared transport TLS settings.
type Target struct {
	Name    string
	Address string
	TLS     *TLSConfig
}

// Status is a point-in-time view of a client's connection.
type Status struct {
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	TLS         bool      `json:"tls"`
	Connected   bool      `json:"connected"`
	Failures    int       `json:"failures"`
	ConnectedAt time.Time `json:"connectedAt,omitzero"`
	LastError   string    `json:"lastError,omitempty"`
}

type Option func(*Client)

func WithEvents(p EventPublisher) Option {
	return func(c *Client) { c.events = p }
}

// Client keeps one reader connected, feeds its bytes to the decoder and
// writes the decoder's replies back in order.
type Client struct {
	target  Target
	cfg     Config
	decoder Decoder
	sink    Emitter
	events  EventPublisher
	rng     *rand.Rand
	logger  zerolog.Logger

	mu     sync.RWMutex
	status Status
}

func NewClient(target Target, cfg Config, decoder Decoder, sink Emitter, opts ...Option) (*Client, error) {
	target.Address = strings.TrimSpace(target.Address)
	if target.Address == "" {
		return nil, ErrAddressRequired
	}
	if decoder == nil {
		return nil, ErrDecoderRequired
	}
	if strings.TrimSpace(target.Name) == "" {
		target.Name = target.Address
	}
	cfg = cfg.WithDefaults()
	if target.TLS != nil {
		cfg.TLS = *target.TLS
	}
	if err := cfg.ValidateTransport(); err != nil {
		return nil, fmt.Errorf("reader %s: %w", target.Name, err)
	}
	c := &Client{
		target:  target,
		cfg:     cfg,
		decoder: decoder,
		sink:    sink,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  log.With().Str("reader", target.Name).Str("origin", target.Address).Logger(),
		status: Status{
			Name:    target.Name,
			Address: target.Address,
			TLS:     cfg.TLS.Enabled,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Origin() string {
	return c.target.Address
}

func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Run connects and serves until ctx is done or MaxConnectAttempts
// consecutive dials fail. A dropped connection is redialed after one
// backoff step. Run returns nil when ctx ends it.
func (c *Client) Run(ctx context.Context) error {
	var attempt int
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			attempt++
			observability.RecordConnectAttempt(c.Origin(), false)
			c.setFailure(attempt, err)
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("reader.Client dial failed")
			if !c.shouldRetry(attempt) {
				return fmt.Errorf("%w: %s after %d attempts: %w", ErrGaveUp, c.target.Address, attempt, err)
			}
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return nil
			}
			continue
		}

		attempt = 0
		observability.RecordConnectAttempt(c.Origin(), true)
		c.setConnected(true, nil)
		c.publish("reader.connected", nil)
		c.logger.Info().Bool("tls", c.cfg.TLS.Enabled).Msg("reader.Client connected")

		err = c.serve(ctx, conn)
		_ = conn.Close()
		c.decoder.ResetStream(c.Origin())
		c.setConnected(false, err)
		if ctx.Err() != nil {
			c.publish("reader.disconnected", nil)
			return nil
		}
		c.publish("reader.disconnected", err)
		c.logger.Warn().Err(err).Msg("reader.Client connection lost")
		if err := c.sleepBackoff(ctx, 1); err != nil {
			return nil
		}
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", c.target.Address)
	if err != nil {
		return nil, err
	}
	if !c.cfg.TLS.Enabled {
		return rawConn, nil
	}

	tlsCfg, err := c.cfg.clientTLSConfig(c.target.Address)
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

// serve reads until the connection fails or ctx ends.
func (c *Client) serve(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	buf := make([]byte, c.cfg.ReadBuffer)
	for {
		if c.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := c.handle(ctx, conn, buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("reader: closed by peer: %w", err)
			}
			return err
		}
	}
}

// handle decodes one chunk, writes every reply and emits the readings.
// Only a failed write is returned; decode problems are logged and counted.
func (c *Client) handle(ctx context.Context, conn net.Conn, chunk []byte) error {
	origin := c.Origin()
	res := c.decoder.Decode(chunk, origin, time.Now())
	observability.RecordChunk(origin, len(chunk))

	for _, m := range res.Messages {
		observability.RecordMessage(origin, m.Name)
		c.logger.Debug().Str("type", m.Name).Uint32("id", m.ID).Msg("reader.Client message")
	}
	if res.Err != nil {
		kind := "frame"
		if errors.Is(res.Err, protocol.ErrParameterBounds) {
			kind = "parameter"
		}
		observability.RecordDecodeError(origin, kind)
		c.logger.Warn().Err(res.Err).Str("kind", kind).Int("decoded", len(res.Messages)).Msg("reader.Client decode stopped")
		c.publish("reader.decode_error", res.Err)
	}
	for _, se := range res.StatusErrors {
		observability.RecordStatusError(origin, se.Code.String())
		c.logger.Warn().
			Str("type", se.MessageType.Name()).
			Uint32("id", se.MessageID).
			Stringer("code", se.Code).
			Str("description", se.Description).
			Msg("reader.Client status error")
		c.publish("reader.status_error", se)
	}

	for _, cmd := range res.Commands {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		if _, err := conn.Write(cmd); err != nil {
			return fmt.Errorf("reader: write command: %w", err)
		}
	}
	observability.RecordCommands(origin, len(res.Commands))

	if c.sink != nil {
		for _, r := range res.Readings {
			if err := c.sink.Emit(ctx, r); err != nil {
				c.logger.Debug().Err(err).Str("transmitter_id", r.TransmitterID).Msg("reader.Client emit failed")
			}
		}
	}
	observability.RecordReadings(origin, len(res.Readings))
	return nil
}

func (c *Client) shouldRetry(attempt int) bool {
	if c.cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < c.cfg.MaxConnectAttempts
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := NextBackoffDelay(c.cfg.Backoff, attempt, c.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) setConnected(up bool, err error) {
	observability.SetConnected(c.Origin(), up)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Connected = up
	if up {
		c.status.Failures = 0
		c.status.ConnectedAt = time.Now()
		c.status.LastError = ""
		return
	}
	if err != nil {
		c.status.LastError = err.Error()
	}
}

func (c *Client) setFailure(attempt int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Failures = attempt
	c.status.LastError = err.Error()
}

func (c *Client) publish(kind string, detail any) {
	if c.events == nil {
		return
	}
	payload := map[string]any{
		"reader": c.target.Name,
		"origin": c.target.Address,
	}
	switch v := detail.(type) {
	case nil:
	case protocol.StatusError:
		payload["detail"] = v
	case error:
		payload["error"] = v.Error()
	default:
		payload["detail"] = v
	}
	if err := c.events.Publish(kind, payload); err != nil {
		c.logger.Debug().Err(err).Str("kind", kind).Msg("reader.Client event dropped")
	}
}
