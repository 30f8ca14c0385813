// Package sink delivers normalized tag readings to downstream consumers.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/llrpd/internal/observability"
	"github.com/danmuck/llrpd/internal/reading"
	"github.com/rs/zerolog/log"
)

// Sink accepts readings. Emit must be safe for concurrent use.
type Sink interface {
	Name() string
	Emit(ctx context.Context, r reading.Reading) error
}

// Fanout emits every reading to each sink in order. A failing sink does not
// stop the others.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Name() string {
	return "fanout"
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Emit(ctx context.Context, r reading.Reading) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Emit(ctx, r); err != nil {
			observability.RecordSinkError(s.Name())
			log.Warn().
				Err(err).
				Str("sink", s.Name()).
				Str("transmitter_id", r.TransmitterID).
				Msg("sink.Fanout emit failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		c, ok := s.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Log writes each reading as a structured log line.
type Log struct{}

func (Log) Name() string {
	return "log"
}

func (Log) Emit(_ context.Context, r reading.Reading) error {
	event := log.Info().
		Str("origin", r.Origin).
		Str("transmitter_id", r.TransmitterID).
		Stringer("transmitter_id_type", r.TransmitterIDType).
		Int64("timestamp", r.Timestamp)
	if r.RSSI != nil {
		event = event.Int("rssi", *r.RSSI)
	}
	if r.AntennaID != nil {
		event = event.Uint16("antenna_id", *r.AntennaID)
	}
	if r.HasReceiver() {
		event = event.Str("receiver_id", r.ReceiverID)
	}
	event.Msg("reading")
	return nil
}
