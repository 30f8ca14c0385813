package session

import (
	"sync"
	"time"

	"github.com/danmuck/llrpd/internal/protocol"
	"github.com/danmuck/llrpd/internal/protocol/frame"
	"github.com/danmuck/llrpd/internal/protocol/schema"
	"github.com/danmuck/llrpd/internal/reading"
	"github.com/rs/zerolog/log"
)

// Options controls how a State decodes its stream.
type Options struct {
	// Stitch carries partial frames across chunks. When false a trailing
	// partial frame is dropped and reported as a frame validation failure.
	Stitch bool
	// ReportAllTags emits one reading per TagReportData instead of one per
	// report.
	ReportAllTags bool
	Limits        frame.Limits
}

func DefaultOptions() Options {
	return Options{
		Stitch: true,
		Limits: frame.DefaultLimits(),
	}
}

// ReaderIdentity is the last identity a reader reported for an origin.
type ReaderIdentity struct {
	reading.Identity
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stats are running counters for one origin.
type Stats struct {
	Chunks       uint64    `json:"chunks"`
	Bytes        uint64    `json:"bytes"`
	Messages     uint64    `json:"messages"`
	Commands     uint64    `json:"commands"`
	Readings     uint64    `json:"readings"`
	StatusErrors uint64    `json:"statusErrors"`
	DecodeErrors uint64    `json:"decodeErrors"`
	LastChunkAt  time.Time `json:"lastChunkAt,omitzero"`
}

// Result is everything one chunk produced.
type Result struct {
	Messages     []protocol.Message
	Commands     [][]byte
	Readings     []reading.Reading
	StatusErrors []protocol.StatusError
	Err          error
}

// State is the decode state of one origin: its frame assembler and the
// identity its reader last reported. Decode calls are serialized; accessors
// are safe to call from other goroutines.
type State struct {
	origin string
	opts   Options

	decodeMu sync.Mutex
	asm      *frame.Assembler

	mu       sync.RWMutex
	identity ReaderIdentity
	known    bool
	stats    Stats
}

func NewState(origin string, opts Options) *State {
	return &State{
		origin: origin,
		opts:   opts,
		asm:    frame.NewAssembler(opts.Limits),
	}
}

func (s *State) Origin() string {
	return s.origin
}

func (s *State) Identity() (ReaderIdentity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.known
}

func (s *State) SetIdentity(id reading.Identity, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = ReaderIdentity{Identity: id, UpdatedAt: at}
	s.known = true
}

func (s *State) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ResetStream discards any partial frame. Call it when the underlying
// connection is replaced. The identity is kept.
func (s *State) ResetStream() {
	s.decodeMu.Lock()
	defer s.decodeMu.Unlock()
	s.asm.Reset()
}

// Decode runs one chunk through framing, interpretation, the handshake
// table and reading extraction. Messages decoded before a failure are still
// dispatched; Err reports why decoding stopped.
func (s *State) Decode(chunk []byte, captureTime time.Time) Result {
	s.decodeMu.Lock()
	defer s.decodeMu.Unlock()

	var (
		frames  []frame.Frame
		scanErr error
	)
	if s.opts.Stitch {
		frames, scanErr = s.asm.Feed(chunk)
	} else {
		frames, _, scanErr = frame.Scan(chunk, s.opts.Limits)
	}

	decoded := protocol.DecodeFrames(frames)
	out := Result{Err: decoded.Err}
	switch {
	case decoded.Err != nil:
		// A frame boundary inside the abandoned remainder cannot be trusted.
		s.asm.Reset()
	case scanErr != nil:
		out.Err = protocol.FrameError(scanErr)
	}

	for _, m := range decoded.Messages {
		m.Origin = s.origin
		m.CapturedAt = captureTime
		s.dispatch(m, captureTime, &out)
		out.Messages = append(out.Messages, m)
	}

	s.mu.Lock()
	s.stats.Chunks++
	s.stats.Bytes += uint64(len(chunk))
	s.stats.Messages += uint64(len(out.Messages))
	s.stats.Commands += uint64(len(out.Commands))
	s.stats.Readings += uint64(len(out.Readings))
	s.stats.StatusErrors += uint64(len(out.StatusErrors))
	if out.Err != nil {
		s.stats.DecodeErrors++
	}
	s.stats.LastChunkAt = captureTime
	s.mu.Unlock()
	return out
}

func (s *State) dispatch(m protocol.Message, captureTime time.Time, out *Result) {
	if se, ok := m.Status(); ok {
		out.StatusErrors = append(out.StatusErrors, se)
	}
	if cmd := NextCommand(m); cmd != nil {
		out.Commands = append(out.Commands, cmd)
	}

	switch m.Type {
	case schema.MsgGetReaderConfigResponse:
		if id, ok := reading.IdentityFrom(m); ok {
			s.SetIdentity(id, captureTime)
			log.Debug().
				Str("origin", s.origin).
				Str("receiver_id", id.ReceiverID).
				Stringer("receiver_id_type", id.ReceiverIDType).
				Msg("session.State identity updated")
		}
	case schema.MsgROAccessReport:
		var idp *reading.Identity
		if cur, ok := s.Identity(); ok {
			idp = &cur.Identity
		}
		if s.opts.ReportAllTags {
			out.Readings = append(out.Readings, reading.ExtractAll(m, idp, captureTime)...)
		} else if r, ok := reading.Extract(m, idp, captureTime); ok {
			out.Readings = append(out.Readings, r)
		}
	}
}
