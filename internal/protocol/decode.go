package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/llrpd/internal/protocol/frame"
	"github.com/danmuck/llrpd/internal/protocol/param"
	"github.com/rs/zerolog/log"
)

// Result is what a chunk decode produced before it stopped. Err is nil when
// the whole chunk decoded; otherwise it wraps ErrFrameValidation or
// ErrParameterBounds and Messages holds everything decoded before the stop.
type Result struct {
	Messages []Message
	Err      error
}

// Interpret resolves a frame's message type and decodes its parameters.
func Interpret(f frame.Frame) (Message, error) {
	params, err := param.Split(f.Value)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s id=%d: %w", ErrParameterBounds, f.Header.Type.Name(), f.Header.ID, err)
	}
	return Message{
		Type:    f.Header.Type,
		Name:    f.Header.Type.Name(),
		ID:      f.Header.ID,
		Version: f.Header.Version,
		Fields:  param.Collect(params),
		Params:  params,
	}, nil
}

// DecodeFrames interprets frames in order. The first frame that fails to
// decode is dropped together with every frame after it.
func DecodeFrames(frames []frame.Frame) Result {
	msgs := make([]Message, 0, len(frames))
	for i, f := range frames {
		m, err := Interpret(f)
		if err != nil {
			log.Debug().
				Err(err).
				Int("dropped", len(frames)-i).
				Msg("protocol.DecodeFrames abandoned chunk")
			return Result{Messages: msgs, Err: err}
		}
		msgs = append(msgs, m)
	}
	return Result{Messages: msgs}
}

// DecodeChunk scans and interprets a single chunk that is expected to hold
// only complete frames. A trailing partial frame is discarded.
func DecodeChunk(chunk []byte, limits frame.Limits) Result {
	frames, _, scanErr := frame.Scan(chunk, limits)
	res := DecodeFrames(frames)
	if res.Err != nil {
		return res
	}
	if scanErr != nil {
		res.Err = FrameError(scanErr)
	}
	return res
}

// FrameError tags a scanner stop reason as a frame validation failure.
func FrameError(err error) error {
	if err == nil || errors.Is(err, ErrFrameValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFrameValidation, err)
}
