package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/llrpd/internal/protocol/schema"
)

const (
	// HeaderLen is the fixed LLRP message header: 3 reserved bits, 3 version
	// bits, 10 type bits, a 32-bit total length and a 32-bit message id.
	HeaderLen = 10
	// MinScanLen is the least a buffer must hold before a frame is attempted.
	MinScanLen = 4

	VersionV101 uint8 = 1
	VersionV111 uint8 = 2
)

var (
	ErrShortBuffer        = errors.New("frame: fewer than 4 bytes remain")
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrUnsupportedVersion = errors.New("frame: unsupported protocol version")
	ErrInvalidLength      = errors.New("frame: invalid declared length")
	ErrIncomplete         = errors.New("frame: incomplete frame")
)

// Header is the fixed wire header.
type Header struct {
	Version uint8
	Type    schema.MessageType
	Length  uint32
	ID      uint32
}

// Frame is one complete wire message. Value is owned by the frame.
type Frame struct {
	Header Header
	Value  []byte
}

// Limits constrains frame memory use.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 1 << 20}
}

func (l Limits) allows(length uint32) bool {
	return l.MaxFrameBytes == 0 || length <= l.MaxFrameBytes
}

// SupportedVersion reports whether v is LLRP 1.0.1 or 1.1.
func SupportedVersion(v uint8) bool {
	return v == VersionV101 || v == VersionV111
}

// VersionOf extracts the version bits from the first header byte.
func VersionOf(b0 byte) uint8 {
	return (b0 >> 2) & 0x07
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	return Header{
		Version: VersionOf(b[0]),
		Type:    schema.MessageType(binary.BigEndian.Uint16(b[0:2]) & 0x03FF),
		Length:  binary.BigEndian.Uint32(b[2:6]),
		ID:      binary.BigEndian.Uint32(b[6:10]),
	}, nil
}

// Scan splits buf into complete frames. It returns the frames read, the
// number of bytes they occupied, and the reason scanning stopped. A nil
// error means buf ended exactly on a frame boundary. ErrShortBuffer and
// ErrIncomplete mean the tail holds the start of a frame that has not fully
// arrived.
func Scan(buf []byte, limits Limits) ([]Frame, int, error) {
	frames := make([]Frame, 0)
	off := 0
	for off < len(buf) {
		rem := len(buf) - off
		if rem < MinScanLen {
			return frames, off, ErrShortBuffer
		}
		if v := VersionOf(buf[off]); !SupportedVersion(v) {
			return frames, off, fmt.Errorf("%w: version=%d offset=%d", ErrUnsupportedVersion, v, off)
		}
		if rem < HeaderLen {
			return frames, off, ErrIncomplete
		}
		h, err := DecodeHeader(buf[off : off+HeaderLen])
		if err != nil {
			return frames, off, err
		}
		if h.Length < HeaderLen || !limits.allows(h.Length) {
			return frames, off, fmt.Errorf("%w: length=%d offset=%d", ErrInvalidLength, h.Length, off)
		}
		if uint64(rem) < uint64(h.Length) {
			return frames, off, ErrIncomplete
		}
		end := off + int(h.Length)
		value := make([]byte, end-off-HeaderLen)
		copy(value, buf[off+HeaderLen:end])
		frames = append(frames, Frame{Header: h, Value: value})
		off = end
	}
	return frames, off, nil
}

// ReadFrame reads exactly one frame from a stream.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}
	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if !SupportedVersion(h.Version) {
		return Frame{}, fmt.Errorf("%w: version=%d", ErrUnsupportedVersion, h.Version)
	}
	if h.Length < HeaderLen || !limits.allows(h.Length) {
		return Frame{}, fmt.Errorf("%w: length=%d", ErrInvalidLength, h.Length)
	}
	value := make([]byte, h.Length-HeaderLen)
	if _, err := io.ReadFull(r, value); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrIncomplete
		}
		return Frame{}, err
	}
	return Frame{Header: h, Value: value}, nil
}
