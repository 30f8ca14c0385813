// Package llrptest builds LLRP byte fixtures for tests.
package llrptest

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/danmuck/llrpd/internal/protocol/schema"
)

func U16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func U32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func U64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func Concat(parts ...[]byte) []byte {
	out := make([]byte, 0)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// TV encodes a type-value parameter. The caller supplies a value of the
// schema's fixed length.
func TV(t schema.ParamType, value []byte) []byte {
	return append([]byte{0x80 | byte(t)}, value...)
}

// TLV encodes a type-length-value parameter around the concatenated body.
func TLV(t schema.ParamType, body ...[]byte) []byte {
	value := Concat(body...)
	b := make([]byte, 4, 4+len(value))
	binary.BigEndian.PutUint16(b[0:2], uint16(t)&0x03FF)
	binary.BigEndian.PutUint16(b[2:4], uint16(4+len(value)))
	return append(b, value...)
}

// Message encodes a full frame with the given protocol version.
func Message(version uint8, mt schema.MessageType, id uint32, body ...[]byte) []byte {
	value := Concat(body...)
	b := make([]byte, 10, 10+len(value))
	binary.BigEndian.PutUint16(b[0:2], uint16(version&0x07)<<10|uint16(mt)&0x03FF)
	binary.BigEndian.PutUint32(b[2:6], uint32(10+len(value)))
	binary.BigEndian.PutUint32(b[6:10], id)
	return append(b, value...)
}

// V1 encodes a version 1 frame.
func V1(mt schema.MessageType, id uint32, body ...[]byte) []byte {
	return Message(1, mt, id, body...)
}

func MustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %q: %v", s, err)
	}
	return b
}

// Status encodes an LLRPStatus parameter.
func Status(code uint16, desc string, nested ...[]byte) []byte {
	return TLV(schema.ParamLLRPStatus, Concat(U16(code), U16(uint16(len(desc))), []byte(desc)), Concat(nested...))
}

// Identification encodes an Identification parameter.
func Identification(idType byte, readerID []byte) []byte {
	return TLV(schema.ParamIdentification, []byte{idType}, U16(uint16(len(readerID))), readerID)
}

// Tag holds the optional pieces of a TagReportData fixture.
type Tag struct {
	EPC      []byte
	Antenna  uint16
	RSSI     int8
	LastSeen uint64
}

// TagReport encodes a TagReportData parameter. Zero fields are omitted,
// except RSSI which is always written when EPC is set.
func TagReport(tag Tag) []byte {
	parts := make([][]byte, 0, 4)
	if tag.EPC != nil {
		parts = append(parts, TV(schema.ParamEPC96, tag.EPC))
	}
	if tag.Antenna != 0 {
		parts = append(parts, TV(schema.ParamAntennaID, U16(tag.Antenna)))
	}
	if tag.EPC != nil {
		parts = append(parts, TV(schema.ParamPeakRSSI, []byte{byte(tag.RSSI)}))
	}
	if tag.LastSeen != 0 {
		parts = append(parts, TV(schema.ParamLastSeenTimestampUTC, U64(tag.LastSeen)))
	}
	return TLV(schema.ParamTagReportData, parts...)
}
