package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/llrpd/internal/protocol/schema"
	"github.com/danmuck/llrpd/internal/testutil/llrptest"
	"github.com/danmuck/llrpd/internal/testutil/testlog"
)

func TestDecodeHeaderVersionAndType(t *testing.T) {
	testlog.Start(t)
	h, err := DecodeHeader(llrptest.MustHex(t, "040c0000000a00000007"))
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.Version != 1 || h.Type != schema.MsgGetReaderConfigResponse || h.Length != 10 || h.ID != 7 {
		t.Fatalf("unexpected header: %+v", h)
	}

	h, err = DecodeHeader(llrptest.MustHex(t, "0402000000110000000000000100000000"))
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.Version != 1 || h.Type != schema.MsgGetReaderConfig || h.Length != 17 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestScanShortBufferConsumesNothing(t *testing.T) {
	testlog.Start(t)
	for _, in := range [][]byte{nil, {0x04}, {0x04, 0x3e, 0x00}} {
		frames, n, err := Scan(in, DefaultLimits())
		if len(frames) != 0 || n != 0 {
			t.Fatalf("input %x: got %d frames, consumed %d", in, len(frames), n)
		}
		if len(in) > 0 && !errors.Is(err, ErrShortBuffer) {
			t.Fatalf("input %x: expected ErrShortBuffer, got %v", in, err)
		}
	}
}

func TestScanMultipleFrames(t *testing.T) {
	testlog.Start(t)
	keepalive := llrptest.V1(schema.MsgKeepalive, 1)
	report := llrptest.V1(schema.MsgROAccessReport, 2, llrptest.TV(schema.ParamAntennaID, llrptest.U16(1)))
	v2 := llrptest.Message(2, schema.MsgKeepalive, 3)
	buf := llrptest.Concat(keepalive, report, v2)

	frames, n, err := Scan(buf, DefaultLimits())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != len(buf) || len(frames) != 3 {
		t.Fatalf("got %d frames consuming %d of %d", len(frames), n, len(buf))
	}
	if frames[1].Header.Type != schema.MsgROAccessReport || frames[1].Header.ID != 2 {
		t.Fatalf("unexpected second header: %+v", frames[1].Header)
	}
	if !bytes.Equal(frames[1].Value, report[HeaderLen:]) {
		t.Fatalf("value mismatch: %x", frames[1].Value)
	}
	if frames[2].Header.Version != VersionV111 {
		t.Fatalf("expected v1.1 frame, got %d", frames[2].Header.Version)
	}
}

func TestScanStopsOnBadVersionKeepingEarlierFrames(t *testing.T) {
	testlog.Start(t)
	good := llrptest.V1(schema.MsgKeepalive, 1)
	bad := llrptest.Message(5, schema.MsgKeepalive, 2)
	frames, n, err := Scan(llrptest.Concat(good, bad, good), DefaultLimits())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if len(frames) != 1 || n != len(good) {
		t.Fatalf("got %d frames consuming %d", len(frames), n)
	}
}

func TestScanIncompleteFrameIsNotParsed(t *testing.T) {
	testlog.Start(t)
	report := llrptest.V1(schema.MsgROAccessReport, 9, llrptest.TV(schema.ParamAntennaID, llrptest.U16(1)))
	buf := llrptest.Concat(llrptest.V1(schema.MsgKeepalive, 1), report[:len(report)-1])
	frames, n, err := Scan(buf, DefaultLimits())
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if len(frames) != 1 || n != HeaderLen {
		t.Fatalf("got %d frames consuming %d", len(frames), n)
	}
}

func TestScanRejectsInvalidLengths(t *testing.T) {
	testlog.Start(t)
	under := llrptest.MustHex(t, "043e0000000400000000")
	if _, _, err := Scan(under, DefaultLimits()); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for undersized frame, got %v", err)
	}
	big := llrptest.V1(schema.MsgKeepalive, 1, make([]byte, 64))
	if _, _, err := Scan(big, Limits{MaxFrameBytes: 32}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for oversized frame, got %v", err)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	testlog.Start(t)
	buf := llrptest.Concat(llrptest.V1(schema.MsgKeepalive, 1), llrptest.V1(schema.MsgKeepalive, 2))
	a, _, _ := Scan(buf, DefaultLimits())
	b, _, _ := Scan(buf, DefaultLimits())
	if len(a) != len(b) {
		t.Fatalf("frame counts differ")
	}
	for i := range a {
		if a[i].Header != b[i].Header || !bytes.Equal(a[i].Value, b[i].Value) {
			t.Fatalf("frame %d differs", i)
		}
	}
}

func TestReadFrameFromStream(t *testing.T) {
	testlog.Start(t)
	buf := bytes.NewBuffer(llrptest.Concat(
		llrptest.V1(schema.MsgKeepaliveAck, 4),
		llrptest.V1(schema.MsgGetReaderConfig, 5, []byte{0, 0, 1, 0, 0, 0, 0}),
	))
	f, err := ReadFrame(buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Header.Type != schema.MsgKeepaliveAck || len(f.Value) != 0 {
		t.Fatalf("unexpected first frame: %+v", f)
	}
	f, err = ReadFrame(buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Header.ID != 5 || len(f.Value) != 7 {
		t.Fatalf("unexpected second frame: %+v", f)
	}
	if _, err := ReadFrame(bytes.NewReader([]byte{4, 0x3e, 0}), DefaultLimits()); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}
