package param

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/danmuck/llrpd/internal/protocol/schema"
	"github.com/danmuck/llrpd/internal/testutil/llrptest"
	"github.com/danmuck/llrpd/internal/testutil/testlog"
)

func TestSplitConsumesTVFixedLengths(t *testing.T) {
	testlog.Start(t)
	b := llrptest.Concat(
		llrptest.TV(schema.ParamAntennaID, llrptest.U16(1)),
		llrptest.TV(schema.ParamPeakRSSI, []byte{0xCE}),
		llrptest.TV(schema.ParamEPC96, make([]byte, 12)),
	)
	params, err := Split(b)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(params) != 3 {
		t.Fatalf("expected 3 params, got %d", len(params))
	}
	consumed := 0
	for _, p := range params {
		info, _ := schema.LookupParam(p.Type)
		if p.Encoding != TV {
			t.Fatalf("%s: expected tv encoding", p.Name())
		}
		if len(p.Raw) != info.ValueLen {
			t.Fatalf("%s: raw length %d want %d", p.Name(), len(p.Raw), info.ValueLen)
		}
		consumed += TVHeaderLen + len(p.Raw)
	}
	if consumed != len(b) {
		t.Fatalf("consumed %d of %d bytes", consumed, len(b))
	}
}

func TestSplitConsumesTLVDeclaredLength(t *testing.T) {
	testlog.Start(t)
	unknown := llrptest.TLV(schema.ParamType(1000), []byte{1, 2, 3})
	b := llrptest.Concat(unknown, llrptest.TV(schema.ParamAntennaID, llrptest.U16(7)))
	params, err := Split(b)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	if params[0].Encoding != TLV || len(params[0].Raw)+TLVHeaderLen != len(unknown) {
		t.Fatalf("unexpected tlv param: %+v", params[0])
	}
}

func TestUnknownTLVKeepsSiblings(t *testing.T) {
	testlog.Start(t)
	b := llrptest.Concat(
		llrptest.TV(schema.ParamAntennaID, llrptest.U16(3)),
		llrptest.TLV(schema.ParamType(1000), []byte{0xAB, 0xCD}),
		llrptest.TV(schema.ParamPeakRSSI, []byte{0xCE}),
	)
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, ok := fields.String("1000"); !ok || got != "abcd" {
		t.Fatalf("unknown param: got %q ok=%v", got, ok)
	}
	if got, ok := fields.Uint("AntennaID"); !ok || got != 3 {
		t.Fatalf("antenna: got %d ok=%v", got, ok)
	}
	if got, ok := fields.Int("PeakRSSI"); !ok || got != -50 {
		t.Fatalf("rssi: got %d ok=%v", got, ok)
	}
}

func TestDecodeNumericRules(t *testing.T) {
	testlog.Start(t)
	b := llrptest.Concat(
		llrptest.TV(schema.ParamROSpecID, llrptest.U32(0x01020304)),
		llrptest.TV(schema.ParamLastSeenTimestampUTC, llrptest.U64(1_000_000)),
		llrptest.TV(schema.ParamC1G2PC, llrptest.U16(0x3000)),
		llrptest.TV(schema.ParamEPC96, llrptest.MustHex(t, "E2806811000000000000ABCD")),
		llrptest.TLV(schema.ParamUTCTimestamp, llrptest.U64(42)),
		llrptest.TLV(schema.ParamConnectionEventAttempt, llrptest.U16(0)),
	)
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := fields.Uint("ROSpecID"); v != 0x01020304 {
		t.Fatalf("rospec id: %d", v)
	}
	if v, _ := fields.Uint("LastSeenTimestampUTC"); v != 1_000_000 {
		t.Fatalf("last seen: %d", v)
	}
	if v, _ := fields.Uint("C1G2PC"); v != 0x3000 {
		t.Fatalf("pc: %d", v)
	}
	if v, _ := fields.String("EPC-96"); v != "e2806811000000000000abcd" {
		t.Fatalf("epc: %q", v)
	}
	if v, _ := fields.Uint("UTCTimestamp"); v != 42 {
		t.Fatalf("utc timestamp: %d", v)
	}
	if v, ok := fields.Uint("ConnectionEventAttempt"); !ok || v != 0 {
		t.Fatalf("connection attempt: %d ok=%v", v, ok)
	}
}

func TestDecodeNestedTagReport(t *testing.T) {
	testlog.Start(t)
	b := llrptest.TagReport(llrptest.Tag{
		EPC:      llrptest.MustHex(t, "e28068110000000000001234"),
		Antenna:  1,
		RSSI:     -50,
		LastSeen: 1_000_000,
	})
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	report, ok := fields.Group("TagReportData")
	if !ok {
		t.Fatalf("missing TagReportData group: %+v", fields)
	}
	if v, _ := report.String("EPC-96"); v != "e28068110000000000001234" {
		t.Fatalf("epc: %q", v)
	}
	if v, _ := report.Uint("AntennaID"); v != 1 {
		t.Fatalf("antenna: %d", v)
	}
}

func TestDecodeIdentification(t *testing.T) {
	testlog.Start(t)
	b := llrptest.Identification(0, llrptest.MustHex(t, "aabbccddeeff0011"))
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, ok := fields.Group("Identification")
	if !ok {
		t.Fatalf("missing identification")
	}
	if v, _ := id.Uint("IDType"); v != 0 {
		t.Fatalf("id type: %d", v)
	}
	if v, _ := id.Uint("ByteCount"); v != 8 {
		t.Fatalf("byte count: %d", v)
	}
	if v, _ := id.String("ReaderID"); v != "aabbccddeeff0011" {
		t.Fatalf("reader id: %q", v)
	}
}

func TestDecodeStatusMergesNestedErrors(t *testing.T) {
	testlog.Start(t)
	b := llrptest.Status(101, "bad field",
		llrptest.TLV(schema.ParamFieldError, llrptest.U16(2), llrptest.U16(5)),
		llrptest.TLV(schema.ParamParameterError,
			llrptest.U16(240), llrptest.U16(9),
			llrptest.TLV(schema.ParamFieldError, llrptest.U16(1), llrptest.U16(3)),
		),
	)
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	status, ok := fields.Group("LLRPStatus")
	if !ok {
		t.Fatalf("missing status")
	}
	if v, _ := status.Uint("StatusCode"); v != 101 {
		t.Fatalf("status code: %d", v)
	}
	if v, _ := status.String("ErrorDescription"); v != "bad field" {
		t.Fatalf("description: %q", v)
	}
	fe, ok := status.Group("FieldError")
	if !ok {
		t.Fatalf("field error not merged: %+v", status)
	}
	if v, _ := fe.Uint("FieldNum"); v != 2 {
		t.Fatalf("field num: %d", v)
	}
	pe, ok := status.Group("ParameterError")
	if !ok {
		t.Fatalf("parameter error not merged")
	}
	if v, _ := pe.Uint("ParameterType"); v != 240 {
		t.Fatalf("parameter type: %d", v)
	}
	if _, ok := pe.Group("FieldError"); !ok {
		t.Fatalf("nested field error not merged into parameter error")
	}
}

func TestDecodeRepeatedNameLastWriteWins(t *testing.T) {
	testlog.Start(t)
	b := llrptest.Concat(
		llrptest.TV(schema.ParamAntennaID, llrptest.U16(1)),
		llrptest.TV(schema.ParamAntennaID, llrptest.U16(2)),
	)
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := fields.Uint("AntennaID"); v != 2 {
		t.Fatalf("expected last antenna, got %d", v)
	}
	params, err := Split(b)
	if err != nil || len(params) != 2 {
		t.Fatalf("split kept %d params err=%v", len(params), err)
	}
}

func TestDecodeBoundsFailuresAreDeterministic(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{"truncated tv", []byte{0x80 | byte(schema.ParamAntennaID), 0x00}, ErrBounds},
		{"short tlv header", []byte{0x00, 0xF0, 0x00}, ErrBounds},
		{"tlv length below header", []byte{0x00, 0xF0, 0x00, 0x02}, ErrBounds},
		{"tlv length past end", []byte{0x00, 0xF0, 0x00, 0x10, 0x01}, ErrBounds},
		{"identification overrun", llrptest.TLV(schema.ParamIdentification, []byte{0}, llrptest.U16(8), []byte{1, 2}), ErrBounds},
		{"status description overrun", llrptest.TLV(schema.ParamLLRPStatus, llrptest.U16(0), llrptest.U16(20), []byte("ab")), ErrBounds},
		{"field error short", llrptest.TLV(schema.ParamFieldError, llrptest.U16(1)), ErrBounds},
	}
	for _, tc := range cases {
		_, err := Decode(tc.in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDecodeDepthGuard(t *testing.T) {
	testlog.Start(t)
	b := llrptest.TV(schema.ParamAntennaID, llrptest.U16(1))
	for i := 0; i <= MaxDepth+1; i++ {
		b = llrptest.TLV(schema.ParamTagReportData, b)
	}
	_, err := Decode(b)
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("expected ErrTooDeep, got %v", err)
	}

	shallow := llrptest.TV(schema.ParamAntennaID, llrptest.U16(1))
	for i := 0; i < MaxDepth; i++ {
		shallow = llrptest.TLV(schema.ParamTagReportData, shallow)
	}
	if _, err := Decode(shallow); err != nil {
		t.Fatalf("depth %d should decode: %v", MaxDepth, err)
	}
}

func TestFieldsMarshalJSON(t *testing.T) {
	testlog.Start(t)
	fields := Fields{
		"AntennaID": NewUint(1),
		"PeakRSSI":  NewInt(-50),
		"EPC-96":    NewHex([]byte{0xE2, 0x80}),
		"Empty":     NewGroup(nil),
	}
	out, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"AntennaID":1,"EPC-96":"e280","Empty":{},"PeakRSSI":-50}`
	if string(out) != want {
		t.Fatalf("json: got %s want %s", out, want)
	}
}

func TestReaderEventConnectionAttemptKey(t *testing.T) {
	testlog.Start(t)
	b := llrptest.TLV(schema.ParamReaderEventNotificationData,
		llrptest.TLV(schema.ParamConnectionEventAttempt, llrptest.U16(0)),
	)
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	event, ok := fields.Group("ReaderEventNotificationData")
	if !ok {
		t.Fatalf("missing ReaderEventNotificationData")
	}
	if v, ok := event.Uint("ConnectionEventAttempt"); !ok || v != 0 {
		t.Fatalf("connection attempt: %d ok=%v", v, ok)
	}
}

func TestUnknownTVKeepsEarlierSiblings(t *testing.T) {
	testlog.Start(t)
	b := llrptest.TLV(schema.ParamTagReportData,
		llrptest.TV(schema.ParamEPC96, llrptest.MustHex(t, "e28068110000000000001234")),
		llrptest.TV(schema.ParamType(48), []byte{0x01, 0x02}),
		llrptest.TV(schema.ParamAntennaID, llrptest.U16(9)),
	)
	fields, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	report, ok := fields.Group("TagReportData")
	if !ok {
		t.Fatalf("missing TagReportData")
	}
	if got, _ := report.String("EPC-96"); got != "e28068110000000000001234" {
		t.Fatalf("epc: %q", got)
	}
	// The unknown TV swallows the rest of its segment, including AntennaID.
	if got, ok := report.String("48"); !ok || got != "0102"+"8100"+"09" {
		t.Fatalf("unknown tv: got %q ok=%v", got, ok)
	}
	if _, ok := report.Uint("AntennaID"); ok {
		t.Fatalf("scanning should stop at the unknown tv")
	}
}
