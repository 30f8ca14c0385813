package schema

import (
	"testing"

	"github.com/danmuck/llrpd/internal/testutil/testlog"
)

func TestParamTableIsConsistent(t *testing.T) {
	testlog.Start(t)
	if err := Validate(); err != nil {
		t.Fatalf("validate param table: %v", err)
	}
}

func TestTVLengthsIncludeTypeByte(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		param ParamType
		total int
	}{
		{ParamAntennaID, 3},
		{ParamPeakRSSI, 2},
		{ParamEPC96, 13},
		{ParamROSpecID, 5},
		{ParamLastSeenTimestampUTC, 9},
		{ParamC1G2PC, 3},
	}
	for _, tc := range cases {
		info, ok := LookupParam(tc.param)
		if !ok {
			t.Fatalf("param %d missing from table", tc.param)
		}
		if info.TotalLen() != tc.total {
			t.Fatalf("param %s: total length got %d want %d", info.Name, info.TotalLen(), tc.total)
		}
	}
}

func TestMessageNames(t *testing.T) {
	testlog.Start(t)
	cases := map[MessageType]string{
		12:  "GET_READER_CONFIG_RESPONSE",
		13:  "SET_READER_CONFIG_RESPONSE",
		30:  "ADD_ROSPEC_RESPONSE",
		32:  "START_ROSPEC_RESPONSE",
		34:  "ENABLE_ROSPEC_RESPONSE",
		61:  "RO_ACCESS_REPORT",
		62:  "KEEPALIVE",
		63:  "READER_EVENT_NOTIFICATION",
		999: "999",
	}
	for code, want := range cases {
		if got := code.Name(); got != want {
			t.Fatalf("message %d: got %q want %q", code, got, want)
		}
	}
	if MessageType(999).Known() {
		t.Fatalf("expected 999 to be unknown")
	}
	if mt, ok := MessageTypeByName("KEEPALIVE"); !ok || mt != MsgKeepalive {
		t.Fatalf("reverse lookup: got %d ok=%v", mt, ok)
	}
}

func TestUnknownParamNameIsNumeric(t *testing.T) {
	testlog.Start(t)
	if got := ParamType(1023).Name(); got != "1023" {
		t.Fatalf("unexpected name: %q", got)
	}
	if ParamType(1023).IsTV() {
		t.Fatalf("1023 is in tlv space")
	}
	if !ParamType(127).IsTV() {
		t.Fatalf("127 is in tv space")
	}
}
