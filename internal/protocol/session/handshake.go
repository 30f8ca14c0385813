package session

import (
	"encoding/hex"
	"fmt"

	"github.com/danmuck/llrpd/internal/protocol"
	"github.com/danmuck/llrpd/internal/protocol/schema"
)

// Command is a fixed client message sent to a reader.
type Command struct {
	Type  schema.MessageType
	bytes []byte
}

// Bytes returns a copy of the encoded frame.
func (c Command) Bytes() []byte {
	return append([]byte(nil), c.bytes...)
}

func (c Command) Name() string {
	return c.Type.Name()
}

func mustCommand(t schema.MessageType, encoded string) Command {
	b, err := hex.DecodeString(encoded)
	if err != nil {
		panic(fmt.Sprintf("session: bad %s encoding: %v", t.Name(), err))
	}
	return Command{Type: t, bytes: b}
}

// Canned commands. SET_READER_CONFIG enables reader event notifications and
// ADD_ROSPEC installs ROSpec 1: immediate start, continuous run, antenna
// inventory on all antennas, tag reports carrying EPC, antenna, peak RSSI and
// last-seen timestamp.
var (
	GetReaderConfig        = mustCommand(schema.MsgGetReaderConfig, "0402000000110000000000000100000000")
	SetReaderConfig        = mustCommand(schema.MsgSetReaderConfig, "040300000010000000000000e2000580")
	AddROSpec              = mustCommand(schema.MsgAddROSpec, "0414000000500000000400b1004600000001000000b2001200b300050000b60009000000000000b700180001000000b80009000000000000ba000700090100ed001201000100ee000bffc0015c0005c0")
	EnableROSpec           = mustCommand(schema.MsgEnableROSpec, "04180000000e0000000000000001")
	StartROSpec            = mustCommand(schema.MsgStartROSpec, "04160000000e0000000000000001")
	EnableEventsAndReports = mustCommand(schema.MsgEnableEventsAndReports, "04400000000a00000000")
	KeepaliveAck           = mustCommand(schema.MsgKeepaliveAck, "04480000000a00000000")
)

// Commands lists every canned command in handshake order.
func Commands() []Command {
	return []Command{
		GetReaderConfig,
		SetReaderConfig,
		AddROSpec,
		EnableROSpec,
		StartROSpec,
		EnableEventsAndReports,
		KeepaliveAck,
	}
}

// Replies returns the commands a message triggers, in send order.
func Replies(t schema.MessageType) []Command {
	switch t {
	case schema.MsgReaderEventNotification:
		return []Command{GetReaderConfig, SetReaderConfig}
	case schema.MsgSetReaderConfigResponse:
		return []Command{AddROSpec}
	case schema.MsgAddROSpecResponse:
		return []Command{EnableROSpec}
	case schema.MsgEnableROSpecResponse:
		return []Command{StartROSpec}
	case schema.MsgStartROSpecResponse:
		return []Command{EnableEventsAndReports}
	case schema.MsgKeepalive:
		return []Command{KeepaliveAck}
	default:
		return nil
	}
}

// NextCommand returns the bytes to send in reply to m, or nil. The
// handshake advances on the response type alone; a failed LLRPStatus is
// reported by the caller but does not stop the sequence.
func NextCommand(m protocol.Message) []byte {
	replies := Replies(m.Type)
	if len(replies) == 0 {
		return nil
	}
	var out []byte
	for _, c := range replies {
		out = append(out, c.bytes...)
	}
	return out
}
