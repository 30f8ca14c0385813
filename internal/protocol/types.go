package protocol

import (
	"fmt"
	"time"

	"github.com/danmuck/llrpd/internal/protocol/param"
	"github.com/danmuck/llrpd/internal/protocol/schema"
)

// Message is one decoded LLRP frame.
type Message struct {
	Type       schema.MessageType `json:"type"`
	Name       string             `json:"name"`
	ID         uint32             `json:"id"`
	Version    uint8              `json:"version"`
	Fields     param.Fields       `json:"fields"`
	Params     []param.Parameter  `json:"-"`
	Origin     string             `json:"origin,omitempty"`
	CapturedAt time.Time          `json:"captured_at,omitzero"`
}

// Status returns the message's LLRPStatus when it reports a failure.
func (m Message) Status() (StatusError, bool) {
	status, ok := m.Fields.Group(schema.ParamLLRPStatus.Name())
	if !ok {
		return StatusError{}, false
	}
	code, _ := status.Uint("StatusCode")
	if code == 0 {
		return StatusError{}, false
	}
	desc, _ := status.String("ErrorDescription")
	return StatusError{
		Origin:      m.Origin,
		MessageType: m.Type,
		MessageID:   m.ID,
		Code:        StatusCode(code),
		Description: desc,
		Details:     status,
	}, true
}

// StatusCode is an LLRPStatus code.
type StatusCode uint16

var statusNames = map[StatusCode]string{
	0:   "M_Success",
	100: "M_ParameterError",
	101: "M_FieldError",
	102: "M_UnexpectedParameter",
	103: "M_MissingParameter",
	104: "M_DuplicateParameter",
	105: "M_OverflowParameter",
	106: "M_OverflowField",
	107: "M_UnknownParameter",
	108: "M_UnknownField",
	109: "M_UnsupportedMessage",
	110: "M_UnsupportedVersion",
	111: "M_UnsupportedParameter",
	112: "M_UnexpectedMessage",
	200: "P_ParameterError",
	201: "P_FieldError",
	202: "P_UnexpectedParameter",
	203: "P_MissingParameter",
	204: "P_DuplicateParameter",
	205: "P_OverflowParameter",
	206: "P_OverflowField",
	207: "P_UnknownParameter",
	208: "P_UnknownField",
	209: "P_UnsupportedParameter",
	300: "A_Invalid",
	301: "A_OutOfRange",
	401: "R_DeviceError",
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("StatusCode(%d)", uint16(c))
}

// StatusError is a reader-reported failure carried by a decoded message.
// It is reported, never returned from the decode path.
type StatusError struct {
	Origin      string             `json:"origin,omitempty"`
	MessageType schema.MessageType `json:"message_type"`
	MessageID   uint32             `json:"message_id"`
	Code        StatusCode         `json:"code"`
	Description string             `json:"description"`
	Details     param.Fields       `json:"details,omitempty"`
}

func (e StatusError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("protocol: %s id=%d status=%s", e.MessageType.Name(), e.MessageID, e.Code)
	}
	return fmt.Sprintf("protocol: %s id=%d status=%s: %s", e.MessageType.Name(), e.MessageID, e.Code, e.Description)
}
