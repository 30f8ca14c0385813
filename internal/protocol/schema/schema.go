package schema

import (
	"fmt"
	"strconv"
)

// MessageType is the 10-bit LLRP message type code.
type MessageType uint16

// Message types sent or received by the reader bring-up sequence.
const (
	MsgGetReaderConfig         MessageType = 2
	MsgSetReaderConfig         MessageType = 3
	MsgGetReaderConfigResponse MessageType = 12
	MsgSetReaderConfigResponse MessageType = 13
	MsgAddROSpec               MessageType = 20
	MsgStartROSpec             MessageType = 22
	MsgEnableROSpec            MessageType = 24
	MsgAddROSpecResponse       MessageType = 30
	MsgStartROSpecResponse     MessageType = 32
	MsgEnableROSpecResponse    MessageType = 34
	MsgROAccessReport          MessageType = 61
	MsgKeepalive               MessageType = 62
	MsgReaderEventNotification MessageType = 63
	MsgEnableEventsAndReports  MessageType = 64
	MsgKeepaliveAck            MessageType = 72
	MsgErrorMessage            MessageType = 100
)

var messageNames = map[MessageType]string{
	MsgGetReaderConfig:         "GET_READER_CONFIG",
	MsgSetReaderConfig:         "SET_READER_CONFIG",
	MsgGetReaderConfigResponse: "GET_READER_CONFIG_RESPONSE",
	MsgSetReaderConfigResponse: "SET_READER_CONFIG_RESPONSE",
	MsgAddROSpec:               "ADD_ROSPEC",
	MsgStartROSpec:             "START_ROSPEC",
	MsgEnableROSpec:            "ENABLE_ROSPEC",
	MsgAddROSpecResponse:       "ADD_ROSPEC_RESPONSE",
	MsgStartROSpecResponse:     "START_ROSPEC_RESPONSE",
	MsgEnableROSpecResponse:    "ENABLE_ROSPEC_RESPONSE",
	MsgROAccessReport:          "RO_ACCESS_REPORT",
	MsgKeepalive:               "KEEPALIVE",
	MsgReaderEventNotification: "READER_EVENT_NOTIFICATION",
	MsgEnableEventsAndReports:  "ENABLE_EVENTS_AND_REPORTS",
	MsgKeepaliveAck:            "KEEPALIVE_ACK",
	MsgErrorMessage:            "ERROR_MESSAGE",
}

// Known reports whether t has an entry in the message table.
func (t MessageType) Known() bool {
	_, ok := messageNames[t]
	return ok
}

// Name returns the semantic name, or the decimal code for unknown types.
func (t MessageType) Name() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

func (t MessageType) String() string { return t.Name() }

// MessageTypeByName is the reverse lookup used by diagnostics.
func MessageTypeByName(name string) (MessageType, bool) {
	for t, n := range messageNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// ParamType is an LLRP parameter type code. TV codes occupy 1..127,
// TLV codes occupy 128..1023.
type ParamType uint16

// TV parameters.
const (
	ParamAntennaID                 ParamType = 1
	ParamFirstSeenTimestampUTC     ParamType = 2
	ParamFirstSeenTimestampUptime  ParamType = 3
	ParamLastSeenTimestampUTC      ParamType = 4
	ParamLastSeenTimestampUptime   ParamType = 5
	ParamPeakRSSI                  ParamType = 6
	ParamChannelIndex              ParamType = 7
	ParamTagSeenCount              ParamType = 8
	ParamROSpecID                  ParamType = 9
	ParamInventoryParameterSpecID  ParamType = 10
	ParamC1G2CRC                   ParamType = 11
	ParamC1G2PC                    ParamType = 12
	ParamEPC96                     ParamType = 13
	ParamSpecIndex                 ParamType = 14
	ParamClientRequestOpSpecResult ParamType = 15
	ParamAccessSpecID              ParamType = 16
	ParamOpSpecID                  ParamType = 17
	ParamC1G2SingulationDetails    ParamType = 18
	ParamC1G2XPCW1                 ParamType = 19
	ParamC1G2XPCW2                 ParamType = 20
)

// TLV parameters.
const (
	ParamUTCTimestamp                ParamType = 128
	ParamUptime                      ParamType = 129
	ParamIdentification              ParamType = 218
	ParamTagReportData               ParamType = 240
	ParamEPCData                     ParamType = 241
	ParamReaderEventNotificationData ParamType = 246
	ParamHoppingEvent                ParamType = 247
	ParamROSpecEvent                 ParamType = 249
	ParamReaderExceptionEvent        ParamType = 252
	ParamAntennaEvent                ParamType = 255
	ParamConnectionEventAttempt      ParamType = 256
	ParamConnectionCloseEvent        ParamType = 257
	ParamLLRPStatus                  ParamType = 287
	ParamFieldError                  ParamType = 288
	ParamParameterError              ParamType = 289
)

// MaxTVType is the largest code a TV parameter can carry.
const MaxTVType ParamType = 0x7F

// ParamInfo describes one parameter table entry. ValueLen is the fixed
// value length of a TV parameter, excluding its type byte, and zero for TLV.
type ParamInfo struct {
	Type     ParamType
	Name     string
	ValueLen int
}

// TotalLen is the number of bytes a TV parameter occupies on the wire.
func (p ParamInfo) TotalLen() int {
	return 1 + p.ValueLen
}

var params = map[ParamType]ParamInfo{
	ParamAntennaID:                 {ParamAntennaID, "AntennaID", 2},
	ParamFirstSeenTimestampUTC:     {ParamFirstSeenTimestampUTC, "FirstSeenTimestampUTC", 8},
	ParamFirstSeenTimestampUptime:  {ParamFirstSeenTimestampUptime, "FirstSeenTimestampUptime", 8},
	ParamLastSeenTimestampUTC:      {ParamLastSeenTimestampUTC, "LastSeenTimestampUTC", 8},
	ParamLastSeenTimestampUptime:   {ParamLastSeenTimestampUptime, "LastSeenTimestampUptime", 8},
	ParamPeakRSSI:                  {ParamPeakRSSI, "PeakRSSI", 1},
	ParamChannelIndex:              {ParamChannelIndex, "ChannelIndex", 2},
	ParamTagSeenCount:              {ParamTagSeenCount, "TagSeenCount", 2},
	ParamROSpecID:                  {ParamROSpecID, "ROSpecID", 4},
	ParamInventoryParameterSpecID:  {ParamInventoryParameterSpecID, "InventoryParameterSpecID", 2},
	ParamC1G2CRC:                   {ParamC1G2CRC, "C1G2CRC", 2},
	ParamC1G2PC:                    {ParamC1G2PC, "C1G2PC", 2},
	ParamEPC96:                     {ParamEPC96, "EPC-96", 12},
	ParamSpecIndex:                 {ParamSpecIndex, "SpecIndex", 2},
	ParamClientRequestOpSpecResult: {ParamClientRequestOpSpecResult, "ClientRequestOpSpecResult", 2},
	ParamAccessSpecID:              {ParamAccessSpecID, "AccessSpecID", 4},
	ParamOpSpecID:                  {ParamOpSpecID, "OpSpecID", 2},
	ParamC1G2SingulationDetails:    {ParamC1G2SingulationDetails, "C1G2SingulationDetails", 4},
	ParamC1G2XPCW1:                 {ParamC1G2XPCW1, "C1G2XPCW1", 2},
	ParamC1G2XPCW2:                 {ParamC1G2XPCW2, "C1G2XPCW2", 2},

	ParamUTCTimestamp:                {ParamUTCTimestamp, "UTCTimestamp", 0},
	ParamUptime:                      {ParamUptime, "Uptime", 0},
	ParamIdentification:              {ParamIdentification, "Identification", 0},
	ParamTagReportData:               {ParamTagReportData, "TagReportData", 0},
	ParamEPCData:                     {ParamEPCData, "EPCData", 0},
	ParamReaderEventNotificationData: {ParamReaderEventNotificationData, "ReaderEventNotificationData", 0},
	ParamHoppingEvent:                {ParamHoppingEvent, "HoppingEvent", 0},
	ParamROSpecEvent:                 {ParamROSpecEvent, "ROSpecEvent", 0},
	ParamReaderExceptionEvent:        {ParamReaderExceptionEvent, "ReaderExceptionEvent", 0},
	ParamAntennaEvent:                {ParamAntennaEvent, "AntennaEvent", 0},
	ParamConnectionEventAttempt:      {ParamConnectionEventAttempt, "ConnectionEventAttempt", 0},
	ParamConnectionCloseEvent:        {ParamConnectionCloseEvent, "ConnectionCloseEvent", 0},
	ParamLLRPStatus:                  {ParamLLRPStatus, "LLRPStatus", 0},
	ParamFieldError:                  {ParamFieldError, "FieldError", 0},
	ParamParameterError:              {ParamParameterError, "ParameterError", 0},
}

// LookupParam returns the table entry for t.
func LookupParam(t ParamType) (ParamInfo, bool) {
	info, ok := params[t]
	return info, ok
}

// IsTV reports whether t falls in the TV code space.
func (t ParamType) IsTV() bool {
	return t >= 1 && t <= MaxTVType
}

func (t ParamType) Known() bool {
	_, ok := params[t]
	return ok
}

// Name returns the semantic name, or the decimal code for unknown types.
func (t ParamType) Name() string {
	if info, ok := params[t]; ok {
		return info.Name
	}
	return strconv.Itoa(int(t))
}

func (t ParamType) String() string { return t.Name() }

// ValidationError reports a table entry that breaks the schema's own rules.
type ValidationError struct {
	Param  ParamType
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: param=%d: %s", e.Param, e.Reason)
}

// Validate checks the parameter table: TV entries carry a fixed length,
// TLV entries do not, and names are unique.
func Validate() error {
	seen := make(map[string]ParamType, len(params))
	for t, info := range params {
		if info.Type != t {
			return ValidationError{Param: t, Reason: "entry type does not match key"}
		}
		if t.IsTV() && info.ValueLen <= 0 {
			return ValidationError{Param: t, Reason: "tv parameter without fixed length"}
		}
		if !t.IsTV() && info.ValueLen != 0 {
			return ValidationError{Param: t, Reason: "tlv parameter with fixed length"}
		}
		if prev, dup := seen[info.Name]; dup {
			return ValidationError{Param: t, Reason: fmt.Sprintf("name %q already used by %d", info.Name, prev)}
		}
		seen[info.Name] = t
	}
	return nil
}
