package reading

import (
	"time"

	"github.com/danmuck/llrpd/internal/protocol"
	"github.com/danmuck/llrpd/internal/protocol/param"
	"github.com/danmuck/llrpd/internal/protocol/schema"
)

// Extract builds a reading from an RO_ACCESS_REPORT's TagReportData. EPC-96
// is required. Without LastSeenTimestampUTC the reading is stamped with now.
// id may be nil when the origin's reader has not identified itself yet.
func Extract(m protocol.Message, id *Identity, now time.Time) (Reading, bool) {
	if m.Type != schema.MsgROAccessReport {
		return Reading{}, false
	}
	report, ok := m.Fields.Group(schema.ParamTagReportData.Name())
	if !ok {
		return Reading{}, false
	}
	return fromReport(report, m.Origin, id, now)
}

// ExtractAll returns one reading per TagReportData in the report, in wire
// order. Reports that repeat TagReportData would otherwise collapse to the
// last tag.
func ExtractAll(m protocol.Message, id *Identity, now time.Time) []Reading {
	if m.Type != schema.MsgROAccessReport {
		return nil
	}
	out := make([]Reading, 0, len(m.Params))
	for _, p := range m.Params {
		if p.Type != schema.ParamTagReportData || p.Value.Kind != param.KindGroup {
			continue
		}
		if r, ok := fromReport(p.Value.Group, m.Origin, id, now); ok {
			out = append(out, r)
		}
	}
	return out
}

// IdentityFrom reads the Identification parameter of a configuration
// response.
func IdentityFrom(m protocol.Message) (Identity, bool) {
	ident, ok := m.Fields.Group(schema.ParamIdentification.Name())
	if !ok {
		return Identity{}, false
	}
	readerID, ok := ident.String("ReaderID")
	if !ok {
		return Identity{}, false
	}
	idType, _ := ident.Uint("IDType")
	return Identity{ReceiverID: readerID, ReceiverIDType: ReceiverType(idType)}, true
}

func fromReport(report param.Fields, origin string, id *Identity, now time.Time) (Reading, bool) {
	epc, ok := report.String(schema.ParamEPC96.Name())
	if !ok || epc == "" {
		return Reading{}, false
	}
	r := Reading{
		TransmitterID:     epc,
		TransmitterIDType: IdentifierEPC96,
		Timestamp:         now.UnixMilli(),
		Origin:            origin,
	}
	if us, ok := report.Uint(schema.ParamLastSeenTimestampUTC.Name()); ok {
		r.Timestamp = int64(us / 1000)
	}
	if rssi, ok := report.Int(schema.ParamPeakRSSI.Name()); ok {
		v := int(rssi)
		r.RSSI = &v
	}
	if antenna, ok := report.Uint(schema.ParamAntennaID.Name()); ok {
		v := uint16(antenna)
		r.AntennaID = &v
	}
	if id != nil && id.ReceiverID != "" {
		r.ReceiverID = id.ReceiverID
		r.ReceiverIDType = id.ReceiverIDType
	}
	return r, true
}
