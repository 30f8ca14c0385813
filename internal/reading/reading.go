// Package reading turns decoded tag reports into normalized tag readings.
package reading

import (
	"strconv"
	"time"
)

// IdentifierType classifies transmitter and receiver identifiers. Values
// follow the raddec identifier numbering so downstream consumers can use
// them unchanged.
type IdentifierType uint8

const (
	IdentifierUnknown IdentifierType = 0
	IdentifierEUI64   IdentifierType = 1
	IdentifierEUI48   IdentifierType = 2
	IdentifierRND48   IdentifierType = 3
	IdentifierTID96   IdentifierType = 4
	IdentifierEPC96   IdentifierType = 5
)

func (t IdentifierType) String() string {
	switch t {
	case IdentifierUnknown:
		return "unknown"
	case IdentifierEUI64:
		return "eui-64"
	case IdentifierEUI48:
		return "eui-48"
	case IdentifierRND48:
		return "rnd-48"
	case IdentifierTID96:
		return "tid-96"
	case IdentifierEPC96:
		return "epc-96"
	default:
		return "identifier(" + strconv.Itoa(int(t)) + ")"
	}
}

// ReceiverType maps an LLRP Identification IDType onto an identifier kind.
// Readers identified by MAC (IDType 0) report a 64-bit EUI.
func ReceiverType(idType uint64) IdentifierType {
	if idType == 0 {
		return IdentifierEUI64
	}
	return IdentifierUnknown
}

// Identity is the receiver a reading is attributed to.
type Identity struct {
	ReceiverID     string         `json:"receiverId" msgpack:"receiverId"`
	ReceiverIDType IdentifierType `json:"receiverIdType" msgpack:"receiverIdType"`
}

// Reading is one normalized tag observation.
type Reading struct {
	TransmitterID     string         `json:"transmitterId" msgpack:"transmitterId"`
	TransmitterIDType IdentifierType `json:"transmitterIdType" msgpack:"transmitterIdType"`
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp      int64          `json:"timestamp" msgpack:"timestamp"`
	RSSI           *int           `json:"rssi,omitempty" msgpack:"rssi,omitempty"`
	AntennaID      *uint16        `json:"antennaId,omitempty" msgpack:"antennaId,omitempty"`
	ReceiverID     string         `json:"receiverId,omitempty" msgpack:"receiverId,omitempty"`
	ReceiverIDType IdentifierType `json:"receiverIdType" msgpack:"receiverIdType"`
	Origin         string         `json:"origin,omitempty" msgpack:"origin,omitempty"`
}

func (r Reading) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

func (r Reading) HasReceiver() bool {
	return r.ReceiverID != ""
}
