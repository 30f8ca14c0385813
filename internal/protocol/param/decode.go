package param

import "github.com/danmuck/llrpd/internal/protocol/schema"

// DecodeValue converts one parameter's raw value into its typed form.
// depth is the nesting level of the segment the parameter was read from.
// Types without a rule, including unknown codes, decode to a hex string.
func DecodeValue(t schema.ParamType, raw []byte, depth int) (Value, error) {
	switch t {
	case schema.ParamAntennaID,
		schema.ParamSpecIndex,
		schema.ParamInventoryParameterSpecID,
		schema.ParamChannelIndex,
		schema.ParamTagSeenCount,
		schema.ParamC1G2PC,
		schema.ParamC1G2CRC,
		schema.ParamC1G2XPCW1,
		schema.ParamC1G2XPCW2,
		schema.ParamOpSpecID,
		schema.ParamClientRequestOpSpecResult,
		schema.ParamConnectionEventAttempt:
		c := newCursor(t, raw)
		v := c.u16()
		return NewUint(v), c.err

	case schema.ParamPeakRSSI:
		c := newCursor(t, raw)
		v := c.u8()
		return NewInt(int64(int8(v))), c.err

	case schema.ParamROSpecID, schema.ParamAccessSpecID:
		c := newCursor(t, raw)
		v := c.u32()
		return NewUint(v), c.err

	case schema.ParamEPC96:
		return NewHex(raw), nil

	case schema.ParamFirstSeenTimestampUTC,
		schema.ParamLastSeenTimestampUTC,
		schema.ParamFirstSeenTimestampUptime,
		schema.ParamLastSeenTimestampUptime,
		schema.ParamUTCTimestamp,
		schema.ParamUptime:
		c := newCursor(t, raw)
		v := c.u64()
		return NewUint(v), c.err

	case schema.ParamReaderEventNotificationData, schema.ParamTagReportData:
		nested, err := decodeFields(raw, depth+1)
		if err != nil {
			return Value{}, err
		}
		return NewGroup(nested), nil

	case schema.ParamIdentification:
		return decodeIdentification(t, raw)

	case schema.ParamLLRPStatus:
		return decodeStatus(t, raw, depth)

	case schema.ParamFieldError:
		c := newCursor(t, raw)
		rec := Fields{
			"FieldNum":  NewUint(c.u16()),
			"ErrorCode": NewUint(c.u16()),
		}
		return NewGroup(rec), c.err

	case schema.ParamParameterError:
		c := newCursor(t, raw)
		rec := Fields{
			"ParameterType": NewUint(c.u16()),
			"ErrorCode":     NewUint(c.u16()),
		}
		return mergeRest(c, rec, depth)

	case schema.ParamEPCData:
		c := newCursor(t, raw)
		bits := c.u16()
		epc := c.bytes(int((bits + 7) / 8))
		rec := Fields{
			"EPCBitLength": NewUint(bits),
			"EPC":          NewHex(epc),
		}
		return NewGroup(rec), c.err

	case schema.ParamROSpecEvent:
		c := newCursor(t, raw)
		rec := Fields{
			"EventType":          NewUint(c.u8()),
			"ROSpecID":           NewUint(c.u32()),
			"PreemptingROSpecID": NewUint(c.u32()),
		}
		return NewGroup(rec), c.err

	case schema.ParamAntennaEvent:
		c := newCursor(t, raw)
		rec := Fields{
			"EventType": NewUint(c.u8()),
			"AntennaID": NewUint(c.u16()),
		}
		return NewGroup(rec), c.err

	case schema.ParamHoppingEvent:
		c := newCursor(t, raw)
		rec := Fields{
			"HopTableID":       NewUint(c.u16()),
			"NextChannelIndex": NewUint(c.u16()),
		}
		return NewGroup(rec), c.err

	case schema.ParamReaderExceptionEvent:
		c := newCursor(t, raw)
		n := c.u16()
		msg := c.bytes(int(n))
		rec := Fields{"Message": NewText(string(msg))}
		return mergeRest(c, rec, depth)

	case schema.ParamConnectionCloseEvent:
		return NewGroup(Fields{}), nil

	default:
		return NewHex(raw), nil
	}
}

func decodeIdentification(t schema.ParamType, raw []byte) (Value, error) {
	c := newCursor(t, raw)
	idType := c.u8()
	count := c.u16()
	id := c.bytes(int(count))
	if c.err != nil {
		return Value{}, c.err
	}
	return NewGroup(Fields{
		"IDType":    NewUint(idType),
		"ByteCount": NewUint(count),
		"ReaderID":  NewHex(id),
	}), nil
}

func decodeStatus(t schema.ParamType, raw []byte, depth int) (Value, error) {
	c := newCursor(t, raw)
	code := c.u16()
	n := c.u16()
	desc := c.bytes(int(n))
	rec := Fields{
		"StatusCode":       NewUint(code),
		"ErrorDescription": NewText(string(desc)),
	}
	return mergeRest(c, rec, depth)
}

// mergeRest decodes whatever follows the fixed fields as nested parameters
// and folds them into rec.
func mergeRest(c *cursor, rec Fields, depth int) (Value, error) {
	rest := c.rest()
	if c.err != nil {
		return Value{}, c.err
	}
	nested, err := decodeFields(rest, depth+1)
	if err != nil {
		return Value{}, err
	}
	rec.Merge(nested)
	return NewGroup(rec), nil
}
