package param

import (
	"encoding/binary"

	"github.com/danmuck/llrpd/internal/protocol/schema"
	"github.com/pkg/errors"
)

const (
	TLVHeaderLen = 4
	TVHeaderLen  = 1

	// MaxDepth bounds nested parameter recursion. LLRP nests only a few
	// levels deep; anything beyond this is a malformed segment.
	MaxDepth = 8
)

var (
	ErrBounds  = errors.New("param: read out of bounds")
	ErrTooDeep = errors.New("param: nesting too deep")
)

// Encoding is the wire form a parameter was read from.
type Encoding uint8

const (
	TV Encoding = iota + 1
	TLV
)

func (e Encoding) String() string {
	switch e {
	case TV:
		return "tv"
	case TLV:
		return "tlv"
	default:
		return "invalid"
	}
}

// Parameter is one parameter split from a value segment.
type Parameter struct {
	Type     schema.ParamType
	Encoding Encoding
	Raw      []byte
	Value    Value
}

// Name is the key the parameter is stored under in Fields.
func (p Parameter) Name() string {
	return p.Type.Name()
}

// Split scans a value segment into its top-level parameters, decoding each.
func Split(b []byte) ([]Parameter, error) {
	return split(b, 0)
}

// Decode scans a value segment into a name-keyed mapping. Repeated names
// resolve last-write-wins.
func Decode(b []byte) (Fields, error) {
	return decodeFields(b, 0)
}

func decodeFields(b []byte, depth int) (Fields, error) {
	params, err := split(b, depth)
	if err != nil {
		return nil, err
	}
	return Collect(params), nil
}

// Collect keys params by name, last-write-wins.
func Collect(params []Parameter) Fields {
	fields := make(Fields, len(params))
	for _, p := range params {
		fields[p.Name()] = p.Value
	}
	return fields
}

func split(b []byte, depth int) ([]Parameter, error) {
	if depth > MaxDepth {
		return nil, errors.Wrapf(ErrTooDeep, "depth %d exceeds %d", depth, MaxDepth)
	}
	params := make([]Parameter, 0)
	i := 0
	for i < len(b) {
		var (
			p   Parameter
			end int
		)
		if b[i]&0x80 != 0 {
			t := schema.ParamType(b[i] & 0x7F)
			info, ok := schema.LookupParam(t)
			if !ok {
				// An unknown TV has no length. The rest of the segment is
				// kept opaque under the code and scanning stops here.
				raw := b[i+TVHeaderLen:]
				params = append(params, Parameter{Type: t, Encoding: TV, Raw: raw, Value: NewHex(raw)})
				break
			}
			end = i + info.TotalLen()
			if end > len(b) {
				return nil, errors.Wrapf(ErrBounds, "offset %d: %s needs %d bytes, have %d", i, info.Name, info.TotalLen(), len(b)-i)
			}
			p = Parameter{Type: t, Encoding: TV, Raw: b[i+TVHeaderLen : end]}
		} else {
			if len(b)-i < TLVHeaderLen {
				return nil, errors.Wrapf(ErrBounds, "offset %d: short tlv header", i)
			}
			t := schema.ParamType(binary.BigEndian.Uint16(b[i:i+2]) & 0x03FF)
			l := int(binary.BigEndian.Uint16(b[i+2 : i+4]))
			if l < TLVHeaderLen {
				return nil, errors.Wrapf(ErrBounds, "offset %d: tlv %d declares length %d", i, t, l)
			}
			end = i + l
			if end > len(b) {
				return nil, errors.Wrapf(ErrBounds, "offset %d: tlv %d declares length %d, have %d", i, t, l, len(b)-i)
			}
			p = Parameter{Type: t, Encoding: TLV, Raw: b[i+TLVHeaderLen : end]}
		}

		v, err := DecodeValue(p.Type, p.Raw, depth)
		if err != nil {
			return nil, errors.WithMessagef(err, "offset %d", i)
		}
		p.Value = v
		params = append(params, p)
		i = end
	}
	return params, nil
}

// cursor reads big-endian fields from a parameter value, latching the first
// out-of-bounds read.
type cursor struct {
	b    []byte
	pos  int
	err  error
	what schema.ParamType
}

func newCursor(t schema.ParamType, b []byte) *cursor {
	return &cursor{b: b, what: t}
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if n < 0 || len(c.b)-c.pos < n {
		c.err = errors.Wrapf(ErrBounds, "%s: need %d bytes at %d, have %d", c.what.Name(), n, c.pos, len(c.b)-c.pos)
		return false
	}
	return true
}

func (c *cursor) u8() uint64 {
	if !c.need(1) {
		return 0
	}
	v := c.b[c.pos]
	c.pos++
	return uint64(v)
}

func (c *cursor) u16() uint64 {
	if !c.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(c.b[c.pos:])
	c.pos += 2
	return uint64(v)
}

func (c *cursor) u32() uint64 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.b[c.pos:])
	c.pos += 4
	return uint64(v)
}

func (c *cursor) u64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(c.b[c.pos:])
	c.pos += 8
	return v
}

func (c *cursor) bytes(n int) []byte {
	if !c.need(n) {
		return nil
	}
	v := c.b[c.pos : c.pos+n]
	c.pos += n
	return v
}

func (c *cursor) rest() []byte {
	if c.err != nil {
		return nil
	}
	v := c.b[c.pos:]
	c.pos = len(c.b)
	return v
}
