package param

import (
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Kind discriminates the decoded representation held by a Value.
type Kind uint8

const (
	KindUint Kind = iota + 1
	KindInt
	KindHex
	KindText
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindHex:
		return "hex"
	case KindText:
		return "text"
	case KindGroup:
		return "group"
	default:
		return "invalid"
	}
}

// Value is one decoded parameter. Exactly one payload field is meaningful,
// selected by Kind. Records and nested parameter collections are both Groups.
type Value struct {
	Kind  Kind
	Uint  uint64
	Int   int64
	Str   string
	Group Fields
}

func NewUint(v uint64) Value { return Value{Kind: KindUint, Uint: v} }
func NewInt(v int64) Value { return Value{Kind: KindInt, Int: v} }
func NewText(s string) Value { return Value{Kind: KindText, Str: s} }
func NewGroup(f Fields) Value { return Value{Kind: KindGroup, Group: f} }
func NewHex(b []byte) Value { return Value{Kind: KindHex, Str: hex.EncodeToString(b)} }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindUint:
		return json.Marshal(v.Uint)
	case KindInt:
		return json.Marshal(v.Int)
	case KindHex, KindText:
		return json.Marshal(v.Str)
	case KindGroup:
		if v.Group == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]Value(v.Group))
	default:
		return []byte("null"), nil
	}
}

// Fields maps parameter (or record field) names to decoded values.
type Fields map[string]Value

func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Uint returns an unsigned value. Signed values are accepted when non-negative.
func (f Fields) Uint(name string) (uint64, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case KindUint:
		return v.Uint, true
	case KindInt:
		if v.Int >= 0 {
			return uint64(v.Int), true
		}
	}
	return 0, false
}

func (f Fields) Int(name string) (int64, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindUint:
		return int64(v.Uint), true
	}
	return 0, false
}

// String returns hex or text values.
func (f Fields) String(name string) (string, bool) {
	v, ok := f[name]
	if !ok || (v.Kind != KindHex && v.Kind != KindText) {
		return "", false
	}
	return v.Str, true
}

func (f Fields) Group(name string) (Fields, bool) {
	v, ok := f[name]
	if !ok || v.Kind != KindGroup {
		return nil, false
	}
	return v.Group, true
}

// Merge copies every entry of other into f, overwriting on collision.
func (f Fields) Merge(other Fields) {
	for k, v := range other {
		f[k] = v
	}
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
