package schema

// ScalarType enumerates the field types the schema language accepts.
type ScalarType int

const (
	TDouble ScalarType = iota
	TFloat
	TInt32
	TInt64
	TUint32
	TUint64
	TFixed32
	TFixed64
	TBool
	TString
	TBytes
	TMessage
	TEnum
	TSFixed32
	TSFixed64
	TSInt32
	TSInt64
)

// Label is a field's cardinality, proto2-style (proto3 syntax is accepted
// but required/optional/repeated still gate the wire format here, per the
// schema language's restricted grammar).
type Label int

const (
	LabelOptional Label = iota
	LabelRequired
	LabelRepeated
)

// WireType is the protobuf wire-format category a field's bytes are
// framed with.
type WireType int

const (
	WireVarint WireType = iota
	WireFixed64
	WireLengthDelimited
	_ // wire type 3/4 (start/end group) are not part of this subset
	_
	WireFixed32
)

// wireTypeOf returns the WireType a ScalarType is encoded with.
func wireTypeOf(t ScalarType) WireType {
	switch t {
	case TInt32, TInt64, TUint32, TUint64, TBool, TEnum, TSInt32, TSInt64:
		return WireVarint
	case TFixed64, TDouble, TSFixed64:
		return WireFixed64
	case TFixed32, TFloat, TSFixed32:
		return WireFixed32
	case TString, TBytes, TMessage:
		return WireLengthDelimited
	default:
		return WireVarint
	}
}

// FieldDef describes one field of a MessageDef.
type FieldDef struct {
	Name  string
	Tag   uint32
	Type  ScalarType
	Label Label
	// TypeName names the referenced message when Type == TMessage. The
	// parser gives every non-scalar type name TMessage, so a name that
	// refers to an enum is handled as a nested message too. Resolved by name at
	// encode/decode time against the Registry, not at parse time, so
	// forward and self references work without a second pass.
	TypeName string
}

// MessageDef is a fully parsed message type: its fields keyed by tag, and
// the verbatim schema source it was parsed from (Service Discovery hands
// this back to clients).
type MessageDef struct {
	Name   string
	Fields []FieldDef
	Source string

	byTag map[uint32]FieldDef
}

func newMessageDef(name, source string, fields []FieldDef) *MessageDef {
	m := &MessageDef{Name: name, Fields: fields, Source: source, byTag: make(map[uint32]FieldDef, len(fields))}
	for _, f := range fields {
		m.byTag[f.Tag] = f
	}
	return m
}

// FieldByTag looks up a field definition by its wire tag number.
func (m *MessageDef) FieldByTag(tag uint32) (FieldDef, bool) {
	f, ok := m.byTag[tag]
	return f, ok
}
