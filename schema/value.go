package schema

// Value is a decoded protobuf field value. Exactly one of the fields
// below is meaningful, selected by the Kind the decoding FieldDef's
// wire type produced.
type Value struct {
	Kind WireType

	Varint uint64
	Fix64  uint64
	Fix32  uint32
	Bytes  []byte // raw bytes for TBytes/TString fields

	// Message holds a nested message's decoded fields, keyed by tag.
	// Populated when the owning field has Type == TMessage.
	Message map[uint32]*Value

	// Repeated holds every value received for a field tag that appeared
	// more than once in the wire data (proto3 treats any field as
	// implicitly repeatable on the wire regardless of its Label).
	Repeated []*Value
}

func varintValue(u uint64) *Value  { return &Value{Kind: WireVarint, Varint: u} }
func fixed64Value(u uint64) *Value { return &Value{Kind: WireFixed64, Fix64: u} }
func fixed32Value(u uint32) *Value { return &Value{Kind: WireFixed32, Fix32: u} }
func bytesValue(b []byte) *Value   { return &Value{Kind: WireLengthDelimited, Bytes: b} }
func messageValue(m map[uint32]*Value) *Value {
	return &Value{Kind: WireLengthDelimited, Message: m}
}

// AsString decodes a length-delimited value as a UTF-8 string. It does
// not validate the bytes are a submessage rather than text; callers
// know which from the FieldDef.
func (v *Value) AsString() string {
	if v == nil {
		return ""
	}
	return string(v.Bytes)
}
