package schema

import (
	"sort"

	"github.com/kestrelmq/broker/wire"
)

// EncodeMessage serializes fields (keyed by tag, as defined by def) into
// dynamic protobuf wire bytes. Fields not present in def are ignored;
// callers populate fields from values they already validated against
// def (e.g. via a schema-aware producer), so an unknown tag supplied
// here is silently dropped rather than treated as an error.
func EncodeMessage(reg *Registry, def *MessageDef, fields map[uint32]*Value) ([]byte, error) {
	tags := make([]uint32, 0, len(fields))
	for tag := range fields {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	var dst []byte
	for _, tag := range tags {
		fd, ok := def.FieldByTag(tag)
		if !ok {
			continue
		}
		v := fields[tag]
		if v == nil {
			continue
		}
		if v.Repeated != nil {
			for _, rv := range v.Repeated {
				var err error
				dst, err = encodeField(dst, tag, fd, rv, reg)
				if err != nil {
					return nil, err
				}
			}
			continue
		}
		var err error
		dst, err = encodeField(dst, tag, fd, v, reg)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func encodeField(dst []byte, tag uint32, fd FieldDef, v *Value, reg *Registry) ([]byte, error) {
	wt := wireTypeOf(fd.Type)
	key := uint64(tag)<<3 | uint64(wt)
	dst = wire.AppendVarint(dst, key)

	switch wt {
	case WireVarint:
		dst = wire.AppendVarint(dst, v.Varint)
	case WireFixed64:
		dst = wire.AppendFixed64(dst, v.Fix64)
	case WireFixed32:
		dst = wire.AppendFixed32(dst, v.Fix32)
	case WireLengthDelimited:
		payload := v.Bytes
		if fd.Type == TMessage {
			if fd.TypeName == "" {
				return nil, ErrMissingTypeName
			}
			nestedDef, ok := reg.LookupMessage(fd.TypeName)
			if !ok {
				return nil, ErrUnknownMessageType
			}
			encoded, err := EncodeMessage(reg, nestedDef, v.Message)
			if err != nil {
				return nil, err
			}
			payload = encoded
		}
		dst = wire.AppendVarintBytes(dst, payload)
	default:
		return nil, ErrUnsupportedWireType
	}
	return dst, nil
}

// DecodeMessage parses dynamic protobuf wire bytes against def, resolving
// nested message fields against reg. Unknown tags present on the wire but
// absent from def are skipped using their wire type's own length rule,
// matching proto3's forward-compatibility behavior.
func DecodeMessage(reg *Registry, def *MessageDef, data []byte) (map[uint32]*Value, error) {
	return decodeMessage(reg, def, data, 0)
}

func decodeMessage(reg *Registry, def *MessageDef, data []byte, depth int) (map[uint32]*Value, error) {
	if depth > MaxDecodeDepth {
		return nil, ErrDepthExceeded
	}

	out := make(map[uint32]*Value)
	pos := 0
	for pos < len(data) {
		key, n, err := wire.ReadVarint(data[pos:])
		if err != nil {
			return nil, ErrTruncated
		}
		pos += n
		tag := uint32(key >> 3)
		wt := WireType(key & 0x7)

		var v *Value
		switch wt {
		case WireVarint:
			u, n, err := wire.ReadVarint(data[pos:])
			if err != nil {
				return nil, ErrTruncated
			}
			pos += n
			v = varintValue(u)
		case WireFixed64:
			u, err := wire.ReadFixed64(data[pos:])
			if err != nil {
				return nil, ErrTruncated
			}
			pos += 8
			v = fixed64Value(u)
		case WireFixed32:
			u, err := wire.ReadFixed32(data[pos:])
			if err != nil {
				return nil, ErrTruncated
			}
			pos += 4
			v = fixed32Value(u)
		case WireLengthDelimited:
			b, n, err := wire.ReadVarintBytes(data[pos:])
			if err != nil {
				return nil, ErrTruncated
			}
			pos += n
			fd, known := def.FieldByTag(tag)
			if known && fd.Type == TMessage {
				nestedDef, ok := reg.LookupMessage(fd.TypeName)
				if !ok {
					return nil, ErrUnknownMessageType
				}
				sub, err := decodeMessage(reg, nestedDef, b, depth+1)
				if err != nil {
					return nil, err
				}
				v = messageValue(sub)
			} else {
				v = bytesValue(b)
			}
		default:
			return nil, ErrUnsupportedWireType
		}

		fd, known := def.FieldByTag(tag)
		if !known {
			continue // unknown tag: its value has been read past and is dropped
		}
		if fd.Label == LabelRepeated {
			existing, ok := out[tag]
			if !ok {
				existing = &Value{Kind: v.Kind}
				out[tag] = existing
			}
			existing.Repeated = append(existing.Repeated, v)
			continue
		}
		mergeValue(out, tag, v)
	}
	return out, nil
}

// mergeValue records a decoded field value under tag, folding repeated
// occurrences of the same tag into a single Value's Repeated slice (the
// wire format has no marker distinguishing a scalar field from a
// repeated one; repetition is simply multiple key/value pairs).
func mergeValue(out map[uint32]*Value, tag uint32, v *Value) {
	existing, ok := out[tag]
	if !ok {
		out[tag] = v
		return
	}
	if existing.Repeated == nil {
		first := *existing
		first.Repeated = nil
		existing.Repeated = []*Value{&first}
	}
	existing.Repeated = append(existing.Repeated, v)
}
