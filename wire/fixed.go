package wire

import "encoding/binary"

// AppendFixed32 appends the little-endian 4-byte encoding of v (protobuf's
// fixed32/float wire representation).
func AppendFixed32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// ReadFixed32 reads a little-endian uint32 from the front of b.
func ReadFixed32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrInsufficientData
	}
	return binary.LittleEndian.Uint32(b), nil
}

// AppendFixed64 appends the little-endian 8-byte encoding of v (protobuf's
// fixed64/double wire representation).
func AppendFixed64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// ReadFixed64 reads a little-endian uint64 from the front of b.
func ReadFixed64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrInsufficientData
	}
	return binary.LittleEndian.Uint64(b), nil
}

// AppendVarintBytes appends a protobuf-style length-delimited byte string:
// a varint length followed by the raw bytes.
func AppendVarintBytes(dst []byte, v []byte) []byte {
	dst = AppendVarint(dst, uint64(len(v)))
	return append(dst, v...)
}

// ReadVarintBytes reads a varint length followed by that many bytes from
// the front of b, and returns a slice borrowed from b.
func ReadVarintBytes(b []byte) ([]byte, int, error) {
	n, used, err := ReadVarint(b)
	if err != nil {
		return nil, 0, err
	}
	end := used + int(n)
	if end < used || end > len(b) {
		return nil, 0, ErrInsufficientData
	}
	return b[used:end], end, nil
}

// AppendMQTTString appends an MQTT-style UTF-8 string: a 16-bit big-endian
// length prefix followed by the raw bytes.
func AppendMQTTString(dst []byte, s string) []byte {
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(len(s)))
	dst = append(dst, lb[:]...)
	return append(dst, s...)
}

// ReadMQTTString reads an MQTT-style length-prefixed string from the front
// of b and returns a string view plus the number of bytes consumed.
func ReadMQTTString(b []byte) (string, int, error) {
	if len(b) < 2 {
		return "", 0, ErrInsufficientData
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return "", 0, ErrInsufficientData
	}
	return string(b[2 : 2+n]), 2 + n, nil
}

// AppendUint16 appends the MQTT wire representation of a 16-bit integer
// (packet identifiers, keep-alive): big-endian, two bytes.
func AppendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

// ReadUint16 reads a big-endian uint16 from the front of b.
func ReadUint16(b []byte) (uint16, int, error) {
	if len(b) < 2 {
		return 0, 0, ErrInsufficientData
	}
	return binary.BigEndian.Uint16(b), 2, nil
}
