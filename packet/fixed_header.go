package packet

import "github.com/kestrelmq/broker/wire"

// Packet type constants. Position: byte 1, bits 7-4. AUTH and the QoS>0
// acknowledgement types (PUBACK/PUBREC/PUBREL/PUBCOMP) are MQTT 5 / QoS>0
// only and are not implemented by this QoS-0 broker core.
const (
	RESERVED    byte = 0x0
	CONNECT     byte = 0x1
	CONNACK     byte = 0x2
	PUBLISH     byte = 0x3
	SUBSCRIBE   byte = 0x8
	SUBACK      byte = 0x9
	UNSUBSCRIBE byte = 0xA
	UNSUBACK    byte = 0xB
	PINGREQ     byte = 0xC
	PINGRESP    byte = 0xD
	DISCONNECT  byte = 0xE
)

// FixedHeader is the 2-to-5 byte header every MQTT control packet opens
// with: a type+flags byte followed by a 1-4 byte remaining-length varint.
type FixedHeader struct {
	Kind            byte
	Dup             uint8
	QoS             uint8
	Retain          uint8
	RemainingLength uint32

	// Size is the number of bytes the fixed header itself occupied
	// (1 + the varint's encoded length). The framing loop needs
	// Size+RemainingLength bytes available before it can decode a body.
	Size int
}

// ParseFixedHeader reads a fixed header from the front of b. It never
// mutates or retains b. ErrInsufficientData means not enough bytes are
// present yet to finish the varint; the caller should wait for more data
// on the connection. ErrMalformedRemainingLength means a 5th continuation
// byte was seen, which MQTT 3.1.1 forbids.
func ParseFixedHeader(b []byte) (FixedHeader, error) {
	if len(b) < 1 {
		return FixedHeader{}, ErrInsufficientData
	}
	h := FixedHeader{
		Kind:   b[0] >> 4,
		Dup:    (b[0] >> 3) & 0x1,
		QoS:    (b[0] >> 1) & 0x3,
		Retain: b[0] & 0x1,
	}

	var rl uint32
	var i int
	for ; ; i++ {
		if i >= 4 {
			return FixedHeader{}, ErrMalformedRemainingLength
		}
		if 1+i >= len(b) {
			return FixedHeader{}, ErrInsufficientData
		}
		c := b[1+i]
		rl |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			i++
			break
		}
	}
	h.RemainingLength = rl
	h.Size = 1 + i
	return h, nil
}

// Encode appends the fixed header's wire encoding to dst.
func (h FixedHeader) Encode(dst []byte) []byte {
	first := h.Kind<<4 | h.Dup<<3 | h.QoS<<1 | h.Retain
	dst = append(dst, first)
	return wire.AppendVarint(dst, uint64(h.RemainingLength))
}
