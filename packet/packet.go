// Package packet implements the MQTT 3.1.1 fixed-header framing and the
// per-type control packet bodies this broker needs (QoS 0 only). Decoders
// never mutate their input and return slices borrowed from it; callers
// must finish using a decoded packet before the underlying connection
// buffer is consumed further.
package packet

// Packet is the common interface every decoded control packet satisfies.
type Packet interface {
	Kind() byte
}

// encodeWithFixedHeader appends header and body into dst, after verifying
// dst has room for both. It returns the total number of bytes written.
func encodeWithFixedHeader(dst []byte, header FixedHeader, body []byte) (int, error) {
	need := 1 + sizeVarintHeaderLen(header.RemainingLength) + len(body)
	if cap(dst)-len(dst) < need && dst != nil {
		return 0, ErrBufferTooSmall
	}
	start := len(dst)
	dst = header.Encode(dst)
	dst = append(dst, body...)
	return len(dst) - start, nil
}

func sizeVarintHeaderLen(remaining uint32) int {
	n := 1
	v := remaining
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Decode parses one complete control packet from the front of b, where b
// holds at least header.Size+header.RemainingLength bytes (the framing
// loop's job is to guarantee this before calling Decode). It returns the
// decoded packet and the number of bytes consumed.
func Decode(b []byte) (Packet, int, error) {
	header, err := ParseFixedHeader(b)
	if err != nil {
		return nil, 0, err
	}
	total := header.Size + int(header.RemainingLength)
	if len(b) < total {
		return nil, 0, ErrInsufficientData
	}
	body := b[header.Size:total]

	var pkt Packet
	switch header.Kind {
	case CONNECT:
		pkt, err = DecodeCONNECT(body)
	case CONNACK:
		pkt, err = DecodeCONNACK(body)
	case PUBLISH:
		pkt, err = DecodePUBLISH(header, body)
	case SUBSCRIBE:
		if header.Dup != 0 || header.QoS != 1 || header.Retain != 0 {
			return nil, 0, ErrMalformedFlags
		}
		pkt, err = DecodeSUBSCRIBE(body)
	case SUBACK:
		pkt, err = DecodeSUBACK(body)
	case UNSUBSCRIBE:
		if header.Dup != 0 || header.QoS != 1 || header.Retain != 0 {
			return nil, 0, ErrMalformedFlags
		}
		pkt, err = DecodeUNSUBSCRIBE(body)
	case UNSUBACK:
		pkt, err = DecodeUNSUBACK(body)
	case PINGREQ:
		pkt = &PINGREQ{}
	case PINGRESP:
		pkt = &PINGRESP{}
	case DISCONNECT:
		pkt = &DISCONNECT{}
	default:
		pkt, err = &RESERVED{RawKind: header.Kind}, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return pkt, total, nil
}
