package packet

import "github.com/kestrelmq/broker/wire"

// PUBLISH carries an application message from a publisher to the broker,
// or from the broker to a subscriber. The broker routes QoS 0 only, where
// there is no packet identifier in the variable header; the codec still
// reads and writes one when QoS > 0.
type PUBLISH struct {
	Dup      bool
	QoS      uint8
	Retain   bool
	Topic    string
	PacketID uint16 // only meaningful if QoS > 0; unused at QoS 0
	Payload  []byte
}

func (p *PUBLISH) Kind() byte { return PUBLISH }

// DecodePUBLISH parses a PUBLISH body. header carries the QoS/Dup/Retain
// flag bits, which live in the fixed header rather than the body.
func DecodePUBLISH(header FixedHeader, body []byte) (*PUBLISH, error) {
	if header.QoS > 2 {
		return nil, ErrProtocolViolation
	}
	topic, n, err := wire.ReadMQTTString(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]

	p := &PUBLISH{
		Dup:    header.Dup != 0,
		QoS:    header.QoS,
		Retain: header.Retain != 0,
		Topic:  topic,
	}
	if p.QoS > 0 {
		p.PacketID, _, err = wire.ReadUint16(body)
		if err != nil {
			return nil, err
		}
		body = body[2:]
	}
	// Remaining bytes are the payload, zero-length is valid.
	p.Payload = body
	return p, nil
}

// EncodeTo writes the PUBLISH packet, fixed header included, into dst.
func (p *PUBLISH) EncodeTo(dst []byte) (int, error) {
	var body []byte
	body = wire.AppendMQTTString(body, p.Topic)
	if p.QoS > 0 {
		body = wire.AppendUint16(body, p.PacketID)
	}
	body = append(body, p.Payload...)

	var dup, retain uint8
	if p.Dup {
		dup = 1
	}
	if p.Retain {
		retain = 1
	}
	header := FixedHeader{Kind: PUBLISH, Dup: dup, QoS: p.QoS, Retain: retain, RemainingLength: uint32(len(body))}
	return encodeWithFixedHeader(dst, header, body)
}
