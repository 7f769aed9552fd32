package packet

import "github.com/kestrelmq/broker/wire"

// Subscription is one (topic filter, requested QoS) pair in a SUBSCRIBE
// payload.
type Subscription struct {
	TopicFilter string
	RequestedQoS uint8
}

// SUBSCRIBE requests one or more topic subscriptions.
type SUBSCRIBE struct {
	PacketID      uint16
	Subscriptions []Subscription
}

func (p *SUBSCRIBE) Kind() byte { return SUBSCRIBE }

// DecodeSUBSCRIBE parses a SUBSCRIBE body.
func DecodeSUBSCRIBE(body []byte) (*SUBSCRIBE, error) {
	packetID, n, err := wire.ReadUint16(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]

	p := &SUBSCRIBE{PacketID: packetID}
	for len(body) > 0 {
		topic, n, err := wire.ReadMQTTString(body)
		if err != nil {
			return nil, err
		}
		body = body[n:]
		if len(body) < 1 {
			return nil, ErrInsufficientData
		}
		p.Subscriptions = append(p.Subscriptions, Subscription{TopicFilter: topic, RequestedQoS: body[0] & 0x3})
		body = body[1:]
	}
	if len(p.Subscriptions) == 0 {
		return nil, ErrProtocolViolation
	}
	return p, nil
}

// EncodeTo writes the SUBSCRIBE packet, fixed header included, into dst.
func (p *SUBSCRIBE) EncodeTo(dst []byte) (int, error) {
	body := wire.AppendUint16(nil, p.PacketID)
	for _, s := range p.Subscriptions {
		body = wire.AppendMQTTString(body, s.TopicFilter)
		body = append(body, s.RequestedQoS)
	}
	header := FixedHeader{Kind: SUBSCRIBE, QoS: 1, RemainingLength: uint32(len(body))}
	return encodeWithFixedHeader(dst, header, body)
}
