package packet

import "github.com/kestrelmq/broker/wire"

// UNSUBSCRIBE requests removal of one or more topic subscriptions.
type UNSUBSCRIBE struct {
	PacketID     uint16
	TopicFilters []string
}

func (p *UNSUBSCRIBE) Kind() byte { return UNSUBSCRIBE }

// DecodeUNSUBSCRIBE parses an UNSUBSCRIBE body.
func DecodeUNSUBSCRIBE(body []byte) (*UNSUBSCRIBE, error) {
	packetID, n, err := wire.ReadUint16(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]

	p := &UNSUBSCRIBE{PacketID: packetID}
	for len(body) > 0 {
		topic, n, err := wire.ReadMQTTString(body)
		if err != nil {
			return nil, err
		}
		p.TopicFilters = append(p.TopicFilters, topic)
		body = body[n:]
	}
	if len(p.TopicFilters) == 0 {
		return nil, ErrProtocolViolation
	}
	return p, nil
}

// EncodeTo writes the UNSUBSCRIBE packet, fixed header included, into dst.
func (p *UNSUBSCRIBE) EncodeTo(dst []byte) (int, error) {
	body := wire.AppendUint16(nil, p.PacketID)
	for _, t := range p.TopicFilters {
		body = wire.AppendMQTTString(body, t)
	}
	header := FixedHeader{Kind: UNSUBSCRIBE, QoS: 1, RemainingLength: uint32(len(body))}
	return encodeWithFixedHeader(dst, header, body)
}

// UNSUBACK acknowledges an UNSUBSCRIBE. The reference implementation this
// broker is modeled on omits UNSUBACK; this core emits it, which is the
// spec-compliant behavior.
type UNSUBACK struct {
	PacketID uint16
}

func (p *UNSUBACK) Kind() byte { return UNSUBACK }

// DecodeUNSUBACK parses an UNSUBACK body.
func DecodeUNSUBACK(body []byte) (*UNSUBACK, error) {
	packetID, _, err := wire.ReadUint16(body)
	if err != nil {
		return nil, err
	}
	return &UNSUBACK{PacketID: packetID}, nil
}

// EncodeTo writes the UNSUBACK packet, fixed header included, into dst.
func (p *UNSUBACK) EncodeTo(dst []byte) (int, error) {
	body := wire.AppendUint16(nil, p.PacketID)
	return encodeWithFixedHeader(dst, FixedHeader{Kind: UNSUBACK, RemainingLength: uint32(len(body))}, body)
}
