package packet

import "github.com/kestrelmq/broker/wire"

// SubackGrantedQoS0 is the only return code this broker grants: it never
// accepts QoS 1/2 subscriptions (Non-goal: QoS above at-most-once).
const SubackGrantedQoS0 byte = 0x00

// SubackFailure is returned for a rejected subscription (e.g. malformed
// topic filter).
const SubackFailure byte = 0x80

// SUBACK acknowledges a SUBSCRIBE, one return code per requested topic.
type SUBACK struct {
	PacketID    uint16
	ReturnCodes []byte
}

func (p *SUBACK) Kind() byte { return SUBACK }

// DecodeSUBACK parses a SUBACK body.
func DecodeSUBACK(body []byte) (*SUBACK, error) {
	packetID, n, err := wire.ReadUint16(body)
	if err != nil {
		return nil, err
	}
	return &SUBACK{PacketID: packetID, ReturnCodes: append([]byte(nil), body[n:]...)}, nil
}

// EncodeTo writes the SUBACK packet, fixed header included, into dst.
func (p *SUBACK) EncodeTo(dst []byte) (int, error) {
	body := wire.AppendUint16(nil, p.PacketID)
	body = append(body, p.ReturnCodes...)
	return encodeWithFixedHeader(dst, FixedHeader{Kind: SUBACK, RemainingLength: uint32(len(body))}, body)
}
