package packet

import "github.com/kestrelmq/broker/wire"

// ConnectFlags is the single flags byte in a CONNECT variable header: bit
// layout per MQTT 3.1.1 §3.1.2.2.
type ConnectFlags struct {
	UsernameFlag bool
	PasswordFlag bool
	WillRetain   bool
	WillQoS      uint8
	WillFlag     bool
	CleanSession bool
}

func decodeConnectFlags(b byte) ConnectFlags {
	return ConnectFlags{
		UsernameFlag: b&0x80 != 0,
		PasswordFlag: b&0x40 != 0,
		WillRetain:   b&0x20 != 0,
		WillQoS:      (b >> 3) & 0x3,
		WillFlag:     b&0x4 != 0,
		CleanSession: b&0x2 != 0,
	}
}

func (f ConnectFlags) encode() byte {
	var b byte
	if f.UsernameFlag {
		b |= 0x80
	}
	if f.PasswordFlag {
		b |= 0x40
	}
	if f.WillRetain {
		b |= 0x20
	}
	b |= (f.WillQoS & 0x3) << 3
	if f.WillFlag {
		b |= 0x4
	}
	if f.CleanSession {
		b |= 0x2
	}
	return b
}

// CONNECT is the client's request to open an MQTT session. Will fields are
// parsed but otherwise ignored by this broker core (retained/will
// publishing is a non-goal).
type CONNECT struct {
	ProtocolName  string
	ProtocolLevel byte
	Flags         ConnectFlags
	KeepAlive     uint16
	ClientID      string
	WillTopic     string
	WillPayload   []byte
	Username      string
	Password      string
}

func (p *CONNECT) Kind() byte { return CONNECT }

// DecodeCONNECT parses a CONNECT body (the bytes after the fixed header).
func DecodeCONNECT(body []byte) (*CONNECT, error) {
	p := &CONNECT{}
	name, n, err := wire.ReadMQTTString(body)
	if err != nil {
		return nil, err
	}
	p.ProtocolName = name
	body = body[n:]

	if len(body) < 3 {
		return nil, ErrInsufficientData
	}
	p.ProtocolLevel = body[0]
	p.Flags = decodeConnectFlags(body[1])
	p.KeepAlive, _, err = wire.ReadUint16(body[2:])
	if err != nil {
		return nil, err
	}
	body = body[4:]

	p.ClientID, n, err = wire.ReadMQTTString(body)
	if err != nil {
		return nil, err
	}
	body = body[n:]

	if p.Flags.WillFlag {
		p.WillTopic, n, err = wire.ReadMQTTString(body)
		if err != nil {
			return nil, err
		}
		body = body[n:]
		payload, n, err := wire.ReadMQTTString(body)
		if err != nil {
			return nil, err
		}
		p.WillPayload = []byte(payload)
		body = body[n:]
	}
	if p.Flags.UsernameFlag {
		p.Username, n, err = wire.ReadMQTTString(body)
		if err != nil {
			return nil, err
		}
		body = body[n:]
	}
	if p.Flags.PasswordFlag {
		p.Password, n, err = wire.ReadMQTTString(body)
		if err != nil {
			return nil, err
		}
		body = body[n:]
	}
	return p, nil
}

// EncodeTo writes the CONNECT packet, fixed header included, into dst.
func (p *CONNECT) EncodeTo(dst []byte) (int, error) {
	var body []byte
	body = wire.AppendMQTTString(body, p.ProtocolName)
	body = append(body, p.ProtocolLevel, p.Flags.encode())
	body = wire.AppendUint16(body, p.KeepAlive)
	body = wire.AppendMQTTString(body, p.ClientID)
	if p.Flags.WillFlag {
		body = wire.AppendMQTTString(body, p.WillTopic)
		body = wire.AppendMQTTString(body, string(p.WillPayload))
	}
	if p.Flags.UsernameFlag {
		body = wire.AppendMQTTString(body, p.Username)
	}
	if p.Flags.PasswordFlag {
		body = wire.AppendMQTTString(body, p.Password)
	}
	return encodeWithFixedHeader(dst, FixedHeader{Kind: CONNECT, RemainingLength: uint32(len(body))}, body)
}
