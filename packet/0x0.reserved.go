package packet

// RESERVED stands in for a packet type this broker does not implement
// (PUBACK/PUBREC/PUBREL/PUBCOMP/AUTH are QoS>0/MQTT-5 only). The handler
// logs and ignores it.
type RESERVED struct {
	RawKind byte
}

func (p *RESERVED) Kind() byte { return p.RawKind }
