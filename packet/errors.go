package packet

import "errors"

// Error kinds raised by the fixed-header and per-type parsers, per the
// taxonomy in the broker's error handling design. Connection-scoped: any
// of these close the offending connection, except ErrInsufficientData,
// which tells the framing loop to wait for more bytes.
var (
	// ErrInsufficientData means the buffer does not yet hold a complete
	// fixed header or body; the framing loop should wait for more bytes.
	ErrInsufficientData = errors.New("packet: insufficient data")

	// ErrMalformedRemainingLength means the remaining-length varint used
	// a 5th continuation byte.
	ErrMalformedRemainingLength = errors.New("packet: malformed remaining length")

	// ErrMalformedFlags means the fixed-header flag bits are not the
	// fixed value MQTT 3.1.1 requires for that packet type.
	ErrMalformedFlags = errors.New("packet: malformed fixed-header flags")

	// ErrProtocolViolation covers structural violations inside a packet
	// body (e.g. a SUBSCRIBE payload with zero topic filters).
	ErrProtocolViolation = errors.New("packet: protocol violation")

	// ErrBufferTooSmall is returned by EncodeTo when the destination
	// slice cannot hold the encoded packet.
	ErrBufferTooSmall = errors.New("packet: buffer too small")

	// ErrUnsupportedQoS names the QoS-above-0 case this broker core does
	// not implement. No decoder in this package returns it: DecodePUBLISH
	// accepts QoS 1 and 2, and the session layer closes a connection that
	// publishes above QoS 0.
	ErrUnsupportedQoS = errors.New("packet: only QoS 0 is supported")
)
