package wire

import "errors"

// Sentinel errors for the wire-format primitives. Both the MQTT codec and
// the dynamic protobuf codec compare against these with errors.Is.
var (
	// ErrInsufficientData is returned when a reader does not have enough
	// bytes left to finish decoding a value.
	ErrInsufficientData = errors.New("wire: insufficient data")

	// ErrVarintOverflow is returned when a varint would require a shift
	// of 64 bits or more to represent.
	ErrVarintOverflow = errors.New("wire: varint overflow")

	// ErrBufferTooSmall reports a destination slice that cannot hold an
	// encoded value. The Append* encoders in this package grow their
	// destination and never return it.
	ErrBufferTooSmall = errors.New("wire: buffer too small")
)
