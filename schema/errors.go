package schema

import "errors"

// Parser error kinds. Registration of the offending file fails; other
// files in the same directory load independently (see
// Registry.LoadDirectory).
var (
	ErrExpectedSyntaxVersion = errors.New("schema: expected a quoted syntax version")
	ErrExpectedPackageName   = errors.New("schema: expected a dotted package name")
	ErrExpectedFieldType     = errors.New("schema: expected a field type")
	ErrExpectedFieldName     = errors.New("schema: expected a field name")
	ErrExpectedFieldTag      = errors.New("schema: expected a positive integer field tag")
	ErrUnexpectedToken       = errors.New("schema: unexpected token")
)

// Dynamic protobuf codec error kinds.
var (
	ErrTruncated           = errors.New("schema: truncated protobuf data")
	ErrOverflow            = errors.New("schema: varint overflow")
	ErrUnsupportedWireType = errors.New("schema: unsupported wire type")
	ErrUnknownMessageType  = errors.New("schema: unknown referenced message type")
	ErrMissingTypeName     = errors.New("schema: message field missing a referenced type name")
	ErrDepthExceeded       = errors.New("schema: nested message recursion depth exceeded")
	ErrInvalidTopLevelType = errors.New("schema: only a message value is valid at the root")
	ErrTypeMismatch        = errors.New("schema: value shape does not match field wire type")
)

// Registry error kinds.
var (
	ErrMessageNotRegistered = errors.New("schema: message type not registered")
	ErrTypeNotRegistered    = errors.New("schema: cannot bind topic to an unregistered type")
)

// MaxDecodeDepth bounds nested-message recursion during decode, guarding
// against self- or cyclically-referencing schemas.
const MaxDecodeDepth = 100
