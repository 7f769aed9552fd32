// Package mqtt implements a single-threaded, event-loop-driven MQTT 3.1.1
// broker (QoS 0 only) with an embedded schema registry and a Service
// Discovery channel layered over $SYS/discovery/*.
//
// The wire codec lives in package packet, topic matching and fan-out in
// package topic, the schema language and dynamic protobuf codec in package
// schema, and the readiness reactor in package reactor. This package wires
// them together: connection table, per-connection framing, session
// dispatch and the TCP accept loop.
package mqtt

const protocolName = "MQTT"
const protocolLevel byte = 0x04
