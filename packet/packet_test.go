package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectRoundTrip(t *testing.T) {
	c := &CONNECT{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		Flags:         ConnectFlags{CleanSession: true},
		KeepAlive:     60,
		ClientID:      "",
	}
	buf := make([]byte, 0, 64)
	n, err := c.EncodeTo(buf[:0])
	require.NoError(t, err)
	buf = buf[:n]

	pkt, consumed, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	got := pkt.(*CONNECT)
	require.Equal(t, "MQTT", got.ProtocolName)
	require.True(t, got.Flags.CleanSession)
	require.EqualValues(t, 60, got.KeepAlive)
}

func TestConnectWireFixture(t *testing.T) {
	// 10 0C 00 04 "MQTT" 04 02 00 3C 00 00
	want := []byte{0x10, 0x0C, 0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04, 0x02, 0x00, 0x3C, 0x00, 0x00}
	c := &CONNECT{ProtocolName: "MQTT", ProtocolLevel: 4, Flags: ConnectFlags{CleanSession: true}, KeepAlive: 60}
	buf := make([]byte, 0, 32)
	n, err := c.EncodeTo(buf[:0])
	require.NoError(t, err)
	require.Equal(t, want, buf[:n])
}

func TestConnackWireFixture(t *testing.T) {
	want := []byte{0x20, 0x02, 0x00, 0x00}
	ack := &CONNACK{ReturnCode: ConnackAccepted}
	buf := make([]byte, 0, 8)
	n, err := ack.EncodeTo(buf[:0])
	require.NoError(t, err)
	require.Equal(t, want, buf[:n])
}

func TestPublishRoundTripQoS0(t *testing.T) {
	pub := &PUBLISH{Topic: "sensors/temp", Payload: []byte("22.5")}
	buf := make([]byte, 0, 64)
	n, err := pub.EncodeTo(buf[:0])
	require.NoError(t, err)
	buf = buf[:n]

	pkt, consumed, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	got := pkt.(*PUBLISH)
	require.Equal(t, "sensors/temp", got.Topic)
	require.Equal(t, []byte("22.5"), got.Payload)
	require.EqualValues(t, 0, got.QoS)
}

func TestPublishZeroLengthPayload(t *testing.T) {
	pub := &PUBLISH{Topic: "a/b"}
	buf := make([]byte, 0, 32)
	n, err := pub.EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Empty(t, pkt.(*PUBLISH).Payload)
}

func TestSubscribeSubackRoundTrip(t *testing.T) {
	sub := &SUBSCRIBE{PacketID: 1, Subscriptions: []Subscription{{TopicFilter: "sensors/+"}}}
	buf := make([]byte, 0, 64)
	n, err := sub.EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, consumed, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	got := pkt.(*SUBSCRIBE)
	require.EqualValues(t, 1, got.PacketID)
	require.Equal(t, "sensors/+", got.Subscriptions[0].TopicFilter)

	ack := &SUBACK{PacketID: 1, ReturnCodes: []byte{SubackGrantedQoS0}}
	n, err = ack.EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err = Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, []byte{SubackGrantedQoS0}, pkt.(*SUBACK).ReturnCodes)
}

func TestUnsubscribeUnsubackRoundTrip(t *testing.T) {
	unsub := &UNSUBSCRIBE{PacketID: 7, TopicFilters: []string{"a/b", "c/d"}}
	buf := make([]byte, 0, 64)
	n, err := unsub.EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, []string{"a/b", "c/d"}, pkt.(*UNSUBSCRIBE).TopicFilters)

	ack := &UNSUBACK{PacketID: 7}
	n, err = ack.EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err = Decode(buf[:n])
	require.NoError(t, err)
	require.EqualValues(t, 7, pkt.(*UNSUBACK).PacketID)
}

func TestPingPongDisconnect(t *testing.T) {
	buf := make([]byte, 0, 8)

	n, err := (&PINGREQ{}).EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, PINGREQ, pkt.Kind())

	n, err = (&PINGRESP{}).EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err = Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, PINGRESP, pkt.Kind())

	n, err = (&DISCONNECT{}).EncodeTo(buf[:0])
	require.NoError(t, err)
	pkt, _, err = Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, DISCONNECT, pkt.Kind())
}

func TestDecodeInsufficientDataWaitsForMoreBytes(t *testing.T) {
	pub := &PUBLISH{Topic: "a/b", Payload: []byte("xy")}
	buf := make([]byte, 0, 32)
	n, err := pub.EncodeTo(buf[:0])
	require.NoError(t, err)
	_, _, err = Decode(buf[:n-1])
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestEncodeBufferTooSmall(t *testing.T) {
	pub := &PUBLISH{Topic: "a/b", Payload: []byte("xy")}
	tiny := make([]byte, 0, 2)
	_, err := pub.EncodeTo(tiny)
	require.ErrorIs(t, err, ErrBufferTooSmall)
}
