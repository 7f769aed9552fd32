package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/kestrelmq/broker/config"
	"github.com/kestrelmq/broker/connbuf"
	"github.com/kestrelmq/broker/packet"
	"github.com/kestrelmq/broker/reactor"
	"github.com/kestrelmq/broker/schema"
	"github.com/kestrelmq/broker/topic"
)

// fakeReactor satisfies reactor.Reactor without touching epoll/kqueue, so
// session-level tests can drive Server.dispatch directly instead of going
// through Run's blocking wait.
type fakeReactor struct{}

func (fakeReactor) RegisterRead(fd int, data reactor.UserData) error { return nil }
func (fakeReactor) Remove(fd int) error                              { return nil }
func (fakeReactor) Run(timeoutMs int, cb reactor.Callback) error     { return nil }
func (fakeReactor) Close() error                                     { return nil }

// newTestServerAndPeer builds a Server with one already-accepted connection
// backed by a real AF_UNIX socketpair, so sendPacket's raw-syscall writes
// land somewhere a test can read them back with packet.Decode. peerFd is
// the test's end of the pair; slot is the connection's table index.
func newTestServerAndPeer(t *testing.T) (s *Server, slot int, peerFd int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))

	log := zap.NewNop()
	s = NewServer(&config.Config{}, fakeReactor{}, schema.NewRegistry(), topic.NewBroker(), NewMetrics(), log)
	c := &connection{fd: fds[0], sock: &rawSocket{fd: fds[0]}, readuf: connbuf.New(connbuf.DefaultCapacity)}
	slot = s.conns.Insert(c)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return s, slot, fds[1]
}

func readPacket(t *testing.T, fd int) packet.Packet {
	t.Helper()
	buf := make([]byte, 4096)
	n, err := unix.Read(fd, buf)
	require.NoError(t, err)
	pkt, consumed, err := packet.Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, n, consumed, "test only expects exactly one packet per read")
	return pkt
}

func TestDispatchConnectAcceptsAndSendsConnack(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)

	s.dispatch(slot, &packet.CONNECT{
		ProtocolName:  "MQTT",
		ProtocolLevel: protocolLevel,
		Flags:         packet.ConnectFlags{CleanSession: true},
		ClientID:      "client-1",
	})

	c := s.conns.Get(slot)
	require.NotNil(t, c)
	require.True(t, c.connected)
	require.Equal(t, "client-1", c.clientID)

	pkt := readPacket(t, peerFd)
	ack, ok := pkt.(*packet.CONNACK)
	require.True(t, ok)
	require.Equal(t, packet.ConnackAccepted, ack.ReturnCode)
	require.False(t, ack.SessionPresent)
}

func TestDispatchConnectGeneratesClientIDWhenCleanSessionAndEmpty(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)

	s.dispatch(slot, &packet.CONNECT{
		ProtocolName:  "MQTT",
		ProtocolLevel: protocolLevel,
		Flags:         packet.ConnectFlags{CleanSession: true},
	})

	c := s.conns.Get(slot)
	require.True(t, c.connected)
	require.Contains(t, c.clientID, "auto-")
	_ = readPacket(t, peerFd)
}

func TestDispatchConnectRejectsEmptyClientIDWithoutCleanSession(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)

	s.dispatch(slot, &packet.CONNECT{
		ProtocolName:  "MQTT",
		ProtocolLevel: protocolLevel,
		Flags:         packet.ConnectFlags{CleanSession: false},
	})

	pkt := readPacket(t, peerFd)
	ack, ok := pkt.(*packet.CONNACK)
	require.True(t, ok)
	require.Equal(t, packet.ConnackRefusedIdentifierRejected, ack.ReturnCode)
	require.Nil(t, s.conns.Get(slot), "the connection must be closed after a refused CONNECT")
}

func TestDispatchRejectsPacketBeforeConnect(t *testing.T) {
	s, slot, _ := newTestServerAndPeer(t)

	s.dispatch(slot, &packet.PINGREQ{})

	require.Nil(t, s.conns.Get(slot))
}

func connectAndDrain(t *testing.T, s *Server, slot int, peerFd int, clientID string) {
	t.Helper()
	s.dispatch(slot, &packet.CONNECT{
		ProtocolName:  "MQTT",
		ProtocolLevel: protocolLevel,
		Flags:         packet.ConnectFlags{CleanSession: true},
		ClientID:      clientID,
	})
	_ = readPacket(t, peerFd)
}

func TestDispatchSubscribeGrantsQoS0AndFansOutPublish(t *testing.T) {
	pub, pubSlot, pubPeer := newTestServerAndPeer(t)
	// Reuse the same Server/broker for a second connection by inserting it
	// directly into the same conns table as the publisher's server.
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() { unix.Close(fds[0]); unix.Close(fds[1]) })
	subConn := &connection{fd: fds[0], sock: &rawSocket{fd: fds[0]}, readuf: connbuf.New(connbuf.DefaultCapacity)}
	subSlot := pub.conns.Insert(subConn)
	subPeer := fds[1]

	connectAndDrain(t, pub, pubSlot, pubPeer, "publisher")
	connectAndDrain(t, pub, subSlot, subPeer, "subscriber")

	pub.dispatch(subSlot, &packet.SUBSCRIBE{
		PacketID:      7,
		Subscriptions: []packet.Subscription{{TopicFilter: "sensors/+"}},
	})
	suback, ok := readPacket(t, subPeer).(*packet.SUBACK)
	require.True(t, ok)
	require.Equal(t, uint16(7), suback.PacketID)
	require.Equal(t, []byte{packet.SubackGrantedQoS0}, suback.ReturnCodes)

	pub.dispatch(pubSlot, &packet.PUBLISH{Topic: "sensors/temp", Payload: []byte("21.5")})

	delivered, ok := readPacket(t, subPeer).(*packet.PUBLISH)
	require.True(t, ok)
	require.Equal(t, "sensors/temp", delivered.Topic)
	require.Equal(t, []byte("21.5"), delivered.Payload)
	require.Equal(t, uint64(1), pub.broker.TotalRouted())
}

func TestDispatchPublishFanOutCountsOncePerSubscriber(t *testing.T) {
	pub, pubSlot, pubPeer := newTestServerAndPeer(t)
	connectAndDrain(t, pub, pubSlot, pubPeer, "publisher")

	var subPeers []int
	for i := 0; i < 3; i++ {
		fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		require.NoError(t, err)
		require.NoError(t, unix.SetNonblock(fds[0], true))
		require.NoError(t, unix.SetNonblock(fds[1], true))
		t.Cleanup(func() { unix.Close(fds[0]); unix.Close(fds[1]) })
		conn := &connection{fd: fds[0], sock: &rawSocket{fd: fds[0]}, readuf: connbuf.New(connbuf.DefaultCapacity)}
		slot := pub.conns.Insert(conn)
		connectAndDrain(t, pub, slot, fds[1], "sub")
		pub.dispatch(slot, &packet.SUBSCRIBE{PacketID: 1, Subscriptions: []packet.Subscription{{TopicFilter: "fanout/topic"}}})
		_ = readPacket(t, fds[1]) // SUBACK
		subPeers = append(subPeers, fds[1])
	}

	pub.dispatch(pubSlot, &packet.PUBLISH{Topic: "fanout/topic", Payload: []byte("x")})

	for _, peer := range subPeers {
		_, ok := readPacket(t, peer).(*packet.PUBLISH)
		require.True(t, ok)
	}
	require.Equal(t, uint64(3), pub.broker.TotalRouted(), "one increment per successfully delivered subscriber, not per publish")
}

func TestDispatchPublishToZeroSubscribersLeavesCounterUnchanged(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")

	s.dispatch(slot, &packet.PUBLISH{Topic: "nobody/listening", Payload: []byte("x")})

	require.Equal(t, uint64(0), s.broker.TotalRouted())
}

func TestDispatchPublishDoesNotEchoToSelf(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")

	s.dispatch(slot, &packet.SUBSCRIBE{PacketID: 1, Subscriptions: []packet.Subscription{{TopicFilter: "a/b"}}})
	_ = readPacket(t, peerFd) // SUBACK

	s.dispatch(slot, &packet.PUBLISH{Topic: "a/b", Payload: []byte("x")})

	require.Equal(t, uint64(0), s.broker.TotalRouted(), "a publisher subscribed to its own topic must not be counted as a delivery")
	// Confirm nothing was written back to the publisher: a PINGREQ/PINGRESP
	// round trip is the only traffic left on the wire if no echo occurred.
	s.dispatch(slot, &packet.PINGREQ{})
	_, ok := readPacket(t, peerFd).(*packet.PINGRESP)
	require.True(t, ok, "the only pending packet on the wire must be the PINGRESP, not an echoed PUBLISH")
}

func TestDispatchPublishAboveQoS0ClosesConnection(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")

	s.dispatch(slot, &packet.PUBLISH{Topic: "a/b", QoS: 1, Payload: []byte("x")})

	require.Nil(t, s.conns.Get(slot))
}

func TestDispatchDiscoveryRequestRespondsDirectlyToRequester(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")
	require.NoError(t, s.registry.RegisterSchemaAndBind(`message Foo { string x = 1; }`, "a/b", "Foo"))

	s.dispatch(slot, &packet.PUBLISH{Topic: discoveryRequestTopic, Payload: nil})

	pkt := readPacket(t, peerFd)
	resp, ok := pkt.(*packet.PUBLISH)
	require.True(t, ok)
	require.Equal(t, discoveryResponseTopic, resp.Topic)

	def, ok := s.registry.LookupMessage(schema.DiscoveryResponseType)
	require.True(t, ok)
	decoded, err := schema.DecodeMessage(s.registry, def, resp.Payload)
	require.NoError(t, err)
	require.Len(t, decoded[1].Repeated, 1)
}

func TestDispatchPingRespondsWithPingresp(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")

	s.dispatch(slot, &packet.PINGREQ{})

	_, ok := readPacket(t, peerFd).(*packet.PINGRESP)
	require.True(t, ok)
}

func TestDispatchDisconnectClosesConnection(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")

	s.dispatch(slot, &packet.DISCONNECT{})

	require.Nil(t, s.conns.Get(slot))
}

func TestDispatchSubscribeWithManyFiltersStillSendsSuback(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")

	const filterCount = 300 // exceeds encodeSizeHint's old flat 256-byte default
	subs := make([]packet.Subscription, filterCount)
	for i := range subs {
		subs[i] = packet.Subscription{TopicFilter: "topic/filter"}
	}

	s.dispatch(slot, &packet.SUBSCRIBE{PacketID: 9, Subscriptions: subs})

	suback, ok := readPacket(t, peerFd).(*packet.SUBACK)
	require.True(t, ok, "a SUBACK with many return codes must not be silently dropped for a too-small scratch buffer")
	require.Equal(t, uint16(9), suback.PacketID)
	require.Len(t, suback.ReturnCodes, filterCount)
}

func TestDispatchUnsubscribeSendsUnsuback(t *testing.T) {
	s, slot, peerFd := newTestServerAndPeer(t)
	connectAndDrain(t, s, slot, peerFd, "c1")
	s.dispatch(slot, &packet.SUBSCRIBE{PacketID: 1, Subscriptions: []packet.Subscription{{TopicFilter: "a/b"}}})
	_ = readPacket(t, peerFd)

	s.dispatch(slot, &packet.UNSUBSCRIBE{PacketID: 2, TopicFilters: []string{"a/b"}})

	unsuback, ok := readPacket(t, peerFd).(*packet.UNSUBACK)
	require.True(t, ok)
	require.Equal(t, uint16(2), unsuback.PacketID)
	require.Empty(t, s.broker.MatchingSubscribers("a/b"))
}
