package mqtt

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrelmq/broker/connbuf"
	"github.com/kestrelmq/broker/packet"
	"github.com/kestrelmq/broker/schema"
)

// discoveryRequestTopic and discoveryResponseTopic are the reserved
// Service Discovery channel: a client PUBLISHes an (empty) request to
// the former and the broker answers with a ServiceDiscoveryResponse on
// the latter, addressed to that client alone rather than fanned out
// through the topic broker.
const (
	discoveryRequestTopic  = "$SYS/discovery/request"
	discoveryResponseTopic = "$SYS/discovery/response"
)

// dispatch routes one decoded packet for the connection at slot. It is
// called only from the reactor's single goroutine, so it never needs to
// synchronize against concurrent access to conns, the topic broker, or
// the registry's in-memory maps beyond what those types already
// guarantee for their own read paths.
func (s *Server) dispatch(slot int, pkt packet.Packet) {
	c := s.conns.Get(slot)
	if c == nil {
		return
	}
	c.lastActivity = time.Now()

	if !c.connected {
		cp, ok := pkt.(*packet.CONNECT)
		if !ok {
			s.log.Warn("packet before CONNECT, closing", zap.Int("slot", slot))
			s.closeConnection(slot)
			return
		}
		s.handleConnect(slot, c, cp)
		return
	}

	switch p := pkt.(type) {
	case *packet.PUBLISH:
		s.handlePublish(slot, c, p)
	case *packet.SUBSCRIBE:
		s.handleSubscribe(slot, c, p)
	case *packet.UNSUBSCRIBE:
		s.handleUnsubscribe(slot, c, p)
	case *packet.PINGREQ:
		s.sendPacket(slot, &packet.PINGRESP{})
	case *packet.DISCONNECT:
		// Graceful close: the client said it is done. No will message
		// is published (will publication is a non-goal of this core).
		s.closeConnection(slot)
	case *packet.CONNECT:
		s.log.Warn("duplicate CONNECT, closing", zap.Int("slot", slot), zap.String("clientId", c.clientID))
		s.closeConnection(slot)
	default:
		s.log.Debug("ignoring unsupported packet kind", zap.Int("slot", slot), zap.Uint8("kind", pkt.Kind()))
	}
}

func (s *Server) handleConnect(slot int, c *connection, cp *packet.CONNECT) {
	if cp.ProtocolName != "MQTT" || cp.ProtocolLevel != protocolLevel {
		s.sendPacket(slot, &packet.CONNACK{ReturnCode: packet.ConnackRefusedProtocolVersion})
		s.closeConnection(slot)
		return
	}
	clientID := cp.ClientID
	if clientID == "" {
		if !cp.Flags.CleanSession {
			s.sendPacket(slot, &packet.CONNACK{ReturnCode: packet.ConnackRefusedIdentifierRejected})
			s.closeConnection(slot)
			return
		}
		clientID = "auto-" + uuid.NewString()
	}

	c.clientID = clientID
	c.cleanSession = cp.Flags.CleanSession
	c.keepAlive = cp.KeepAlive
	c.connected = true

	s.sendPacket(slot, &packet.CONNACK{SessionPresent: false, ReturnCode: packet.ConnackAccepted})
	s.log.Info("client connected",
		zap.Int("slot", slot), zap.String("clientId", clientID),
		zap.Bool("cleanSession", c.cleanSession), zap.Uint16("keepAlive", c.keepAlive))
}

func (s *Server) handleSubscribe(slot int, c *connection, sp *packet.SUBSCRIBE) {
	codes := make([]byte, len(sp.Subscriptions))
	for i, sub := range sp.Subscriptions {
		s.broker.Subscribe(sub.TopicFilter, slot)
		// Every accepted subscription is granted at QoS 0: this core
		// never honors a higher requested QoS (Non-goal).
		codes[i] = packet.SubackGrantedQoS0
	}
	s.sendPacket(slot, &packet.SUBACK{PacketID: sp.PacketID, ReturnCodes: codes})
	s.log.Debug("subscribed", zap.Int("slot", slot), zap.String("clientId", c.clientID), zap.Int("count", len(sp.Subscriptions)))
}

func (s *Server) handleUnsubscribe(slot int, c *connection, up *packet.UNSUBSCRIBE) {
	for _, filter := range up.TopicFilters {
		s.broker.Unsubscribe(filter, slot)
	}
	s.sendPacket(slot, &packet.UNSUBACK{PacketID: up.PacketID})
	s.log.Debug("unsubscribed", zap.Int("slot", slot), zap.String("clientId", c.clientID), zap.Int("count", len(up.TopicFilters)))
}

func (s *Server) handlePublish(slot int, c *connection, pp *packet.PUBLISH) {
	s.metrics.PacketsReceived.Inc()
	s.metrics.BytesReceived.Add(float64(len(pp.Payload)))

	if pp.QoS > 0 {
		// Non-goal: QoS 1/2 publishing. Drop the connection rather than
		// silently downgrading, so a misbehaving client finds out.
		s.log.Warn("PUBLISH above QoS 0, closing", zap.Int("slot", slot), zap.String("clientId", c.clientID))
		s.closeConnection(slot)
		return
	}

	if pp.Topic == discoveryRequestTopic {
		s.handleDiscoveryRequest(slot)
		return
	}

	if typeName, ok := s.registry.LookupTypeForTopic(pp.Topic); ok {
		if def, ok := s.registry.LookupMessage(typeName); ok {
			if _, err := schema.DecodeMessage(s.registry, def, pp.Payload); err != nil {
				s.log.Warn("schema validation failed, routing anyway",
					zap.String("topic", pp.Topic), zap.String("type", typeName), zap.Error(err))
			}
		}
	}

	s.fanOut(slot, pp)
}

// fanOut delivers pp to every subscriber matching its topic except the
// publisher itself (no echo to self), per connection, as a best-effort
// single non-blocking write. A subscriber whose write buffer cannot
// currently accept the whole message has the message dropped rather than
// queued (see DESIGN.md, fan-out policy). total_messages_routed counts
// successful deliveries, not publishes: it is incremented once per
// subscriber that was actually written to, so a publish to zero
// subscribers leaves it unchanged and a publish to three leaves it up
// by three.
func (s *Server) fanOut(publisherSlot int, pp *packet.PUBLISH) {
	subs := s.broker.MatchingSubscribers(pp.Topic)
	for _, subSlot := range subs {
		if subSlot == publisherSlot {
			continue
		}
		if s.sendPacket(subSlot, pp) {
			s.broker.RecordRouted()
			s.metrics.MessagesRouted.Inc()
		}
	}
}

func (s *Server) handleDiscoveryRequest(requesterSlot int) {
	fields := s.registry.BuildDiscoveryValue(uint64(s.conns.Len()), s.broker.TotalRouted())
	def, ok := s.registry.LookupMessage(schema.DiscoveryResponseType)
	if !ok {
		s.log.Error("discovery schema missing from registry")
		return
	}
	payload, err := schema.EncodeMessage(s.registry, def, fields)
	if err != nil {
		s.log.Error("failed to encode discovery response", zap.Error(err))
		return
	}
	s.sendPacket(requesterSlot, &packet.PUBLISH{Topic: discoveryResponseTopic, Payload: payload})
}

// sendPacket encodes pkt and writes it directly to the connection at
// slot, reporting whether the whole packet was written (a partial write
// counts as a failed delivery). Encoding failures and
// write failures both just drop the delivery and log; a fan-out message
// already in flight to many subscribers must not abort the rest because
// one recipient's socket is unhappy. Callers that need to count
// successful deliveries (fanOut) use the return value; callers sending a
// single reply (CONNACK, SUBACK, ...) can ignore it.
func (s *Server) sendPacket(slot int, pkt packetEncoder) bool {
	c := s.conns.Get(slot)
	if c == nil {
		return false
	}
	scratch := make([]byte, 0, encodeSizeHint(pkt))
	n, err := pkt.EncodeTo(scratch)
	if err != nil {
		s.log.Error("failed to encode outgoing packet", zap.Int("slot", slot), zap.Error(err))
		return false
	}
	written, err := connbuf.WriteAll(c.sock, scratch[:n])
	if err != nil || written < n {
		s.log.Debug("write failed, dropping delivery", zap.Int("slot", slot), zap.Int("written", written), zap.Error(err))
		return false
	}
	s.metrics.PacketsSent.Inc()
	s.metrics.BytesSent.Add(float64(written))
	return true
}

// packetEncoder is satisfied by every outgoing packet type (*CONNACK,
// *SUBACK, *UNSUBACK, *PUBLISH, *PINGRESP, ...): encode into a
// caller-supplied buffer with enough spare capacity and report bytes
// written.
type packetEncoder interface {
	EncodeTo(dst []byte) (int, error)
}

// encodeSizeHint picks a scratch buffer capacity generous enough that
// EncodeTo won't hit ErrBufferTooSmall. PUBLISH and SUBACK are the only
// packets whose size grows with caller-controlled input: a PUBLISH with
// its topic and payload, a SUBACK with one ReturnCode byte per
// subscription in the triggering SUBSCRIBE.
func encodeSizeHint(pkt packetEncoder) int {
	if pp, ok := pkt.(*packet.PUBLISH); ok {
		return len(pp.Topic) + len(pp.Payload) + 16
	}
	if sa, ok := pkt.(*packet.SUBACK); ok {
		return len(sa.ReturnCodes) + 16
	}
	return 256
}
