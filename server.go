package mqtt

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/kestrelmq/broker/config"
	"github.com/kestrelmq/broker/connbuf"
	"github.com/kestrelmq/broker/packet"
	"github.com/kestrelmq/broker/reactor"
	"github.com/kestrelmq/broker/schema"
	"github.com/kestrelmq/broker/topic"
)

// Server is the broker's single-threaded core: one reactor loop driving
// a listener socket and every client socket it has accepted. Nothing in
// this type is safe for concurrent use from more than one goroutine —
// that is the point of the design (see SPEC_FULL.md, concurrency model).
type Server struct {
	cfg      *config.Config
	reactor  reactor.Reactor
	listener int
	conns    *connTable
	broker   *topic.Broker
	registry *schema.Registry
	metrics  *Metrics
	log      *zap.Logger
}

// NewServer wires a Server from its already-constructed dependencies.
// Callers build the Reactor, Registry, topic.Broker and Metrics
// separately so tests can substitute or inspect them.
func NewServer(cfg *config.Config, rx reactor.Reactor, reg *schema.Registry, broker *topic.Broker, metrics *Metrics, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		reactor:  rx,
		conns:    newConnTable(),
		broker:   broker,
		registry: reg,
		metrics:  metrics,
		log:      log,
	}
}

// Run binds the listen address, arms the reactor, and drives the event
// loop until ctx is canceled. It is the broker's only blocking call.
func (s *Server) Run(ctx context.Context) error {
	fd, err := listenTCP(s.cfg.ListenAddress)
	if err != nil {
		return err
	}
	s.listener = fd
	defer unix.Close(fd)

	if err := s.reactor.RegisterRead(fd, reactor.Pack(reactor.KindMQTTListener, 0)); err != nil {
		return err
	}
	s.log.Info("mqtt listener ready", zap.String("addr", s.cfg.ListenAddress))

	lastSweep := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := s.reactor.Run(s.cfg.ReactorTimeoutMs, s.onReady); err != nil {
			return err
		}

		if now := time.Now(); now.Sub(lastSweep) >= time.Second {
			s.sweepKeepAlive(now)
			s.metrics.ActiveConnections.Set(float64(s.conns.Len()))
			s.metrics.SchemaCount.Set(float64(s.registry.SchemaCount()))
			lastSweep = now
		}
	}
}

// onReady is the reactor callback: it either drains pending accepts on
// the listener, or reads and frames as many complete packets as are
// currently available on a client socket.
func (s *Server) onReady(data reactor.UserData) {
	switch data.Kind() {
	case reactor.KindMQTTListener:
		s.acceptNew()
	case reactor.KindMQTTClient:
		s.readClient(data.Slot())
	}
}

func (s *Server) acceptNew() {
	fds, err := acceptAll(s.listener)
	if err != nil {
		s.log.Error("accept failed", zap.Error(err))
		return
	}
	for _, fd := range fds {
		c := &connection{
			fd:     fd,
			sock:   &rawSocket{fd: fd},
			readuf: connbuf.New(s.cfg.BufferSize),
		}
		slot := s.conns.Insert(c)
		if err := s.reactor.RegisterRead(fd, reactor.Pack(reactor.KindMQTTClient, slot)); err != nil {
			s.log.Error("failed to arm client socket", zap.Error(err))
			s.conns.Remove(slot)
			unix.Close(fd)
			continue
		}
		s.log.Debug("accepted connection", zap.Int("slot", slot))
	}
}

func (s *Server) readClient(slot int) {
	c := s.conns.Get(slot)
	if c == nil {
		return
	}

	n, err := c.readuf.Fill(c.sock)
	if err != nil {
		switch err {
		case connbuf.ErrWouldBlock:
			return
		case connbuf.ErrEndOfStream, connbuf.ErrOverflow:
			s.closeConnection(slot)
			return
		default:
			s.log.Debug("read error, closing", zap.Int("slot", slot), zap.Error(err))
			s.closeConnection(slot)
			return
		}
	}
	if n == 0 {
		return
	}

	for {
		buf := c.readuf.Bytes()
		pkt, consumed, err := packet.Decode(buf)
		if err != nil {
			if err == packet.ErrInsufficientData {
				return // wait for more bytes
			}
			s.log.Debug("malformed packet, closing", zap.Int("slot", slot), zap.Error(err))
			s.closeConnection(slot)
			return
		}
		c.readuf.Consume(consumed)
		s.dispatch(slot, pkt)
		if s.conns.Get(slot) == nil {
			return // dispatch closed the connection (e.g. DISCONNECT)
		}
	}
}

// sweepKeepAlive closes any connected client that has gone silent for
// longer than its advertised keep-alive interval times
// cfg.KeepAliveGraceSeconds (1.5 by default, per MQTT 3.1.1 §3.1.2.10). A keep-alive of 0 disables the check for that client.
func (s *Server) sweepKeepAlive(now time.Time) {
	var stale []int
	s.conns.Each(func(slot int, c *connection) {
		if !c.connected || c.keepAlive == 0 {
			return
		}
		grace := time.Duration(float64(c.keepAlive) * s.cfg.KeepAliveGraceSeconds * float64(time.Second))
		if now.Sub(c.lastActivity) > grace {
			stale = append(stale, slot)
		}
	})
	for _, slot := range stale {
		s.log.Info("keep-alive timeout, closing", zap.Int("slot", slot))
		s.closeConnection(slot)
	}
}

func (s *Server) closeConnection(slot int) {
	c := s.conns.Get(slot)
	if c == nil {
		return
	}
	s.broker.RemoveClient(slot)
	_ = s.reactor.Remove(c.fd)
	_ = c.sock.Close()
	s.conns.Remove(slot)
	s.log.Debug("connection closed", zap.Int("slot", slot), zap.String("clientId", c.clientID))
}
