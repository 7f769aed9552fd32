package mqtt

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-io/requests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the broker's Prometheus collectors. One Metrics is
// created per Server and registered into its own registry, so repeated
// Server construction in tests doesn't collide on prometheus's global
// default registry.
type Metrics struct {
	registry *prometheus.Registry

	Uptime            prometheus.Counter
	ActiveConnections prometheus.Gauge
	PacketsReceived   prometheus.Counter
	BytesReceived     prometheus.Counter
	PacketsSent       prometheus.Counter
	BytesSent         prometheus.Counter
	MessagesRouted    prometheus.Counter
	SchemaCount       prometheus.Gauge
}

// NewMetrics builds and registers a fresh set of collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		Uptime:            prometheus.NewCounter(prometheus.CounterOpts{Name: "mqtt_uptime_seconds", Help: "Seconds since the broker started"}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{Name: "mqtt_active_connections", Help: "Number of currently connected clients"}),
		PacketsReceived:   prometheus.NewCounter(prometheus.CounterOpts{Name: "mqtt_packets_received_total", Help: "Total PUBLISH packets received"}),
		BytesReceived:     prometheus.NewCounter(prometheus.CounterOpts{Name: "mqtt_bytes_received_total", Help: "Total PUBLISH payload bytes received"}),
		PacketsSent:       prometheus.NewCounter(prometheus.CounterOpts{Name: "mqtt_packets_sent_total", Help: "Total MQTT packets sent"}),
		BytesSent:         prometheus.NewCounter(prometheus.CounterOpts{Name: "mqtt_bytes_sent_total", Help: "Total bytes sent"}),
		MessagesRouted:    prometheus.NewCounter(prometheus.CounterOpts{Name: "mqtt_messages_routed_total", Help: "Total PUBLISH deliveries fanned out to subscribers"}),
		SchemaCount:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "mqtt_schema_count", Help: "Number of registered message schemas"}),
	}
	m.registry.MustRegister(
		m.Uptime, m.ActiveConnections, m.PacketsReceived, m.BytesReceived,
		m.PacketsSent, m.BytesSent, m.MessagesRouted, m.SchemaCount,
	)
	return m
}

// tickUptime increments Uptime once per second until ctx is canceled.
func (m *Metrics) tickUptime(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.Uptime.Inc()
		}
	}
}

// Serve starts the metrics HTTP server at addr and blocks until ctx is
// canceled or the listener fails. It logs each request the way the
// broker's ambient logger logs everything else, through requests.Logf.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	go m.tickUptime(ctx)

	mux := requests.NewServeMux(
		requests.URL(addr),
		requests.Logf(func(_ context.Context, stat *requests.Stat) {
			log.Debug("metrics request", zap.String("summary", stat.Print()))
		}),
	)
	mux.Route("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := requests.NewServer(ctx, mux, requests.OnStart(func(s *http.Server) {
		log.Info("metrics server listening", zap.String("addr", s.Addr))
	}))
	return srv.ListenAndServe()
}
