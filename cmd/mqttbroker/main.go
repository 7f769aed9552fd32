// Command mqttbroker starts the single-threaded MQTT broker core: it
// loads configuration, loads the bundled schema directory, wires the
// topic broker and reactor together, and serves both the MQTT listener
// and the Prometheus metrics endpoint until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	mqtt "github.com/kestrelmq/broker"
	"github.com/kestrelmq/broker/config"
	"github.com/kestrelmq/broker/logging"
	"github.com/kestrelmq/broker/reactor"
	"github.com/kestrelmq/broker/schema"
	"github.com/kestrelmq/broker/topic"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to a .env file with KESTRELMQ_* overrides")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	registry := schema.NewRegistry()
	loaded, loadErrs := registry.LoadDirectory(cfg.SchemasDir)
	for path, loadErr := range loadErrs {
		log.Warn("schema file failed to load", zap.String("path", path), zap.Error(loadErr))
	}
	log.Info("schemas loaded", zap.Int("count", loaded), zap.String("dir", cfg.SchemasDir))

	// Startup wiring: bind the bundled example topic to its schema so a
	// freshly started broker can demonstrate payload validation without
	// any admin action.
	if err := registry.BindTopic("sensor/data", "SensorData"); err != nil {
		log.Warn("failed to bind example topic sensor/data", zap.Error(err))
	}

	rx, err := reactor.New()
	if err != nil {
		log.Fatal("failed to construct reactor", zap.Error(err))
	}
	defer rx.Close()

	broker := topic.NewBroker()
	metrics := mqtt.NewMetrics()
	server := mqtt.NewServer(cfg, rx, registry, broker, metrics, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddress, log); err != nil && ctx.Err() == nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	log.Info("starting broker", zap.String("listen", cfg.ListenAddress), zap.String("metrics", cfg.MetricsAddress))
	if err := server.Run(ctx); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
