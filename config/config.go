// Package config loads the broker's runtime configuration from a .env
// file (via godotenv) plus environment variable overrides, the way
// ClusterCockpit's cc-backend loads its own deployment configuration.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the broker's full runtime configuration.
type Config struct {
	// ListenAddress is the TCP address the MQTT listener binds, e.g.
	// "0.0.0.0:1883".
	ListenAddress string

	// SchemasDir holds the *.proto schema files loaded at startup.
	SchemasDir string

	// BufferSize is the per-connection read buffer capacity, in bytes.
	// Outgoing packets are not buffered.
	BufferSize int

	// ReactorTimeoutMs bounds how long a single Reactor.Run batch may
	// block waiting for readiness events, so periodic housekeeping
	// (keep-alive sweeps, metrics ticks) still runs on a single-threaded
	// event loop with no other suspension point.
	ReactorTimeoutMs int

	// MetricsAddress is the address the Prometheus metrics HTTP server
	// binds, e.g. "127.0.0.1:9090".
	MetricsAddress string

	// KeepAliveGraceSeconds is the factor applied to the client-advertised
	// keep-alive interval: a connection silent for longer than the
	// interval times this value is treated as dead. The default of 1.5
	// follows MQTT 3.1.1 §3.1.2.10 ("one and a half times").
	KeepAliveGraceSeconds float64

	// LogLevel is the zap log level name ("debug", "info", "warn", "error").
	LogLevel string
}

// Load reads envFile (if non-empty and present) into the process
// environment, then builds a Config from KESTRELMQ_-prefixed environment
// variables, falling back to defaults for anything unset. A missing
// envFile is not an error: env vars and defaults alone are a valid
// configuration, the same tolerance godotenv.Load gives cc-backend in
// environments with no .env file checked in.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	return &Config{
		ListenAddress:         getString("KESTRELMQ_LISTEN_ADDRESS", "0.0.0.0:1883"),
		SchemasDir:            getString("KESTRELMQ_SCHEMAS_DIR", "./schemas"),
		BufferSize:            getInt("KESTRELMQ_BUFFER_SIZE", 4096),
		ReactorTimeoutMs:      getInt("KESTRELMQ_REACTOR_TIMEOUT_MS", 1000),
		MetricsAddress:        getString("KESTRELMQ_METRICS_ADDRESS", "127.0.0.1:9090"),
		KeepAliveGraceSeconds: getFloat("KESTRELMQ_KEEPALIVE_GRACE_SECONDS", 1.5),
		LogLevel:              getString("KESTRELMQ_LOG_LEVEL", "info"),
	}, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
