package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Gateway endpoints
	GatewayBaseURL string // REST metadata API
	TelemetryWSURL string // variable telemetry stream
	HeartbeatWSURL string // system/EDS heartbeat stream

	ListenAddr string

	// Connection tuning
	ConnectTimeout  time.Duration
	ReconnectDelay  time.Duration
	MetadataRefresh time.Duration // 0 disables the periodic catalog refresh

	// Optional integrations
	PostgresDSN string // status-change history; empty disables
	NATSURL     string // snapshot republishing; empty disables
}

// MustLoad loads the required settings for the system to operate
func MustLoad() Config {
	connectSec, _ := strconv.Atoi(getenv("CONNECT_TIMEOUT_SEC", "15"))
	reconnectSec, _ := strconv.Atoi(getenv("RECONNECT_DELAY_SEC", "5"))
	refreshSec, _ := strconv.Atoi(getenv("METADATA_REFRESH_SEC", "0"))

	return Config{
		GatewayBaseURL:  getenv("GATEWAY_BASE_URL", "http://localhost:8000/api"),
		TelemetryWSURL:  getenv("TELEMETRY_WS_URL", "ws://localhost:8000/ws/telemetry"),
		HeartbeatWSURL:  getenv("HEARTBEAT_WS_URL", "ws://localhost:8000/ws/heartbeat"),
		ListenAddr:      getenv("LISTEN_ADDR", ":9090"),
		ConnectTimeout:  time.Duration(connectSec) * time.Second,
		ReconnectDelay:  time.Duration(reconnectSec) * time.Second,
		MetadataRefresh: time.Duration(refreshSec) * time.Second,
		PostgresDSN:     getenv("POSTGRES_DSN", ""),
		NATSURL:         getenv("NATS_URL", ""),
	}
}

// getenv fetches the env variables for the application to run
func getenv(k, d string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return d
}
