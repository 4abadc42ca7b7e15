package config

import (
	"os"
	"strings"
)

// Mode selects the wiring topology for a process. It affects transport
// addressing only, never the protocol or data contracts.
type Mode string

const (
	// ModeLocal wires directly-addressed local services
	ModeLocal Mode = "local"
	// ModeManaged wires managed-runtime-routed services
	ModeManaged Mode = "managed"
)

// Endpoints is one wiring topology expressed as data
type Endpoints struct {
	InventoryURL string
	KafkaBrokers []string
	RedisAddr    string
	PostgresDSN  string
}

// Config holds process configuration resolved at startup
type Config struct {
	ServiceName      string
	HTTPAddr         string
	Mode             Mode
	Local            Endpoints
	Managed          Endpoints
	OrderStatusTopic string
}

// Endpoints returns the endpoint set for the configured mode
func (c Config) Endpoints() Endpoints {
	if c.Mode == ModeManaged {
		return c.Managed
	}
	return c.Local
}

// Load resolves configuration from the environment with local defaults
func Load(serviceName, defaultAddr string) Config {
	mode := ModeLocal
	switch getEnv("DEPLOYMENT_MODE", "local") {
	case "managed", "1", "true":
		mode = ModeManaged
	}

	return Config{
		ServiceName: serviceName,
		HTTPAddr:    getEnv("HTTP_ADDR", defaultAddr),
		Mode:        mode,
		Local: Endpoints{
			InventoryURL: getEnv("INVENTORY_SERVICE_URL", "http://localhost:8081"),
			KafkaBrokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
			RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
			PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		},
		Managed: Endpoints{
			InventoryURL: getEnv("MANAGED_INVENTORY_SERVICE_URL", "http://inventory-service:8081"),
			KafkaBrokers: splitCSV(getEnv("MANAGED_KAFKA_BROKERS", "kafka:9092")),
			RedisAddr:    getEnv("MANAGED_REDIS_ADDR", "redis:6379"),
			PostgresDSN:  getEnv("MANAGED_POSTGRES_DSN", ""),
		},
		OrderStatusTopic: getEnv("ORDER_STATUS_TOPIC", "order.status"),
	}
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
