// Package config loads chartd settings from the environment and chart
// definitions from a YAML dashboard file.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. CHARTZ_SERVER_PORT.
const Prefix = "chartz"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	Dashboard DashboardConfig
	Fetch     FetchConfig
	Backends  BackendsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimitRPS    int           `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"100"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// DashboardConfig locates the chart definitions.
type DashboardConfig struct {
	File   string `envconfig:"FILE"`
	Theme  string `envconfig:"THEME" default:"light"`
	Engine string `envconfig:"ENGINE" default:"echarts"`
	Watch  bool   `envconfig:"WATCH" default:"false"`
}

// FetchConfig configures remote data fetching.
type FetchConfig struct {
	BaseURL    string        `envconfig:"BASE_URL"`
	Timeout    time.Duration `envconfig:"TIMEOUT" default:"10s"`
	RetryCount int           `envconfig:"RETRY_COUNT" default:"2"`
	RateLimit  float64       `envconfig:"RATE_LIMIT" default:"0"`
}

// BackendsConfig enables the key-value backends serving scheme endpoints.
// A backend is enabled when its address is set. Files are always enabled.
type BackendsConfig struct {
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	FileRoot    string        `envconfig:"FILE_ROOT"`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	PostgresURL     string `envconfig:"POSTGRES_URL"`
	PostgresTable   string `envconfig:"POSTGRES_TABLE" default:"charts"`
	PostgresChannel string `envconfig:"POSTGRES_CHANNEL" default:"chart_changed"`

	EtcdEndpoints []string `envconfig:"ETCD_ENDPOINTS"`
	ConsulAddr    string   `envconfig:"CONSUL_ADDR"`

	NATSURL    string `envconfig:"NATS_URL"`
	NATSBucket string `envconfig:"NATS_BUCKET" default:"charts"`

	ZookeeperServers []string `envconfig:"ZOOKEEPER_SERVERS"`
	ZookeeperRoot    string   `envconfig:"ZOOKEEPER_ROOT"`

	FirestoreProject string `envconfig:"FIRESTORE_PROJECT"`
	FirestoreField   string `envconfig:"FIRESTORE_FIELD" default:"data"`

	// Kubernetes uses the in-cluster config unless Kubeconfig is set.
	Kubernetes         bool   `envconfig:"KUBERNETES" default:"false"`
	Kubeconfig         string `envconfig:"KUBECONFIG"`
	KubernetesResource string `envconfig:"KUBERNETES_RESOURCE" default:"configmap"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Dashboard: DashboardConfig{
			Theme:  "light",
			Engine: "echarts",
		},
		Fetch: FetchConfig{
			Timeout:    10 * time.Second,
			RetryCount: 2,
		},
		Backends: BackendsConfig{
			DialTimeout:        5 * time.Second,
			PostgresTable:      "charts",
			PostgresChannel:    "chart_changed",
			NATSBucket:         "charts",
			FirestoreField:     "data",
			KubernetesResource: "configmap",
		},
	}
}
