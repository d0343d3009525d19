// Package config provides configuration loading and validation for the
// router daemon. Supports YAML files with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a router daemon.
type Config struct {
	Broker        BrokerConfig        `yaml:"broker"`
	Metadata      MetadataConfig      `yaml:"metadata"`
	Routing       RoutingConfig       `yaml:"routing"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type BrokerConfig struct {
	ListenAddr string `yaml:"listenAddr" env:"ROUTER_LISTEN_ADDR"`
	ClusterID  string `yaml:"clusterId" env:"ROUTER_CLUSTER_ID"`
	BrokerID   string `yaml:"brokerId" env:"ROUTER_BROKER_ID"`
}

type MetadataConfig struct {
	OxiaEndpoint string `yaml:"oxiaEndpoint" env:"ROUTER_OXIA_ENDPOINT"`
	Namespace    string `yaml:"namespace" env:"ROUTER_OXIA_NAMESPACE"`
}

// RoutingConfig configures the bindings table's default behavior.
type RoutingConfig struct {
	// DefaultLoadBalancingMode is the load-balancing mode a newly created
	// address's bindings table starts with: "off", "strict", "onDemand",
	// or "offWithRedistribution".
	DefaultLoadBalancingMode string `yaml:"defaultLoadBalancingMode" env:"ROUTER_LB_MODE"`

	// MaxGroupRetry bounds the group proposal protocol's retry loop
	// before it falls back to ungrouped routing for a given group.
	MaxGroupRetry int `yaml:"maxGroupRetry" env:"ROUTER_MAX_GROUP_RETRY"`

	// GroupingEnabled selects the metadata-store-backed GroupingHandler;
	// when false, the daemon uses the single-process in-memory handler.
	GroupingEnabled bool `yaml:"groupingEnabled" env:"ROUTER_GROUPING_ENABLED"`
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metricsAddr" env:"ROUTER_METRICS_ADDR"`
	HealthAddr  string `yaml:"healthAddr" env:"ROUTER_HEALTH_ADDR"`
	LogLevel    string `yaml:"logLevel" env:"ROUTER_LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat" env:"ROUTER_LOG_FORMAT"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			ListenAddr: ":9092",
			ClusterID:  "default",
		},
		Metadata: MetadataConfig{
			OxiaEndpoint: "localhost:6648",
			Namespace:    "router",
		},
		Routing: RoutingConfig{
			DefaultLoadBalancingMode: "off",
			MaxGroupRetry:            10,
			GroupingEnabled:          true,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9090",
			HealthAddr:  ":9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// Load returns the default configuration with environment overrides
// applied. Use this when no config file is supplied.
func Load() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromPath reads a YAML file at path into a Config seeded with
// defaults, then applies environment overrides on top.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overwrites fields with values from the environment
// variables named in their "env" tag, when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROUTER_LISTEN_ADDR"); v != "" {
		cfg.Broker.ListenAddr = v
	}
	if v := os.Getenv("ROUTER_CLUSTER_ID"); v != "" {
		cfg.Broker.ClusterID = v
	}
	if v := os.Getenv("ROUTER_BROKER_ID"); v != "" {
		cfg.Broker.BrokerID = v
	}
	if v := os.Getenv("ROUTER_OXIA_ENDPOINT"); v != "" {
		cfg.Metadata.OxiaEndpoint = v
	}
	if v := os.Getenv("ROUTER_OXIA_NAMESPACE"); v != "" {
		cfg.Metadata.Namespace = v
	}
	if v := os.Getenv("ROUTER_LB_MODE"); v != "" {
		cfg.Routing.DefaultLoadBalancingMode = v
	}
	if v := os.Getenv("ROUTER_MAX_GROUP_RETRY"); v != "" {
		if n, err := parseIntEnv(v); err == nil {
			cfg.Routing.MaxGroupRetry = n
		}
	}
	if v := os.Getenv("ROUTER_GROUPING_ENABLED"); v != "" {
		cfg.Routing.GroupingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ROUTER_METRICS_ADDR"); v != "" {
		cfg.Observability.MetricsAddr = v
	}
	if v := os.Getenv("ROUTER_HEALTH_ADDR"); v != "" {
		cfg.Observability.HealthAddr = v
	}
	if v := os.Getenv("ROUTER_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ROUTER_LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func parseIntEnv(v string) (int, error) {
	var n int
	_, err := fmt.Sscanf(v, "%d", &n)
	return n, err
}
