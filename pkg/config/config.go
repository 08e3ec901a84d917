// Package config loads RRMConfig from a JSON file, with a handful of
// operational knobs overridable via RRM_-prefixed environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
)

// ModelerParams configures the Modeler's ingest FIFOs.
type ModelerParams struct {
	StateBufferSize    int `json:"stateBufferSize"`
	WifiScanBufferSize int `json:"wifiScanBufferSize"`
}

// ZoneSchedule configures which algorithm ID runs for one (zone, category)
// pair and how often.
type ZoneSchedule struct {
	Zone           string            `json:"zone"`
	Category       string            `json:"category"`
	AlgorithmID    string            `json:"algorithmId"`
	CronExpression string            `json:"cron"`
	Args           map[string]string `json:"args,omitempty"`
}

// GatewayConfig configures the southbound device-gateway client.
type GatewayConfig struct {
	Endpoint          string `json:"endpoint"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	VerifySSL         bool   `json:"verifySSL"`
	ConnectTimeoutMs  int    `json:"connectTimeoutMs"`
	SocketTimeoutMs   int    `json:"socketTimeoutMs"`
	WifiScanTimeoutMs int    `json:"wifiScanTimeoutMs"`
}

// ProvisioningConfig configures the southbound client to the provisioning
// service (owprov), which ProvMonitor polls to reconcile the
// DeviceRegistry.
type ProvisioningConfig struct {
	Endpoint         string `json:"endpoint"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	VerifySSL        bool   `json:"verifySSL"`
	PollIntervalMs   int    `json:"pollIntervalMs"`
	ConnectTimeoutMs int    `json:"connectTimeoutMs"`
	SocketTimeoutMs  int    `json:"socketTimeoutMs"`
}

// IngestConfig configures the NATS JetStream-backed Kafka-record transport.
type IngestConfig struct {
	NATSURL      string `json:"natsUrl"`
	StreamName   string `json:"streamName"`
	ConsumerName string `json:"consumerName"`
}

// ArchiveConfig configures the optional Postgres historical-state archive.
// An empty DSN disables archiving entirely -- the core must function with
// it absent.
type ArchiveConfig struct {
	DSN string `json:"dsn,omitempty"`
}

// RESTConfig configures the northbound operator REST API.
type RESTConfig struct {
	ListenAddr string `json:"listenAddr"`
}

// RRMConfig is the top-level configuration for the RRM core.
type RRMConfig struct {
	Logger       logger.Config      `json:"logger"`
	Modeler      ModelerParams      `json:"modeler"`
	Gateway      GatewayConfig      `json:"gateway"`
	Provisioning ProvisioningConfig `json:"provisioning"`
	Ingest       IngestConfig       `json:"ingest"`
	Archive      ArchiveConfig      `json:"archive"`
	REST         RESTConfig         `json:"rest"`
	Zones        []ZoneSchedule     `json:"zones"`
}

// Load reads path as JSON into an RRMConfig, then applies any RRM_-prefixed
// environment variable overrides for operational knobs.
func Load(path string) (*RRMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg RRMConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides applies the small set of operational knobs the CLI and
// deployment environment are expected to override without editing the
// config file: log level/debug, verify-ssl, the gateway and provisioning
// endpoints, and the NATS URL.
func applyEnvOverrides(cfg *RRMConfig) {
	if v := os.Getenv("RRM_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}

	if v := os.Getenv("RRM_LOG_DEBUG"); v == "true" {
		cfg.Logger.Debug = true
	}

	switch os.Getenv("RRM_VERIFY_SSL") {
	case "true":
		cfg.Gateway.VerifySSL = true
		cfg.Provisioning.VerifySSL = true
	case "false":
		cfg.Gateway.VerifySSL = false
		cfg.Provisioning.VerifySSL = false
	}

	if v := os.Getenv("RRM_GATEWAY_ENDPOINT"); v != "" {
		cfg.Gateway.Endpoint = v
	}

	if v := os.Getenv("RRM_PROVISIONING_ENDPOINT"); v != "" {
		cfg.Provisioning.Endpoint = v
	}

	if v := os.Getenv("RRM_NATS_URL"); v != "" {
		cfg.Ingest.NATSURL = v
	}
}
