// Package config loads the sync daemon's settings from the environment and
// an optional .env file using Viper. The connection record (host, scheme,
// bearer token, account identity) is owned by whatever provisioned it; the
// sync core only consumes it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rshallam/drift-beacon/internal/hub"
)

// Config holds the daemon configuration.
type Config struct {
	// Connection record for one hub. Host may be empty, in which case the
	// daemon runs local hub detection.
	Host   string
	Port   int
	Scheme string // "https", "http", or empty for auto-negotiation

	// Account credentials. Email and Password are needed for first-time
	// setup and for automated reauthentication when the token expires.
	Email    string
	Password string

	// Bearer credential from a previous setup, if any.
	Token        string
	TokenExpires string
	HubID        string
	HubName      string
	UserID       string

	// ScanInterval is the poll cadence.
	ScanInterval time.Duration

	// HTTPAddress is the listen address for /metrics and /healthz.
	HTTPAddress string

	// Kafka event forwarding; disabled when no brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads .env (if present), then the environment. Env vars override
// .env; missing .env is ignored so CI and containers need no extra file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("BEACON_PORT", 9000)
	v.SetDefault("SCAN_INTERVAL", "3s")
	v.SetDefault("HTTP_ADDRESS", ":8090")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "beacon_session_events")

	cfg := &Config{
		Host:         v.GetString("BEACON_HOST"),
		Port:         v.GetInt("BEACON_PORT"),
		Scheme:       v.GetString("BEACON_SCHEME"),
		Email:        v.GetString("BEACON_EMAIL"),
		Password:     v.GetString("BEACON_PASSWORD"),
		Token:        v.GetString("BEACON_TOKEN"),
		TokenExpires: v.GetString("BEACON_TOKEN_EXPIRES"),
		HubID:        v.GetString("BEACON_HUB_ID"),
		HubName:      v.GetString("BEACON_HUB_NAME"),
		UserID:       v.GetString("BEACON_USER_ID"),
		ScanInterval: v.GetDuration("SCAN_INTERVAL"),
		HTTPAddress:  v.GetString("HTTP_ADDRESS"),
		KafkaBrokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("EVENTS_KAFKA_TOPIC"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Scheme {
	case "", hub.SchemeHTTPS, hub.SchemeHTTP:
	default:
		return fmt.Errorf("config: BEACON_SCHEME must be %q or %q, got %q", hub.SchemeHTTPS, hub.SchemeHTTP, c.Scheme)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: BEACON_PORT out of range: %d", c.Port)
	}
	if c.ScanInterval <= 0 {
		return errors.New("config: SCAN_INTERVAL must be positive")
	}
	if c.Token == "" && (c.Email == "" || c.Password == "") {
		return errors.New("config: either BEACON_TOKEN or BEACON_EMAIL and BEACON_PASSWORD must be set")
	}
	if c.Token != "" && c.UserID == "" {
		return errors.New("config: BEACON_USER_ID is required alongside BEACON_TOKEN to guard reauthentication")
	}
	return nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
