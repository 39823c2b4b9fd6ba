package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BEACON_HOST", "192.168.1.50")
	t.Setenv("BEACON_EMAIL", "me@example.com")
	t.Setenv("BEACON_PASSWORD", "hunter2")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "192.168.1.50", cfg.Host)
	require.Equal(t, 9000, cfg.Port)
	require.Empty(t, cfg.Scheme)
	require.Equal(t, 3*time.Second, cfg.ScanInterval)
	require.Equal(t, ":8090", cfg.HTTPAddress)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, "beacon_session_events", cfg.KafkaTopic)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BEACON_PORT", "9443")
	t.Setenv("BEACON_SCHEME", "https")
	t.Setenv("SCAN_INTERVAL", "10s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9443, cfg.Port)
	require.Equal(t, "https", cfg.Scheme)
	require.Equal(t, 10*time.Second, cfg.ScanInterval)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadStoredCredential(t *testing.T) {
	t.Setenv("BEACON_HOST", "192.168.1.50")
	t.Setenv("BEACON_TOKEN", "token-xyz")
	t.Setenv("BEACON_USER_ID", "user-7")
	t.Setenv("BEACON_HUB_ID", "hub-9")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "token-xyz", cfg.Token)
	require.Equal(t, "user-7", cfg.UserID)
}

func TestLoadRejectsUnknownScheme(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("BEACON_SCHEME", "gopher")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsTokenWithoutUserID(t *testing.T) {
	t.Setenv("BEACON_HOST", "192.168.1.50")
	t.Setenv("BEACON_TOKEN", "token-xyz")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv("BEACON_HOST", "192.168.1.50")

	_, err := Load()
	require.Error(t, err)
}
