package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "trade.raw", c.Kafka.InTopic)
	assert.Equal(t, "trade.score", c.Kafka.OutTopic)
	assert.Equal(t, "tradescore_scorer_group", c.Kafka.Consumer.GroupID)
	assert.Equal(t, 1, c.Kafka.Consumer.Workers)
	assert.Equal(t, 0, c.Kafka.Consumer.RetryMax)
	assert.Equal(t, 100, c.Candles.Lookback)
	assert.Equal(t, 5*time.Second, c.Candles.FetchTimeout)
	assert.Equal(t, "BreakoutStrategy", c.Scoring.DefaultStrategy)
	assert.Equal(t, 0.1, c.Forbidden.MaxPositionRatio)
	assert.Equal(t, 30*time.Minute, c.Forbidden.RevengeWindow)
	assert.NoError(t, c.Validate())
}

func TestLoadFileKeepsExplicitFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kafka:
  enabled: false
  in_topic: custom.raw
candles:
  provider: synthetic
  lookback: 50
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "custom.raw", c.Kafka.InTopic)
	assert.Equal(t, "trade.score", c.Kafka.OutTopic)
	assert.Equal(t, "synthetic", c.Candles.Provider)
	assert.Equal(t, 50, c.Candles.Lookback)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	c := Default()
	env := map[string]string{
		"KAFKA_BROKERS":   "k1:9092, k2:9092,",
		"KAFKA_OUT_TOPIC": "scores",
		"HTTP_PORT":       "9090",
		"ACCOUNT_EQUITY":  "25000.5",
		"KAFKA_ENABLED":   "false",
		"CANDLE_PROVIDER": "synthetic",
	}
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "scores", c.Kafka.OutTopic)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 25000.5, c.Scoring.AccountEquity)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "synthetic", c.Candles.Provider)
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	c := Default()
	c.applyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "eighty"
		}
		return ""
	})
	assert.Equal(t, 8080, c.Server.Port)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same topics", func(c *Config) { c.Kafka.OutTopic = c.Kafka.InTopic }},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"no group", func(c *Config) { c.Kafka.Consumer.GroupID = "" }},
		{"unknown provider", func(c *Config) { c.Candles.Provider = "yahoo" }},
		{"clickhouse provider without clickhouse", func(c *Config) { c.Candles.Provider = "clickhouse" }},
		{"clickhouse journal without clickhouse", func(c *Config) { c.Journal.Store = "clickhouse" }},
		{"negative equity", func(c *Config) { c.Scoring.AccountEquity = -1 }},
		{"zero lookback", func(c *Config) { c.Candles.Lookback = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateKafkaDisabledSkipsKafkaChecks(t *testing.T) {
	c := Default()
	c.Kafka.Enabled = false
	c.Kafka.Brokers = nil
	assert.NoError(t, c.Validate())
}
