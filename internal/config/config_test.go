package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/energylog/pkg/store"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "energylog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "lightbulb", cfg.Device.Kind)
	assert.Equal(t, 5.0, cfg.Device.MaxPower)
	assert.Equal(t, "EOF", cfg.Input.EOFMarker)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Kafka.IdleTimeout)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, store.OrderByKey, cfg.Store.Order())
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
device:
  kind: heater
  max_power: 2000
kafka:
  brokers: [kafka-1:9092, kafka-2:9092]
  topic: heater-events
  idle_timeout: 2s
store:
  chronological: true
output:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "heater", cfg.Device.Kind)
	assert.Equal(t, 2000.0, cfg.Device.MaxPower)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 2*time.Second, cfg.Kafka.IdleTimeout)
	assert.Equal(t, store.OrderByTime, cfg.Store.Order())
	assert.Equal(t, "json", cfg.Output.Format)
	// untouched sections keep defaults
	assert.Equal(t, "EOF", cfg.Input.EOFMarker)

	src := cfg.Kafka.Source(cfg.Input.EOFMarker)
	assert.Equal(t, "heater-events", src.Topic)
	assert.Equal(t, "EOF", src.EOFMarker)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "device:\n  watts: 5\n"))
	require.Error(t, err, "unknown fields are rejected")

	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ENERGYLOG_KIND", "fan")
	t.Setenv("ENERGYLOG_MAX_POWER", "60")
	t.Setenv("ENERGYLOG_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("ENERGYLOG_CHRONOLOGICAL", "true")
	t.Setenv("ENERGYLOG_LOG_JSON", "not-a-bool")

	cfg, err := Load(writeFile(t, "device:\n  kind: heater\n  max_power: 2000\n"))
	require.NoError(t, err)
	assert.Equal(t, "fan", cfg.Device.Kind)
	assert.Equal(t, 60.0, cfg.Device.MaxPower)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Store.Chronological)
	assert.False(t, cfg.Log.JSON, "unparseable values fall back")
}

func TestApplyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindDeviceFlags(fs)
	BindInputFlags(fs)
	BindOutputFlags(fs)
	BindLogFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--max-power", "7.5",
		"--kafka-brokers", "k:9092",
		"--kafka-topic", "bulb",
		"--kafka-idle-timeout", "250ms",
		"-f", "csv",
		"--log-json",
	}))

	cfg := Default()
	cfg.Device.Kind = "from-file"
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, "from-file", cfg.Device.Kind, "unchanged flags keep earlier values")
	assert.Equal(t, 7.5, cfg.Device.MaxPower)
	assert.Equal(t, []string{"k:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "bulb", cfg.Kafka.Topic)
	assert.Equal(t, 250*time.Millisecond, cfg.Kafka.IdleTimeout)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, ":8080", cfg.Server.Addr, "unregistered flags are ignored")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative power": func(c *Config) { c.Device.MaxPower = -1 },
		"bad format":     func(c *Config) { c.Output.Format = "xml" },
		"bad level":      func(c *Config) { c.Log.Level = "loud" },
		"topic only":     func(c *Config) { c.Kafka.Topic = "bulb" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Device.MaxPower = 0
	assert.NoError(t, cfg.Validate())
}
