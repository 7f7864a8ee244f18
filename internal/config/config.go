package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/energylog/internal/logging"
	"github.com/ja7ad/energylog/pkg/report"
	"github.com/ja7ad/energylog/pkg/source"
	"github.com/ja7ad/energylog/pkg/store"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds all energylog configuration.
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Input  InputConfig  `yaml:"input"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Store  StoreConfig  `yaml:"store"`
	Output OutputConfig `yaml:"output"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// DeviceConfig describes the observed consumer.
type DeviceConfig struct {
	Kind     string  `yaml:"kind"`
	MaxPower float64 `yaml:"max_power"` // W
}

// InputConfig controls line sources.
type InputConfig struct {
	EOFMarker string `yaml:"eof_marker"`
}

// KafkaConfig enables the Kafka source when Topic is set.
type KafkaConfig struct {
	Brokers     []string      `yaml:"brokers"`
	Topic       string        `yaml:"topic"`
	GroupID     string        `yaml:"group_id"`
	MaxMessages int           `yaml:"max_messages"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Enabled reports whether a Kafka topic was configured.
func (k KafkaConfig) Enabled() bool { return strings.TrimSpace(k.Topic) != "" }

// Source converts the section into a source configuration.
func (k KafkaConfig) Source(eofMarker string) source.KafkaConfig {
	return source.KafkaConfig{
		Brokers:     k.Brokers,
		Topic:       k.Topic,
		GroupID:     k.GroupID,
		EOFMarker:   eofMarker,
		MaxMessages: k.MaxMessages,
		IdleTimeout: k.IdleTimeout,
	}
}

// StoreConfig holds event store settings.
type StoreConfig struct {
	// Chronological sorts events by timestamp instead of canonical key text.
	Chronological bool `yaml:"chronological"`
}

// Order maps the section onto a store ordering.
func (s StoreConfig) Order() store.Order {
	if s.Chronological {
		return store.OrderByTime
	}
	return store.OrderByKey
}

// OutputConfig holds report settings. An empty Path means stdout.
type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration: a 5 W lightbulb read from the
// console until an "EOF" line.
func Default() Config {
	return Config{
		Device: DeviceConfig{Kind: "lightbulb", MaxPower: 5},
		Input:  InputConfig{EOFMarker: source.DefaultEOFMarker},
		Kafka:  KafkaConfig{IdleTimeout: 5 * time.Second},
		Output: OutputConfig{Format: string(report.Text)},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load applies, in order, the defaults, the YAML file at path (if any) and
// ENERGYLOG_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Device.Kind = getenv("ENERGYLOG_KIND", cfg.Device.Kind)
	cfg.Device.MaxPower = getenvFloat("ENERGYLOG_MAX_POWER", cfg.Device.MaxPower)
	cfg.Input.EOFMarker = getenv("ENERGYLOG_EOF_MARKER", cfg.Input.EOFMarker)
	if v := os.Getenv("ENERGYLOG_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	cfg.Kafka.Topic = getenv("ENERGYLOG_KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Kafka.GroupID = getenv("ENERGYLOG_KAFKA_GROUP", cfg.Kafka.GroupID)
	cfg.Store.Chronological = getenvBool("ENERGYLOG_CHRONOLOGICAL", cfg.Store.Chronological)
	cfg.Output.Format = getenv("ENERGYLOG_FORMAT", cfg.Output.Format)
	cfg.Output.Path = getenv("ENERGYLOG_OUTPUT", cfg.Output.Path)
	cfg.Server.Addr = getenv("ENERGYLOG_ADDR", cfg.Server.Addr)
	cfg.Log.Level = getenv("ENERGYLOG_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = getenvBool("ENERGYLOG_LOG_JSON", cfg.Log.JSON)
}

// Validate checks values that would otherwise fail deep inside a command.
func (c Config) Validate() error {
	if c.Device.MaxPower < 0 {
		return fmt.Errorf("%w: max power must not be negative, got %v", ErrInvalid, c.Device.MaxPower)
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Log.Level)
	}
	if c.Kafka.Enabled() && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka topic %q set without brokers", ErrInvalid, c.Kafka.Topic)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Flag names shared by BindFlags and ApplyFlags.
const (
	FlagKind          = "kind"
	FlagMaxPower      = "max-power"
	FlagEOFMarker     = "eof-marker"
	FlagKafkaBrokers  = "kafka-brokers"
	FlagKafkaTopic    = "kafka-topic"
	FlagKafkaGroup    = "kafka-group"
	FlagKafkaMax      = "kafka-max-messages"
	FlagKafkaIdle     = "kafka-idle-timeout"
	FlagChronological = "chronological"
	FlagFormat        = "format"
	FlagOutput        = "output"
	FlagAddr          = "addr"
	FlagLogLevel      = "log-level"
	FlagLogJSON       = "log-json"
)

// BindDeviceFlags registers device and store flags.
func BindDeviceFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagKind, d.Device.Kind, "kind of energy consumer (descriptive label)")
	fs.Float64(FlagMaxPower, d.Device.MaxPower, "max power of the consumer in Watts")
	fs.Bool(FlagChronological, false, "order events by timestamp instead of canonical key text")
}

// BindInputFlags registers line source flags.
func BindInputFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagEOFMarker, d.Input.EOFMarker, "stop reading at the first line containing this text (empty disables)")
	fs.StringSlice(FlagKafkaBrokers, nil, "kafka brokers (host:port), enables the kafka source with --kafka-topic")
	fs.String(FlagKafkaTopic, "", "kafka topic carrying raw log lines")
	fs.String(FlagKafkaGroup, "", "kafka consumer group (enables offset commits)")
	fs.Int(FlagKafkaMax, 0, "stop after this many kafka messages (0 = no limit)")
	fs.Duration(FlagKafkaIdle, d.Kafka.IdleTimeout, "stop when no kafka message arrives within this time")
}

// BindOutputFlags registers report flags.
func BindOutputFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP(FlagFormat, "f", d.Output.Format, "output format: text, csv, json or html")
	fs.StringP(FlagOutput, "o", "", "write the report to this file instead of stdout")
}

// BindServerFlags registers HTTP API flags.
func BindServerFlags(fs *pflag.FlagSet) {
	fs.String(FlagAddr, Default().Server.Addr, "HTTP listen address")
}

// BindLogFlags registers logger flags.
func BindLogFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagLogLevel, d.Log.Level, "log level: debug, info, warn or error")
	fs.Bool(FlagLogJSON, false, "emit JSON logs")
}

// ApplyFlags overrides c with every flag the user set explicitly. Flags that
// are not registered on fs are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, err := fs.GetBool(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	str(FlagKind, &c.Device.Kind)
	if fs.Changed(FlagMaxPower) {
		v, err := fs.GetFloat64(FlagMaxPower)
		errs = append(errs, err)
		c.Device.MaxPower = v
	}
	str(FlagEOFMarker, &c.Input.EOFMarker)
	if fs.Changed(FlagKafkaBrokers) {
		v, err := fs.GetStringSlice(FlagKafkaBrokers)
		errs = append(errs, err)
		c.Kafka.Brokers = v
	}
	str(FlagKafkaTopic, &c.Kafka.Topic)
	str(FlagKafkaGroup, &c.Kafka.GroupID)
	if fs.Changed(FlagKafkaMax) {
		v, err := fs.GetInt(FlagKafkaMax)
		errs = append(errs, err)
		c.Kafka.MaxMessages = v
	}
	if fs.Changed(FlagKafkaIdle) {
		v, err := fs.GetDuration(FlagKafkaIdle)
		errs = append(errs, err)
		c.Kafka.IdleTimeout = v
	}
	boolean(FlagChronological, &c.Store.Chronological)
	str(FlagFormat, &c.Output.Format)
	str(FlagOutput, &c.Output.Path)
	str(FlagAddr, &c.Server.Addr)
	str(FlagLogLevel, &c.Log.Level)
	boolean(FlagLogJSON, &c.Log.JSON)

	return errors.Join(errs...)
}
