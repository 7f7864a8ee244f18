package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig selects the topic to read. Each message value carries one or
// more newline separated records.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// GroupID enables consumer-group offsets and commits. Without it the
	// reader starts at the beginning of partition 0.
	GroupID   string
	EOFMarker string
	// MaxMessages stops the source after that many messages; 0 means no limit.
	MaxMessages int
	// IdleTimeout stops the source when no message arrives in time.
	IdleTimeout time.Duration
}

const defaultIdleTimeout = 5 * time.Second

// kafkaFetcher is the part of *kafka.Reader the source needs.
type kafkaFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka reads records from a Kafka topic.
type Kafka struct {
	cfg    KafkaConfig
	reader kafkaFetcher
}

// NewKafka validates cfg and builds the underlying reader. No connection is
// made until Lines is called.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	cfg, err := normalizeKafka(cfg)
	if err != nil {
		return nil, err
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Kafka{cfg: cfg, reader: reader}, nil
}

func normalizeKafka(cfg KafkaConfig) (KafkaConfig, error) {
	brokers := cfg.Brokers[:0:0]
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return cfg, ErrNoBrokers
	}
	cfg.Brokers = brokers
	cfg.Topic = strings.TrimSpace(cfg.Topic)
	if cfg.Topic == "" {
		return cfg, ErrNoTopic
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.MaxMessages < 0 {
		cfg.MaxMessages = 0
	}
	return cfg, nil
}

func (k *Kafka) Lines(ctx context.Context, fn func(line string)) error {
	slog.Debug("kafka source started",
		"brokers", strings.Join(k.cfg.Brokers, ","),
		"topic", k.cfg.Topic,
		"group", k.cfg.GroupID,
	)

	msgs := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, k.cfg.IdleTimeout)
		msg, err := k.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, context.DeadlineExceeded):
				slog.Debug("kafka source idle", "topic", k.cfg.Topic, "messages", msgs)
				return nil
			case errors.Is(err, io.EOF), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			default:
				return fmt.Errorf("kafka fetch %s: %w", k.cfg.Topic, err)
			}
		}
		msgs++

		stop := splitRecords(string(msg.Value), k.cfg.EOFMarker, fn)

		if k.cfg.GroupID != "" {
			if err := k.reader.CommitMessages(ctx, msg); err != nil {
				slog.Warn("kafka commit failed", "topic", k.cfg.Topic, "offset", msg.Offset, "err", err)
			}
		}

		if stop {
			slog.Debug("eof marker reached", "source", "kafka:"+k.cfg.Topic, "messages", msgs)
			return nil
		}
		if k.cfg.MaxMessages > 0 && msgs >= k.cfg.MaxMessages {
			return nil
		}
	}
}

func (k *Kafka) Close() error { return k.reader.Close() }

// splitRecords feeds each line of payload to fn and reports whether the EOF
// marker was seen. Lines after the marker are dropped.
func splitRecords(payload, eofMarker string, fn func(line string)) bool {
	payload = strings.TrimSuffix(strings.ReplaceAll(payload, "\r\n", "\n"), "\n")
	if payload == "" {
		return false
	}
	for _, line := range strings.Split(payload, "\n") {
		if eofMarker != "" && strings.Contains(line, eofMarker) {
			return true
		}
		fn(line)
	}
	return false
}
