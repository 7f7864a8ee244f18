package source

import "errors"

var (
	// ErrNoBrokers indicates a Kafka source configured without brokers.
	ErrNoBrokers = errors.New("source: at least one kafka broker is required")

	// ErrNoTopic indicates a Kafka source configured without a topic.
	ErrNoTopic = errors.New("source: kafka topic must not be empty")
)
