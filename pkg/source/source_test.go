package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s Source) []string {
	t.Helper()
	var got []string
	require.NoError(t, s.Lines(context.Background(), func(line string) { got = append(got, line) }))
	return got
}

func TestReader_StopsAtEOFMarker(t *testing.T) {
	in := strings.NewReader("1544206562 TurnOff\n1544206563 Delta +0.5\nEOF\n1544210163 TurnOff\n")
	got := collect(t, NewReader("stdin", in, DefaultEOFMarker))
	assert.Equal(t, []string{"1544206562 TurnOff", "1544206563 Delta +0.5"}, got)
}

func TestReader_DrainsWithoutMarker(t *testing.T) {
	in := strings.NewReader("a\r\nb\n\nc")
	got := collect(t, NewReader("stdin", in, ""))
	assert.Equal(t, []string{"a", "b", "", "c"}, got)
}

func TestReader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewReader("stdin", strings.NewReader("x\ny\n"), "").Lines(ctx, func(string) {
		t.Fatal("no line expected after cancel")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bulb.log")
	require.NoError(t, os.WriteFile(path, []byte("1544206562 TurnOff\n1544206563 Delta +0.5\n"), 0o644))

	r, err := Open(path, DefaultEOFMarker)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Len(t, collect(t, r), 2)

	_, err = Open(filepath.Join(dir, "missing.log"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConcat(t *testing.T) {
	s := Concat(
		NewReader("a", strings.NewReader("1\n2\nEOF\n3\n"), DefaultEOFMarker),
		NewReader("b", strings.NewReader("4\n"), DefaultEOFMarker),
	)
	assert.Equal(t, []string{"1", "2", "4"}, collect(t, s))
	assert.NoError(t, s.Close())
}

type fakeFetcher struct {
	msgs      []kafka.Message
	err       error
	committed []int64
	closed    bool
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		if f.err != nil {
			return kafka.Message{}, f.err
		}
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

func newTestKafka(t *testing.T, cfg KafkaConfig, f *fakeFetcher) *Kafka {
	t.Helper()
	cfg, err := normalizeKafka(cfg)
	require.NoError(t, err)
	return &Kafka{cfg: cfg, reader: f}
}

func TestKafka_LinesUntilIdle(t *testing.T) {
	f := &fakeFetcher{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("1544206562 TurnOff\n1544206563 Delta +0.5\n")},
		{Offset: 2, Value: []byte("1544210163 TurnOff")},
	}}
	k := newTestKafka(t, KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		Topic:       "bulb",
		GroupID:     "energylog",
		IdleTimeout: 20 * time.Millisecond,
	}, f)

	got := collect(t, k)
	assert.Equal(t, []string{"1544206562 TurnOff", "1544206563 Delta +0.5", "1544210163 TurnOff"}, got)
	assert.Equal(t, []int64{1, 2}, f.committed)

	require.NoError(t, k.Close())
	assert.True(t, f.closed)
}

func TestKafka_StopsAtMarkerAndMax(t *testing.T) {
	f := &fakeFetcher{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("a\nEOF\nb")},
		{Offset: 2, Value: []byte("c")},
	}}
	k := newTestKafka(t, KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t", EOFMarker: DefaultEOFMarker}, f)
	assert.Equal(t, []string{"a"}, collect(t, k))
	assert.Empty(t, f.committed, "no commits without a group")

	f = &fakeFetcher{msgs: []kafka.Message{
		{Value: []byte("a")}, {Value: []byte("b")}, {Value: []byte("c")},
	}}
	k = newTestKafka(t, KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t", MaxMessages: 2}, f)
	assert.Equal(t, []string{"a", "b"}, collect(t, k))
}

func TestKafka_FetchError(t *testing.T) {
	boom := errors.New("broker down")
	k := newTestKafka(t, KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t"}, &fakeFetcher{err: boom})
	err := k.Lines(context.Background(), func(string) {})
	require.ErrorIs(t, err, boom)

	k = newTestKafka(t, KafkaConfig{Brokers: []string{"b:9092"}, Topic: "t"}, &fakeFetcher{err: kafka.ErrGroupClosed})
	require.NoError(t, k.Lines(context.Background(), func(string) {}))
}

func TestNewKafka_Validation(t *testing.T) {
	_, err := NewKafka(KafkaConfig{Topic: "t"})
	require.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewKafka(KafkaConfig{Brokers: []string{" ", ""}, Topic: "t"})
	require.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewKafka(KafkaConfig{Brokers: []string{"b:9092"}, Topic: "  "})
	require.ErrorIs(t, err, ErrNoTopic)

	k, err := NewKafka(KafkaConfig{Brokers: []string{" b:9092 "}, Topic: "bulb"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b:9092"}, k.cfg.Brokers)
	assert.Equal(t, defaultIdleTimeout, k.cfg.IdleTimeout)
	require.NoError(t, k.Close())
}
