package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/ja7ad/energylog/internal/config"
	"github.com/ja7ad/energylog/internal/server"
	"github.com/ja7ad/energylog/pkg/meter"
	"github.com/ja7ad/energylog/pkg/report"
	"github.com/ja7ad/energylog/pkg/source"
	"github.com/ja7ad/energylog/pkg/store"
)

func newMeter(cfg config.Config) (*meter.Meter, error) {
	m, err := meter.New(cfg.Device.Kind, cfg.Device.MaxPower, &store.Config{Order: cfg.Store.Order()})
	if err != nil {
		return nil, fmt.Errorf("meter: %w", err)
	}
	return m, nil
}

// openSource picks the input: the listed files, then the Kafka topic when
// configured; stdin when neither is given.
func openSource(cfg config.Config, files []string, stdin io.Reader) (source.Source, error) {
	var srcs []source.Source
	closeAll := func() {
		for _, s := range srcs {
			_ = s.Close()
		}
	}

	for _, path := range files {
		r, err := source.Open(path, cfg.Input.EOFMarker)
		if err != nil {
			closeAll()
			return nil, err
		}
		srcs = append(srcs, r)
	}
	if cfg.Kafka.Enabled() {
		k, err := source.NewKafka(cfg.Kafka.Source(cfg.Input.EOFMarker))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("kafka source: %w", err)
		}
		srcs = append(srcs, k)
	}
	if len(srcs) == 0 {
		return source.NewReader("stdin", stdin, cfg.Input.EOFMarker), nil
	}
	return source.Concat(srcs...), nil
}

// ingest feeds every line of src to m. An interrupt ends input early but
// keeps what was read.
func ingest(ctx context.Context, m *meter.Meter, src source.Source) error {
	var lines, accepted int
	err := src.Lines(ctx, func(line string) {
		lines++
		if m.AddLog(line) {
			accepted++
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("read input: %w", err)
	}
	slog.Info("ingest finished",
		"session", m.ID(),
		"lines", lines,
		"accepted", accepted,
		"rejected", lines-accepted,
		"events", m.Len(),
	)
	return nil
}

func readInto(ctx context.Context, cfg config.Config, files []string, stdin io.Reader) (*meter.Meter, error) {
	m, err := newMeter(cfg)
	if err != nil {
		return nil, err
	}
	src, err := openSource(cfg, files, stdin)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()

	if cfg.Kafka.Enabled() {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}

	slog.Info("ingest started",
		"session", m.ID(),
		"kind", cfg.Device.Kind,
		"max_power_w", cfg.Device.MaxPower,
		"order", cfg.Store.Order().String(),
	)
	if err := ingest(ctx, m, src); err != nil {
		return nil, err
	}
	return m, nil
}

func runEstimate(ctx context.Context, cfg config.Config, files []string, stdin io.Reader, stdout io.Writer) error {
	m, err := readInto(ctx, cfg, files, stdin)
	if err != nil {
		return err
	}

	res := m.Estimate()
	slog.Info("estimate done",
		"session", m.ID(),
		"energy_wh", res.EnergyWh,
		"hours", res.Hours,
		"intervals", len(res.Intervals),
	)

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeReport(cfg.Output.Path, stdout, format, report.New(m, res))
}

func runEvents(ctx context.Context, cfg config.Config, files []string, stdin io.Reader, stdout io.Writer) error {
	m, err := readInto(ctx, cfg, files, stdin)
	if err != nil {
		return err
	}
	for _, k := range m.Keys() {
		if _, err := fmt.Fprintln(stdout, k); err != nil {
			return err
		}
	}
	return nil
}

func writeReport(path string, stdout io.Writer, format report.Format, rep report.Report) error {
	if path == "" {
		return report.Write(stdout, format, rep)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report file: %w", err)
	}
	if err := report.Write(f, format, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s report: %w", format, err)
	}
	return f.Close()
}

func runServe(ctx context.Context, cfg config.Config, files []string) error {
	m, err := newMeter(cfg)
	if err != nil {
		return err
	}
	for _, path := range files {
		r, err := source.Open(path, cfg.Input.EOFMarker)
		if err != nil {
			return err
		}
		err = ingest(ctx, m, r)
		_ = r.Close()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stderr, server.New(m).Router())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", cfg.Server.Addr, "session", m.ID(), "kind", cfg.Device.Kind)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http api: %w", err)
	case <-ctx.Done():
		slog.Info("interrupted")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
