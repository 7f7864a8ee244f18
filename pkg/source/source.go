// Package source feeds raw log lines from a stream (a console, a file, a
// Kafka topic) to a callback until the stream ends or an end-of-input marker
// line shows up.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultEOFMarker ends console input when a line contains it.
const DefaultEOFMarker = "EOF"

// maxLineBytes bounds a single scanned line.
const maxLineBytes = 1 << 20

// Source delivers raw lines to fn in arrival order.
type Source interface {
	Lines(ctx context.Context, fn func(line string)) error
	Close() error
}

// Reader reads newline separated records from an io.Reader.
type Reader struct {
	name   string
	r      io.Reader
	closer io.Closer
	eof    string
}

// NewReader wraps r. Reading stops before the first line containing
// eofMarker; an empty marker disables the check.
func NewReader(name string, r io.Reader, eofMarker string) *Reader {
	return &Reader{name: name, r: r, eof: eofMarker}
}

// Open reads records from the file at path. Close releases the file.
func Open(path, eofMarker string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Reader{name: path, r: f, closer: f, eof: eofMarker}, nil
}

func (r *Reader) Lines(ctx context.Context, fn func(line string)) error {
	sc := bufio.NewScanner(r.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	n := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		if r.eof != "" && strings.Contains(line, r.eof) {
			slog.Debug("eof marker reached", "source", r.name, "lines", n)
			return nil
		}
		fn(line)
		n++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", r.name, err)
	}
	slog.Debug("source drained", "source", r.name, "lines", n)
	return nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Concat reads each source to completion in turn.
func Concat(srcs ...Source) Source { return concat(srcs) }

type concat []Source

func (c concat) Lines(ctx context.Context, fn func(line string)) error {
	for _, s := range c {
		if err := s.Lines(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

func (c concat) Close() error {
	var first error
	for _, s := range c {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
