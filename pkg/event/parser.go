package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxTimestampDigits is the fixed width of the epoch timestamp field.
	MaxTimestampDigits = 10

	TokenTurnOff = "TurnOff"
	TokenDelta   = "Delta"

	// Marker may prefix a record when followed by exactly one white space
	// character, as in console echo output ("> 1544206563 TurnOff").
	Marker = '>'
)

// Parser recognises raw energy log records:
//
//	[> ]<epoch seconds, 1-10 digits> <TurnOff | Delta <+|-><digits>[.<digits>]>
//
// Matching is anchored at the start of the line and anything after a complete
// record is ignored. A Parser holds no mutable state; share one instance.
type Parser struct {
	marker     rune
	maxDigits  int
	offToken   string
	deltaToken string
}

// NewParser returns a parser for the default record grammar.
func NewParser() *Parser {
	return &Parser{
		marker:     Marker,
		maxDigits:  MaxTimestampDigits,
		offToken:   TokenTurnOff,
		deltaToken: TokenDelta,
	}
}

// Default is the shared parser used when none is configured.
var Default = NewParser()

// Parse converts one raw line into an Event. Rejected lines return one of the
// package sentinel errors.
func (p *Parser) Parse(line string) (Event, error) {
	if strings.TrimSpace(line) == "" {
		return Event{}, ErrEmptyLine
	}

	s := &scanner{src: line}
	s.skipMarker(p.marker)

	digits := s.digits(p.maxDigits + 1)
	switch {
	case digits == "":
		return Event{}, ErrNoTimestamp
	case len(digits) > p.maxDigits:
		return Event{}, ErrTimestampTooLong
	}
	sec, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrNoTimestamp, err)
	}
	ts := time.Unix(sec, 0)

	if s.spaces() == 0 {
		return Event{}, ErrNoSeparator
	}

	switch {
	case s.consume(p.offToken):
		return Off(ts), nil
	case s.consume(p.deltaToken):
		if s.spaces() == 0 {
			return Event{}, ErrMissingDelta
		}
		text, ok := s.signedNumber()
		if !ok {
			return Event{}, ErrMissingDelta
		}
		delta, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Event{}, fmt.Errorf("%w: %w", ErrBadDelta, err)
		}
		return New(ts, delta, true), nil
	default:
		return Event{}, ErrUnknownToken
	}
}

// scanner walks a line left to right; pos is a byte offset into src.
type scanner struct {
	src string
	pos int
}

func (s *scanner) peek() (rune, int) {
	if s.pos >= len(s.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.src[s.pos:])
}

// skipMarker consumes the marker and the single white space after it.
func (s *scanner) skipMarker(marker rune) {
	r, n := s.peek()
	if n == 0 || r != marker {
		return
	}
	next, m := utf8.DecodeRuneInString(s.src[s.pos+n:])
	if m == 0 || !unicode.IsSpace(next) {
		return
	}
	s.pos += n + m
}

// digits consumes at most limit ASCII digits.
func (s *scanner) digits(limit int) string {
	start := s.pos
	for s.pos < len(s.src) && s.pos-start < limit && isDigit(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// spaces consumes a run of white space and returns its length in runes.
func (s *scanner) spaces() int {
	n := 0
	for {
		r, size := s.peek()
		if size == 0 || !unicode.IsSpace(r) {
			return n
		}
		s.pos += size
		n++
	}
}

func (s *scanner) consume(token string) bool {
	if !strings.HasPrefix(s.src[s.pos:], token) {
		return false
	}
	s.pos += len(token)
	return true
}

// signedNumber consumes <+|-><digits>[.<digits>]. A dot without digits
// after it is left in place.
func (s *scanner) signedNumber() (string, bool) {
	start := s.pos
	if s.pos >= len(s.src) || (s.src[s.pos] != '+' && s.src[s.pos] != '-') {
		return "", false
	}
	s.pos++
	if s.digits(len(s.src)) == "" {
		s.pos = start
		return "", false
	}
	if s.pos+1 < len(s.src) && s.src[s.pos] == '.' && isDigit(s.src[s.pos+1]) {
		s.pos++
		s.digits(len(s.src))
	}
	return s.src[start:s.pos], true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
