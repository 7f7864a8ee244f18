package event

import "errors"

var (
	// ErrEmptyLine indicates that the line was empty or only white space.
	ErrEmptyLine = errors.New("event: empty line")

	// ErrNoTimestamp indicates that the line did not start with an epoch
	// timestamp (after the optional "> " marker).
	ErrNoTimestamp = errors.New("event: no timestamp")

	// ErrTimestampTooLong indicates that the timestamp field exceeded its
	// fixed width of MaxTimestampDigits digits.
	ErrTimestampTooLong = errors.New("event: timestamp too long")

	// ErrNoSeparator indicates missing white space between the timestamp
	// and the token.
	ErrNoSeparator = errors.New("event: no separator after timestamp")

	// ErrUnknownToken indicates that the token was neither TurnOff nor Delta.
	ErrUnknownToken = errors.New("event: unknown token")

	// ErrMissingDelta indicates a Delta token without a signed number.
	ErrMissingDelta = errors.New("event: missing delta value")

	// ErrBadDelta indicates that the delta text could not be converted to a
	// number.
	ErrBadDelta = errors.New("event: malformed delta value")
)
