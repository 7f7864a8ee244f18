package consumer

import "errors"

var (
	// ErrNegativeMaxPower indicates a consumer built with a negative max power.
	ErrNegativeMaxPower = errors.New("consumer: max power should be a positive value")

	// ErrInvalidMaxPower indicates a NaN or infinite max power.
	ErrInvalidMaxPower = errors.New("consumer: max power is not a finite number")
)
