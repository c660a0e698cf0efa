package control

import "errors"

var (
	ErrInvalidConfig = errors.New("control: invalid configuration")
	ErrUnknownSeries = errors.New("control: unknown series")
)
