package field

import "errors"

var (
	ErrUnknownKind          = errors.New("field: unknown field kind")
	ErrInvalidSpread        = errors.New("field: peak spread must be positive")
	ErrInvalidGrid          = errors.New("field: grid size must be at least 2 and axis range positive")
	ErrContourUninitialized = errors.New("field: contour points not initialized")
)
