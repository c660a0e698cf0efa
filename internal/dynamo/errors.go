package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDimensionMismatch indicates mismatched vehicle/state/control counts.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrStepOutOfRange indicates a history index outside [0, N-1].
	ErrStepOutOfRange = errors.New("dynamo: step index out of range")

	// ErrNoVehicles indicates a run configured without any vehicle.
	ErrNoVehicles = errors.New("dynamo: at least one vehicle is required")

	// ErrUnknownParam indicates a Configurable received an unknown parameter name.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")
)

// SimulationError wraps an error with the step and vehicle it occurred at.
type SimulationError struct {
	Step    int
	Vehicle int
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d, vehicle %d: %v", e.Step, e.Vehicle, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
