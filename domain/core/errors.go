package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptySample      = fmt.Errorf("%w: empty sample", ErrInvalidInput)
	ErrNonPositiveCount = fmt.Errorf("%w: resample count must be positive", ErrInvalidInput)

	// Numeric errors
	ErrNonFinite = errors.New("sample contains non-finite value")

	// Service-level skip reason, never returned by the bootstrap engine
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// Error constructors with context
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewEmptySampleError(field string) error {
	return fmt.Errorf("%w (%s)", ErrEmptySample, field)
}

func NewNonFiniteError(field string, index int, value float64) error {
	return fmt.Errorf("%w: %s[%d] = %v", ErrNonFinite, field, index, value)
}

// NewNonFiniteStatisticError reports a statistic that overflowed even though
// every observation was finite
func NewNonFiniteStatisticError(name string, value float64) error {
	return fmt.Errorf("%w: %s overflowed to %v", ErrNonFinite, name, value)
}

// Error checking helpers
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsNumericError(err error) bool {
	return errors.Is(err, ErrNonFinite)
}

func IsDeterminismError(err error) bool {
	return errors.Is(err, ErrSeedMismatch)
}
