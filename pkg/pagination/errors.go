package pagination

import (
	"errors"
	"fmt"
)

// Common errors returned by the pagination package.
var (
	// ErrRangeBound is wrapped by *RangeBoundError.
	ErrRangeBound = errors.New("offset and limit exceed the result window")

	// ErrLimitBound is wrapped by *LimitBoundError.
	ErrLimitBound = errors.New("limit out of bounds")

	// Done is returned by Iterator.Next when no more items remain.
	Done = errors.New("no more items in iterator")
)

// RangeBoundError reports an offset/limit pair whose sum passes RangeCeiling.
type RangeBoundError struct {
	Offset uint64
	Limit  uint64

	// Available is the largest limit still valid at Offset, or 0 when
	// the window is exhausted.
	Available uint64
}

// Error implements the error interface.
func (e *RangeBoundError) Error() string {
	return fmt.Sprintf("offset and limit sum must be lower than %d, but provided: offset=%d and limit=%d",
		RangeLimit, e.Offset, e.Limit)
}

// Unwrap returns ErrRangeBound for use with errors.Is.
func (e *RangeBoundError) Unwrap() error {
	return ErrRangeBound
}

// HasAvailable reports whether a smaller limit would still fit.
func (e *RangeBoundError) HasAvailable() bool {
	return e.Available > 0
}

// LimitBoundError reports a limit outside [LimitMin, LimitMax].
type LimitBoundError struct {
	Limit uint64
}

// Error implements the error interface.
func (e *LimitBoundError) Error() string {
	return fmt.Sprintf("limit must be greater than or equal to %d and lower than or equal to %d, but provided: limit=%d",
		LimitMin, LimitMax, e.Limit)
}

// Unwrap returns ErrLimitBound for use with errors.Is.
func (e *LimitBoundError) Unwrap() error {
	return ErrLimitBound
}
