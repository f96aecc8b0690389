package workorders

import "errors"

var (
	ErrNotFound     = errors.New("work order not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState means the requested transition is not allowed from the
	// work order's current status, e.g. executing anything but a pending
	// order.
	ErrInvalidState = errors.New("work order is not in a valid state for this operation")
)
