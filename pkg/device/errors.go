package device

import "errors"

var (
	// ErrNotFound indicates a device was not found in the catalog
	ErrNotFound = errors.New("device not found")

	// ErrTimeout indicates a device client gave no answer in time
	ErrTimeout = errors.New("operation timed out")

	// ErrNotConnected indicates the device client is not connected
	ErrNotConnected = errors.New("client not connected")

	// ErrValidation indicates a payload or catalog failed schema validation
	ErrValidation = errors.New("validation error")
)
