package device

import "errors"

var (
	// ErrNotFound indicates a registry lookup matched no device.
	ErrNotFound = errors.New("device: not found")

	// ErrAlreadyPaired indicates a sub-device with the same instance
	// name is already attached.
	ErrAlreadyPaired = errors.New("device: sub-device already paired")
)
