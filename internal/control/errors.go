package control

import "errors"

// Protocol errors. Each names one way a datagram can fail validation;
// the dispatcher logs the error and drops the command with zero partial
// side effects.
var (
	// ErrEmptyPayload indicates a zero-length or whitespace-only datagram.
	ErrEmptyPayload = errors.New("control: empty payload")

	// ErrMalformedPayload indicates the datagram is not valid JSON.
	ErrMalformedPayload = errors.New("control: malformed payload")

	// ErrMissingCommand indicates the envelope has no command field.
	ErrMissingCommand = errors.New("control: missing command")

	// ErrUnknownCommand indicates a command kind outside the protocol.
	ErrUnknownCommand = errors.New("control: unknown command")

	// ErrMissingField indicates a required parameter is absent.
	ErrMissingField = errors.New("control: missing field")

	// ErrInvalidField indicates a parameter is present but out of range.
	ErrInvalidField = errors.New("control: invalid field")

	// ErrUnknownDeviceType indicates a spawn type outside the device
	// catalogue.
	ErrUnknownDeviceType = errors.New("control: unknown device type")
)

// Runner lifecycle errors.
var (
	// ErrAlreadyRunning indicates run was requested while a worker is
	// active.
	ErrAlreadyRunning = errors.New("control: simulation already running")

	// ErrNotRunning indicates kill was requested with no active worker.
	ErrNotRunning = errors.New("control: simulation not running")
)
