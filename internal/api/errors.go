package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbound is returned when no module address has been set.
	ErrUnbound = errors.New("no module address set")

	// ErrNotConnected is returned by data-channel operations before Connect.
	ErrNotConnected = errors.New("data channel not connected")

	// ErrAlreadyConnected is returned by Connect when the data channel is open.
	ErrAlreadyConnected = errors.New("data channel already connected")
)

// StatusError reports a control request answered with a status other
// than 200.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// VersionError reports module firmware this tool does not support.
type VersionError struct {
	Got      string
	Expected string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported firmware version %q, expected %s", e.Got, e.Expected)
}

// NameError reports a module name that cannot be sent to the module.
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid module name %q: %s", e.Name, e.Reason)
}
