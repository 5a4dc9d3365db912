package transport

import "errors"

var (
	// ErrDeviceNotFound is returned when no attached device matches the identifier
	ErrDeviceNotFound = errors.New("device not found")

	// ErrNotConfigurable is returned when a link mode change is requested from a
	// device that does not implement Configurer
	ErrNotConfigurable = errors.New("device does not support link configuration")

	// ErrInvalidIdentifier is returned for malformed device identifiers
	ErrInvalidIdentifier = errors.New("invalid device identifier")
)
