package engine

import "errors"

var (
	// ErrDeviceUnavailable wraps any failure of Device.Open.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("engine closed")
	// ErrUnsupportedNote is returned for notes outside the keyboard.
	ErrUnsupportedNote = errors.New("unsupported note")
	// ErrAlreadyStopped is returned when stopping a voice that has already
	// finished or been stopped. Callers treat it as success.
	ErrAlreadyStopped = errors.New("voice already stopped")
	// ErrInvalidConfig wraps Config validation failures.
	ErrInvalidConfig = errors.New("invalid engine config")
)
