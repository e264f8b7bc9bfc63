package bulb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected occurs when a setter is called before Connect, or
	// after Disconnect.
	ErrNotConnected = errors.New("not connected to bulb")
	// ErrDeviceNotFound occurs when the scan window elapses without the
	// configured address showing up in any advertisement.
	ErrDeviceNotFound = errors.New("bulb not found during scan")
	// ErrServiceNotAvailable occurs when the connected device does not expose
	// the Hue light-control service.
	ErrServiceNotAvailable = errors.New("device does not implement the light-control service")
	// ErrCharacteristicNotAvailable occurs when the light-control service is
	// present but one of its expected characteristics is missing.
	ErrCharacteristicNotAvailable = errors.New("unable to access required characteristic on device")
	// ErrOutOfRange is the kind wrapped by all parameter validation failures.
	ErrOutOfRange = errors.New("parameter out of range")
)

// OutOfRangeError describes a rejected parameter. It wraps ErrOutOfRange so
// callers can match the kind with errors.Is.
type OutOfRangeError struct {
	Param string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.Param, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

func rangeErr(param string, value, min, max float64) error {
	return &OutOfRangeError{Param: param, Value: value, Min: min, Max: max}
}
