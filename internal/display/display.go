// Package display wraps the platform calls that query and force local
// display power state.
package display

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when the current platform has no usable
// probe or sleep mechanism.
var ErrUnsupported = errors.New("display: not supported on this platform")

// State is the last observed power state of the local display.
type State int32

const (
	StateUnknown State = iota
	StateOff
	StateOn
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	default:
		return "unknown"
	}
}

// Prober answers whether the local display is currently powered on.
type Prober interface {
	Probe(ctx context.Context) (bool, error)
}

// Sleeper forces the local display to sleep. The call is idempotent: a
// display that is already asleep stays asleep.
type Sleeper interface {
	Sleep(ctx context.Context) error
}
