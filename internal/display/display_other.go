//go:build !linux && !darwin && !windows

package display

import "context"

// NewProber returns a prober that always reports unsupported.
func NewProber() Prober {
	return unsupported{}
}

// NewSleeper returns a sleeper that always reports unsupported.
func NewSleeper() Sleeper {
	return unsupported{}
}

type unsupported struct{}

func (unsupported) Probe(ctx context.Context) (bool, error) {
	return false, ErrUnsupported
}

func (unsupported) Sleep(ctx context.Context) error {
	return ErrUnsupported
}
