//go:build darwin

package display

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// NewProber returns the macOS display prober, backed by
// `pmset -g powerstate IODisplayWrangler`.
func NewProber() Prober {
	return &darwinProber{}
}

// NewSleeper returns the macOS sleep trigger, backed by
// `pmset displaysleepnow`.
func NewSleeper() Sleeper {
	return &darwinSleeper{}
}

type darwinProber struct{}

func (p *darwinProber) Probe(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, "pmset", "-g", "powerstate", "IODisplayWrangler").Output()
	if err != nil {
		return false, fmt.Errorf("pmset powerstate: %w", err)
	}

	// The wrangler line looks like:
	//   IODisplayWrangler 4 ...
	// Power state 4 is full-on; anything lower means the display sleeps.
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "IODisplayWrangler" {
			continue
		}
		state, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("pmset powerstate: parse %q: %w", fields[1], err)
		}
		return state >= 4, nil
	}
	return false, fmt.Errorf("pmset powerstate: IODisplayWrangler not in output")
}

type darwinSleeper struct{}

func (s *darwinSleeper) Sleep(ctx context.Context) error {
	if err := exec.CommandContext(ctx, "pmset", "displaysleepnow").Run(); err != nil {
		return fmt.Errorf("pmset displaysleepnow: %w", err)
	}
	return nil
}
