//go:build linux

package display

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// NewProber returns the Linux display prober. It reads the DRM DPMS state
// from sysfs and falls back to parsing `xset q` on X11 sessions where the
// sysfs nodes are absent.
func NewProber() Prober {
	return &linuxProber{}
}

// NewSleeper returns the Linux sleep trigger, backed by
// `xset dpms force off`.
func NewSleeper() Sleeper {
	return &linuxSleeper{}
}

type linuxProber struct{}

func (p *linuxProber) Probe(ctx context.Context) (bool, error) {
	if on, err := probeSysfsDPMS(); err == nil {
		return on, nil
	}
	return probeXset(ctx)
}

// probeSysfsDPMS reports whether any connected DRM output is powered on.
func probeSysfsDPMS() (bool, error) {
	matches, err := filepath.Glob("/sys/class/drm/card*-*/dpms")
	if err != nil || len(matches) == 0 {
		return false, fmt.Errorf("no DRM dpms nodes")
	}

	readable := false
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		readable = true
		if strings.TrimSpace(string(data)) == "On" {
			return true, nil
		}
	}
	if !readable {
		return false, fmt.Errorf("no readable DRM dpms nodes")
	}
	return false, nil
}

// probeXset parses `xset q`, whose DPMS section reports
// "Monitor is On" or "Monitor is Off".
func probeXset(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, "xset", "q").Output()
	if err != nil {
		return false, fmt.Errorf("xset q: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Monitor is ") {
			return strings.TrimPrefix(line, "Monitor is ") == "On", nil
		}
	}
	return false, fmt.Errorf("xset q: no monitor state in output")
}

type linuxSleeper struct{}

func (s *linuxSleeper) Sleep(ctx context.Context) error {
	if _, err := exec.LookPath("xset"); err != nil {
		return fmt.Errorf("%w: xset not found", ErrUnsupported)
	}
	if err := exec.CommandContext(ctx, "xset", "dpms", "force", "off").Run(); err != nil {
		return fmt.Errorf("xset dpms force off: %w", err)
	}
	return nil
}
